/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aquagest/apiserver/config"
	"github.com/aquagest/apiserver/internal/mq"
	"github.com/aquagest/apiserver/types"
)

// consumeCmd tails the broker channel that receives forwarded domain events.
var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Log domain events forwarded to the configured broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer broker.Close()

		log.Info().Str("channel", broker.Channel()).Msg("consuming events")
		err = broker.Subscribe(ctx, func(_ context.Context, msg mq.Message) error {
			var event types.Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				log.Warn().Err(err).Str("message_id", msg.ID).Msg("discarding malformed event")
				return nil
			}
			log.Info().
				Str("message_id", msg.ID).
				Str("event_id", event.ID).
				Str("event_type", string(event.Type)).
				Interface("payload", event.Payload).
				Msg("event received")
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
