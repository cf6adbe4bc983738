/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aquagest/apiserver/config"
	"github.com/aquagest/apiserver/internal/db"
	"github.com/aquagest/apiserver/internal/server"
	"github.com/aquagest/apiserver/internal/services"
)

// seedCmd loads the sample supply points into an empty database.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample supply points into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		repos := server.PostgresRepositories(dbConn)
		seeder := services.NewSupplyPointService(repos.SupplyPoints, repos.Availability, nil)
		created, err := seeder.Seed(cmd.Context(), services.DefaultSeedPoints)
		if err != nil {
			return err
		}
		log.Info().Int("created", created).Msg("supply points seeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
