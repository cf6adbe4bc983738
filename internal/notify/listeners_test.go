package notify

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aquagest/apiserver/internal/metrics"
	"github.com/aquagest/apiserver/types"
)

func TestLogListenerWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	hub := newTestHub()
	hub.Subscribe(LogListener(zerolog.New(&buf)))

	hub.Publish(context.Background(), types.EventUserRegistered, map[string]any{"email": "ana@example.com"})

	assert.Contains(t, buf.String(), `"event_type":"user_registered"`)
	assert.Contains(t, buf.String(), `"email":"ana@example.com"`)
}

func TestMetricsListenerCountsEvents(t *testing.T) {
	m := metrics.New()
	hub := newTestHub()
	hub.Subscribe(MetricsListener(m))

	hub.Publish(context.Background(), types.EventNewRequest, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `aquagest_events_published_total{type="new_request"} 1`)
}
