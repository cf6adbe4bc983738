package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/aquagest/apiserver/internal/services"
)

// Pinger checks storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Root describes the service.
func Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "🚰 AquaGest - Sistema de Gestión de Agua",
		"status":  "✅ Funcionando correctamente",
		"version": "1.0.0",
	})
}

// TestDB checks the database and reports row counts. Failures are reported
// in the body with status 200, which is what the web client expects.
func TestDB(db Pinger, dashboard *services.DashboardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("database check failed")
			writeJSON(w, http.StatusOK, DBCheckResponse{
				Status: "❌ Error de conexión a la base de datos",
				Error:  err.Error(),
			})
			return
		}

		stats := dashboard.Stats(r.Context())
		writeJSON(w, http.StatusOK, DBCheckResponse{
			Status: "✅ Conexión a base de datos exitosa",
			DatabaseInfo: &DatabaseInfo{
				Users:        stats.TotalUsers,
				Requests:     stats.TotalRequests,
				SupplyPoints: stats.TotalPoints,
			},
		})
	}
}

type DBCheckResponse struct {
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	DatabaseInfo *DatabaseInfo `json:"database_info,omitempty"`
}

type DatabaseInfo struct {
	Users        int `json:"usuarios"`
	Requests     int `json:"solicitudes"`
	SupplyPoints int `json:"puntos_suministro"`
}
