package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aquagest/apiserver/internal/services"
	"github.com/aquagest/apiserver/internal/validation"
)

// SupplyPointHandler provides HTTP handlers for supply points.
type SupplyPointHandler struct {
	pointService *services.SupplyPointService
}

func NewSupplyPointHandler(pointService *services.SupplyPointService) *SupplyPointHandler {
	return &SupplyPointHandler{pointService: pointService}
}

// SupplyPointRouter registers supply point routes on the given router.
func SupplyPointRouter(r chi.Router, pointService *services.SupplyPointService) {
	handler := NewSupplyPointHandler(pointService)

	r.Get("/", handler.ListSupplyPoints)
	r.Post("/", handler.CreateSupplyPoint)
	r.Get("/{pointID}/disponibilidad", handler.ListAvailability)
}

func (h *SupplyPointHandler) ListSupplyPoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pointService.List(r.Context()))
}

func (h *SupplyPointHandler) CreateSupplyPoint(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplyPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	point, err := h.pointService.Create(r.Context(), validation.NewSupplyPoint{
		Code:     req.Code,
		Address:  req.Address,
		Status:   req.Status,
		Capacity: req.Capacity,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, point)
}

func (h *SupplyPointHandler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "pointID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.pointService.Availability(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type CreateSupplyPointRequest struct {
	Code     string          `json:"codigo_punto"`
	Address  string          `json:"direccion"`
	Status   string          `json:"estado"`
	Capacity decimal.Decimal `json:"capacidad"`
}
