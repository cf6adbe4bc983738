package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aquagest/apiserver/internal/services"
	"github.com/aquagest/apiserver/internal/validation"
)

// RequestHandler provides HTTP handlers for water requests.
type RequestHandler struct {
	requestService *services.RequestService
}

func NewRequestHandler(requestService *services.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// RequestRouter registers request routes on the given router.
func RequestRouter(r chi.Router, requestService *services.RequestService) {
	handler := NewRequestHandler(requestService)

	r.Get("/", handler.ListRequests)
	r.Post("/", handler.CreateRequest)
	r.Get("/{requestID}", handler.GetRequest)
}

func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	cmd := validation.NewRequest{Code: req.Code, Type: req.Type}
	for _, d := range req.Details {
		cmd.Details = append(cmd.Details, validation.DetailLine{PointID: int(d.PointID), Quantity: d.Quantity})
	}

	request, err := h.requestService.Create(r.Context(), cmd)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateRequestResponse{
		Message:   "✅ Solicitud creada exitosamente",
		RequestID: request.ID,
		Code:      request.Code,
	})
}

func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.requestService.List(r.Context()))
}

func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "requestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	request, err := h.requestService.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

type CreateRequestRequest struct {
	Code    string                 `json:"codigo_solicitud"`
	Type    string                 `json:"tipo_solicitud"`
	Details []RequestDetailRequest `json:"detalles"`
}

type RequestDetailRequest struct {
	PointID  flexibleInt     `json:"id_punto"`
	Quantity decimal.Decimal `json:"cantidad_solicitada"`
}

type CreateRequestResponse struct {
	Message   string `json:"message"`
	RequestID int    `json:"solicitud_id"`
	Code      string `json:"codigo"`
}
