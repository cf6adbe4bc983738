package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aquagest/apiserver/internal/services"
	"github.com/aquagest/apiserver/internal/validation"
)

type InquiryHandler struct {
	inquiryService *services.InquiryService
}

func NewInquiryHandler(inquiryService *services.InquiryService) *InquiryHandler {
	return &InquiryHandler{inquiryService: inquiryService}
}

// InquiryRouter registers inquiry routes on the given router.
func InquiryRouter(r chi.Router, inquiryService *services.InquiryService) {
	handler := NewInquiryHandler(inquiryService)

	r.Get("/", handler.ListInquiries)
	r.Post("/", handler.CreateInquiry)
}

func (h *InquiryHandler) CreateInquiry(w http.ResponseWriter, r *http.Request) {
	var req CreateInquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	inquiry, err := h.inquiryService.Create(r.Context(), validation.NewInquiry{Description: req.Description})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inquiry)
}

func (h *InquiryHandler) ListInquiries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.inquiryService.List(r.Context()))
}

type CreateInquiryRequest struct {
	Description string `json:"descripcion_consulta"`
}
