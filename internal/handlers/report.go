package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aquagest/apiserver/internal/report"
	"github.com/aquagest/apiserver/internal/services"
)

// ReportHandler serves dashboard counters and generated reports.
type ReportHandler struct {
	dashboardService *services.DashboardService
	reportService    *services.ReportService
}

func NewReportHandler(dashboardService *services.DashboardService, reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{
		dashboardService: dashboardService,
		reportService:    reportService,
	}
}

// DashboardRouter registers the statistics route.
func DashboardRouter(r chi.Router, dashboardService *services.DashboardService) {
	handler := NewReportHandler(dashboardService, nil)

	r.Get("/stats", handler.DashboardStats)
}

// ReportRouter registers report generation.
func ReportRouter(r chi.Router, reportService *services.ReportService) {
	handler := NewReportHandler(nil, reportService)

	r.Post("/generar", handler.GenerateReport)
	r.Get("/archivo", handler.ListArchived)
	r.Get("/archivo/*", handler.GetArchived)
}

func (h *ReportHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dashboardService.Stats(r.Context()))
}

// GenerateReport reads form fields tipo_reporte and formato. JSON is the
// default; xlsx and pdf are sent as attachments.
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	reportType := strings.TrimSpace(r.PostFormValue("tipo_reporte"))
	if reportType == "" {
		writeError(w, http.StatusBadRequest, "Campo requerido: tipo_reporte")
		return
	}
	format, ok := report.ParseFormat(r.PostFormValue("formato"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Formato de reporte no soportado")
		return
	}

	doc, err := h.reportService.Generate(r.Context(), reportType)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	if format == report.FormatJSON {
		writeJSON(w, http.StatusOK, doc)
		return
	}

	data, err := report.Render(doc, format)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	filename := fmt.Sprintf("reporte_%s_%s.%s", attachmentSlug(reportType), doc.GeneratedAt.Format("20060102_150405"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListArchived lists archived report documents, narrowed by the optional
// tipo query parameter.
func (h *ReportHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	objects, err := h.reportService.Archived(r.Context(), r.URL.Query().Get("tipo"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, objects)
}

// GetArchived streams one archived JSON report. The wildcard is the object
// key returned by ListArchived.
func (h *ReportHandler) GetArchived(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	rc, err := h.reportService.ArchivedDocument(r.Context(), key)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, path.Base(key)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func attachmentSlug(reportType string) string {
	if kind, ok := report.ParseKind(reportType); ok {
		return string(kind)
	}
	return "generico"
}
