package types

import "time"

// ReportRecord is a single projected row of a report.
type ReportRecord map[string]any

// ReportDocument is a labeled, timestamped projection of a record set.
type ReportDocument struct {
	// Type is the report's display title.
	Type string `json:"tipo"`

	// Description explains the content of the report. Empty for
	// unrecognized report types.
	Description string `json:"descripcion"`

	// Records are the projected rows, in repository order.
	Records []ReportRecord `json:"datos"`

	// Columns lists the record keys in display order.
	Columns []string `json:"columnas"`

	// GeneratedAt is when the document was built.
	GeneratedAt time.Time `json:"fecha_generacion"`

	// TotalRecords always equals len(Records).
	TotalRecords int `json:"total_registros"`

	// System identifies the producing application and version.
	System string `json:"sistema"`
}

// DashboardStats are the aggregate counts shown on the operator dashboard.
type DashboardStats struct {
	TotalUsers     int `json:"total_usuarios"`
	TotalRequests  int `json:"total_solicitudes"`
	TotalPoints    int `json:"total_puntos"`
	TotalInquiries int `json:"total_consultas"`
	ActivePoints   int `json:"puntos_activos"`
	RequestsToday  int `json:"solicitudes_hoy"`
}
