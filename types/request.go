package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request ("solicitud") is a user-submitted demand for water from one or
// more supply points.
type Request struct {
	// ID is the unique identifier of the request.
	ID int `json:"id_solicitud" db:"id_solicitud"`

	// Code is the human-assigned, unique request code.
	Code string `json:"codigo_solicitud" db:"codigo_solicitud"`

	// Type is a free-form label describing the reason of the request.
	Type string `json:"tipo_solicitud" db:"tipo_solicitud"`

	// RequesterID identifies the user who submitted the request.
	RequesterID int `json:"id_usuario_solicitante" db:"id_usuario_solicitante"`

	// CreatedAt is assigned by the server when the request is stored.
	CreatedAt time.Time `json:"fecha_solicitud" db:"fecha_solicitud"`

	// AdvisorID identifies the advisor assigned to the request, if any.
	AdvisorID *int `json:"id_asesor" db:"id_asesor"`

	// Details holds the detail lines when they were loaded together with
	// the request. List views leave it empty.
	Details []RequestDetail `json:"detalles,omitempty" db:"-"`
}

// RequestDetail is one (supply point, quantity) line of a request.
type RequestDetail struct {
	ID        int             `json:"id_detalle" db:"id_detalle"`
	RequestID int             `json:"id_solicitud" db:"id_solicitud"`
	PointID   int             `json:"id_punto" db:"id_punto"`
	Quantity  decimal.Decimal `json:"cantidad_solicitada" db:"cantidad_solicitada"`
}
