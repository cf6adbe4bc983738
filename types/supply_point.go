package types

import "github.com/shopspring/decimal"

// Supply point statuses.
const (
	PointActive   = "ACTIVO"
	PointInactive = "INACTIVO"
)

// Availability statuses.
const (
	AvailabilityAvailable   = "DISPONIBLE"
	AvailabilityUnavailable = "NO_DISPONIBLE"
)

// SupplyPoint is a physical water distribution location.
type SupplyPoint struct {
	ID       int             `json:"id_punto" db:"id_punto"`
	Code     string          `json:"codigo_punto" db:"codigo_punto"`
	Status   string          `json:"estado" db:"estado"`
	Address  string          `json:"direccion" db:"direccion"`
	Capacity decimal.Decimal `json:"capacidad" db:"capacidad"`
}

// Availability is the currently allocatable quantity at a supply point.
// Quantity should not exceed the point's capacity; storage does not check it.
type Availability struct {
	ID       int             `json:"id_disponibilidad" db:"id_disponibilidad"`
	PointID  int             `json:"id_punto" db:"id_punto"`
	Status   string          `json:"estado_disponibilidad" db:"estado_disponibilidad"`
	Quantity decimal.Decimal `json:"cantidad_disponible" db:"cantidad_disponible"`
}
