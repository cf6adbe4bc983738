package types

import "time"

// Inquiry statuses.
const (
	InquiryPending  = "PENDIENTE"
	InquiryAnswered = "RESPONDIDA"
)

// Inquiry ("consulta") is a question raised by a user to the operator.
type Inquiry struct {
	ID          int       `json:"id_consulta" db:"id_consulta"`
	Description string    `json:"descripcion_consulta" db:"descripcion_consulta"`
	Status      string    `json:"estado_consulta" db:"estado_consulta"`
	CreatedAt   time.Time `json:"fecha_consulta" db:"fecha_consulta"`
	Answer      *string   `json:"respuesta" db:"respuesta"`
	UserID      int       `json:"usuarios_id_usuario" db:"usuarios_id_usuario"`
}
