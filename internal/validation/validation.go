// Package validation holds the input checks that run before any persistence.
//
// Every strategy answers with (valid, message); the message names the
// missing field or the failed rule and is shown to the caller as is.
package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MinPasswordLength    = 4
	MinRequestCodeLength = 5
	MaxInquiryLength     = 100
)

// Validator checks a command of type C.
type Validator[C any] interface {
	Validate(cmd C) (bool, string)
}

// Func adapts a plain function to Validator.
type Func[C any] func(cmd C) (bool, string)

func (f Func[C]) Validate(cmd C) (bool, string) {
	return f(cmd)
}

// UserRegistration is the command checked by RegistrationValidator.
type UserRegistration struct {
	Name     string
	Surname  string
	Email    string
	Phone    string
	Role     string
	Password string
}

// RegistrationValidator checks new user accounts.
type RegistrationValidator struct{}

func (RegistrationValidator) Validate(cmd UserRegistration) (bool, string) {
	if ok, msg := required(
		field{"nombre", cmd.Name},
		field{"email", cmd.Email},
		field{"password", cmd.Password},
	); !ok {
		return false, msg
	}
	if !strings.Contains(cmd.Email, "@") {
		return false, "Email inválido"
	}
	if utf8.RuneCountInString(cmd.Password) < MinPasswordLength {
		return false, "Contraseña muy corta (mínimo 4 caracteres)"
	}
	return true, "Usuario válido"
}

// NewRequest is the command checked by RequestValidator.
type NewRequest struct {
	Code    string
	Type    string
	Details []DetailLine
}

// DetailLine is one requested (point, quantity) pair.
type DetailLine struct {
	PointID  int
	Quantity decimal.Decimal
}

// RequestValidator checks the request header fields.
type RequestValidator struct{}

func (RequestValidator) Validate(cmd NewRequest) (bool, string) {
	if ok, msg := required(
		field{"codigo_solicitud", cmd.Code},
		field{"tipo_solicitud", cmd.Type},
	); !ok {
		return false, msg
	}
	if utf8.RuneCountInString(cmd.Code) < MinRequestCodeLength {
		return false, "Código muy corto (mínimo 5 caracteres)"
	}
	return true, "Solicitud válida"
}

// DetailValidator checks a single detail line.
type DetailValidator struct{}

func (DetailValidator) Validate(line DetailLine) (bool, string) {
	if line.PointID <= 0 {
		return false, "Campo requerido: id_punto"
	}
	if !line.Quantity.IsPositive() {
		return false, "La cantidad solicitada debe ser mayor que cero"
	}
	return true, "Detalle válido"
}

// NewSupplyPoint is the command checked by SupplyPointValidator.
type NewSupplyPoint struct {
	Code     string
	Address  string
	Status   string
	Capacity decimal.Decimal
}

type SupplyPointValidator struct{}

func (SupplyPointValidator) Validate(cmd NewSupplyPoint) (bool, string) {
	if ok, msg := required(
		field{"codigo_punto", cmd.Code},
		field{"direccion", cmd.Address},
	); !ok {
		return false, msg
	}
	if !cmd.Capacity.IsPositive() {
		return false, "La capacidad debe ser mayor que cero"
	}
	return true, "Punto válido"
}

// NewInquiry is the command checked by InquiryValidator.
type NewInquiry struct {
	Description string
}

type InquiryValidator struct{}

func (InquiryValidator) Validate(cmd NewInquiry) (bool, string) {
	if ok, msg := required(field{"descripcion_consulta", cmd.Description}); !ok {
		return false, msg
	}
	if utf8.RuneCountInString(cmd.Description) > MaxInquiryLength {
		return false, "Descripción muy larga (máximo 100 caracteres)"
	}
	return true, "Consulta válida"
}

type field struct {
	name  string
	value string
}

func required(fields ...field) (bool, string) {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return false, "Campo requerido: " + f.name
		}
	}
	return true, ""
}
