package types

// Role is the authorization level of a user account.
type Role string

// Supported roles. The stored values match what the web client sends.
const (
	// RoleRequester is an ordinary user who submits water requests.
	RoleRequester Role = "USUARIO"

	// RoleAdvisor manages requests on behalf of the operator.
	RoleAdvisor Role = "ASESOR"

	// RoleResidentStaff is operator staff with administrative read access.
	RoleResidentStaff Role = "RESIDENTE"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleAdvisor, RoleResidentStaff:
		return true
	default:
		return false
	}
}

// User represents a registered account in the system.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id_usuario" db:"id_usuario"`

	// Name is the user's given name.
	Name string `json:"nombre" db:"nombre"`

	// Surname is the user's family name. It may be empty.
	Surname string `json:"apellidos" db:"apellidos"`

	// Email is the unique login identifier of the user.
	Email string `json:"email" db:"email"`

	// Phone is an optional contact number.
	Phone *string `json:"telefono" db:"telefono"`

	// Role indicates the user's authorization level.
	Role Role `json:"tipo_usuario" db:"tipo_usuario"`

	// PasswordHash stores the bcrypt hash of the user's credential.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password"`
}

// FullName joins name and surname the way reports display them.
func (u User) FullName() string {
	if u.Surname == "" {
		return u.Name
	}
	return u.Name + " " + u.Surname
}
