package store

import (
	"context"
	"database/sql"

	"github.com/aquagest/apiserver/types"
)

// UsersTable lists the filterable columns of usuarios.
var UsersTable = Table{
	Name:    "usuarios",
	Columns: []string{"id_usuario", "nombre", "apellidos", "email", "telefono", "tipo_usuario"},
}

const userSelect = `
	SELECT id_usuario, nombre, apellidos, email, telefono, tipo_usuario, password
	FROM usuarios`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.Role == "" {
		user.Role = types.RoleRequester
	}

	const query = `
		INSERT INTO usuarios (nombre, apellidos, email, telefono, tipo_usuario, password)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id_usuario`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Surname,
		user.Email,
		user.Phone,
		string(user.Role),
		user.PasswordHash,
	).Scan(&user.ID); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

// GetByField returns the first user whose field equals value.
func (r *UserRepository) GetByField(ctx context.Context, field string, value any) (types.User, error) {
	users, err := r.query(ctx, Where(Eq(field, value)), " LIMIT 1")
	if err != nil {
		return types.User{}, err
	}
	if len(users) == 0 {
		return types.User{}, ErrNotFound
	}
	return users[0], nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.GetByField(ctx, "email", email)
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	return r.query(ctx, nil, "")
}

func (r *UserRepository) Filter(ctx context.Context, f Filter) ([]types.User, error) {
	return r.query(ctx, f, "")
}

func (r *UserRepository) Count(ctx context.Context, f Filter) (int, error) {
	return UsersTable.count(ctx, r.db, f)
}

func (r *UserRepository) query(ctx context.Context, f Filter, suffix string) ([]types.User, error) {
	clause, args, err := UsersTable.where(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, userSelect+clause+" ORDER BY id_usuario"+suffix, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		var user types.User
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Surname,
			&user.Email,
			&user.Phone,
			&user.Role,
			&user.PasswordHash,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
