package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/aquagest/apiserver/types"
)

// InquiriesTable lists the filterable columns of consultas.
var InquiriesTable = Table{
	Name:    "consultas",
	Columns: []string{"id_consulta", "descripcion_consulta", "estado_consulta", "fecha_consulta", "usuarios_id_usuario"},
}

const inquirySelect = `
	SELECT id_consulta, descripcion_consulta, estado_consulta, fecha_consulta, respuesta, usuarios_id_usuario
	FROM consultas`

// InquiryRepository handles persistence for inquiries.
type InquiryRepository struct {
	db *sql.DB
}

func NewInquiryRepository(db *sql.DB) *InquiryRepository {
	return &InquiryRepository{db: db}
}

func (r *InquiryRepository) Create(ctx context.Context, inquiry types.Inquiry) (types.Inquiry, error) {
	if inquiry.Status == "" {
		inquiry.Status = types.InquiryPending
	}
	if inquiry.CreatedAt.IsZero() {
		inquiry.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO consultas (descripcion_consulta, estado_consulta, fecha_consulta, respuesta, usuarios_id_usuario)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id_consulta`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		inquiry.Description,
		inquiry.Status,
		inquiry.CreatedAt,
		inquiry.Answer,
		inquiry.UserID,
	).Scan(&inquiry.ID); err != nil {
		return types.Inquiry{}, translate(err)
	}
	return inquiry, nil
}

func (r *InquiryRepository) GetByField(ctx context.Context, field string, value any) (types.Inquiry, error) {
	inquiries, err := r.query(ctx, Where(Eq(field, value)), " LIMIT 1")
	if err != nil {
		return types.Inquiry{}, err
	}
	if len(inquiries) == 0 {
		return types.Inquiry{}, ErrNotFound
	}
	return inquiries[0], nil
}

func (r *InquiryRepository) List(ctx context.Context) ([]types.Inquiry, error) {
	return r.query(ctx, nil, "")
}

func (r *InquiryRepository) Filter(ctx context.Context, f Filter) ([]types.Inquiry, error) {
	return r.query(ctx, f, "")
}

func (r *InquiryRepository) Count(ctx context.Context, f Filter) (int, error) {
	return InquiriesTable.count(ctx, r.db, f)
}

func (r *InquiryRepository) query(ctx context.Context, f Filter, suffix string) ([]types.Inquiry, error) {
	clause, args, err := InquiriesTable.where(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, inquirySelect+clause+" ORDER BY id_consulta"+suffix, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inquiries := make([]types.Inquiry, 0)
	for rows.Next() {
		var inquiry types.Inquiry
		if err := rows.Scan(
			&inquiry.ID,
			&inquiry.Description,
			&inquiry.Status,
			&inquiry.CreatedAt,
			&inquiry.Answer,
			&inquiry.UserID,
		); err != nil {
			return nil, err
		}
		inquiries = append(inquiries, inquiry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return inquiries, nil
}
