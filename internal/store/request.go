package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aquagest/apiserver/types"
)

// RequestsTable lists the filterable columns of solicitudes.
var RequestsTable = Table{
	Name:    "solicitudes",
	Columns: []string{"id_solicitud", "codigo_solicitud", "tipo_solicitud", "id_usuario_solicitante", "fecha_solicitud", "id_asesor"},
}

const requestSelect = `
	SELECT id_solicitud, codigo_solicitud, tipo_solicitud, id_usuario_solicitante, fecha_solicitud, id_asesor
	FROM solicitudes`

// RequestRepository handles persistence for requests and their detail lines.
type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create stores the request and all of its detail lines in one transaction.
// Either every row is committed or none is.
func (r *RequestRepository) Create(ctx context.Context, request types.Request) (types.Request, error) {
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Request{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertRequest = `
		INSERT INTO solicitudes (codigo_solicitud, tipo_solicitud, id_usuario_solicitante, fecha_solicitud, id_asesor)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id_solicitud`
	if err := tx.QueryRowContext(
		ctx,
		insertRequest,
		request.Code,
		request.Type,
		request.RequesterID,
		request.CreatedAt,
		request.AdvisorID,
	).Scan(&request.ID); err != nil {
		return types.Request{}, translate(err)
	}

	const insertDetail = `
		INSERT INTO detalle_solicitudes (id_solicitud, id_punto, cantidad_solicitada)
		VALUES ($1, $2, $3)
		RETURNING id_detalle`
	details := make([]types.RequestDetail, 0, len(request.Details))
	for _, detail := range request.Details {
		detail.RequestID = request.ID
		if err := tx.QueryRowContext(ctx, insertDetail, detail.RequestID, detail.PointID, detail.Quantity).Scan(&detail.ID); err != nil {
			return types.Request{}, fmt.Errorf("insert detail for point %d: %w", detail.PointID, translate(err))
		}
		details = append(details, detail)
	}

	if err := tx.Commit(); err != nil {
		return types.Request{}, err
	}

	request.Details = details
	return request, nil
}

func (r *RequestRepository) GetByField(ctx context.Context, field string, value any) (types.Request, error) {
	requests, err := r.query(ctx, Where(Eq(field, value)), " LIMIT 1")
	if err != nil {
		return types.Request{}, err
	}
	if len(requests) == 0 {
		return types.Request{}, ErrNotFound
	}
	return requests[0], nil
}

func (r *RequestRepository) List(ctx context.Context) ([]types.Request, error) {
	return r.query(ctx, nil, "")
}

func (r *RequestRepository) Filter(ctx context.Context, f Filter) ([]types.Request, error) {
	return r.query(ctx, f, "")
}

func (r *RequestRepository) Count(ctx context.Context, f Filter) (int, error) {
	return RequestsTable.count(ctx, r.db, f)
}

// Details returns the detail lines of a request ordered by id.
func (r *RequestRepository) Details(ctx context.Context, requestID int) ([]types.RequestDetail, error) {
	const query = `
		SELECT id_detalle, id_solicitud, id_punto, cantidad_solicitada
		FROM detalle_solicitudes
		WHERE id_solicitud = $1
		ORDER BY id_detalle`
	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]types.RequestDetail, 0)
	for rows.Next() {
		var detail types.RequestDetail
		if err := rows.Scan(&detail.ID, &detail.RequestID, &detail.PointID, &detail.Quantity); err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func (r *RequestRepository) query(ctx context.Context, f Filter, suffix string) ([]types.Request, error) {
	clause, args, err := RequestsTable.where(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, requestSelect+clause+" ORDER BY id_solicitud"+suffix, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]types.Request, 0)
	for rows.Next() {
		var request types.Request
		if err := rows.Scan(
			&request.ID,
			&request.Code,
			&request.Type,
			&request.RequesterID,
			&request.CreatedAt,
			&request.AdvisorID,
		); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}
