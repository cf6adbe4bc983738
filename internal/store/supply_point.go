package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aquagest/apiserver/types"
)

// SupplyPointsTable lists the filterable columns of puntos_suministro.
var SupplyPointsTable = Table{
	Name:    "puntos_suministro",
	Columns: []string{"id_punto", "codigo_punto", "estado", "direccion", "capacidad"},
}

const supplyPointSelect = `
	SELECT id_punto, codigo_punto, estado, direccion, capacidad
	FROM puntos_suministro`

// SupplyPointRepository handles persistence for supply points.
type SupplyPointRepository struct {
	db *sql.DB
}

func NewSupplyPointRepository(db *sql.DB) *SupplyPointRepository {
	return &SupplyPointRepository{db: db}
}

func (r *SupplyPointRepository) Create(ctx context.Context, point types.SupplyPoint) (types.SupplyPoint, error) {
	if point.Status == "" {
		point.Status = types.PointActive
	}

	const query = `
		INSERT INTO puntos_suministro (codigo_punto, estado, direccion, capacidad)
		VALUES ($1, $2, $3, $4)
		RETURNING id_punto`
	if err := r.db.QueryRowContext(ctx, query, point.Code, point.Status, point.Address, point.Capacity).Scan(&point.ID); err != nil {
		return types.SupplyPoint{}, translate(err)
	}
	return point, nil
}

// CreateWithAvailability stores point and its initial availability record in
// one transaction. availability.PointID is set from the new point.
func (r *SupplyPointRepository) CreateWithAvailability(ctx context.Context, point types.SupplyPoint, availability types.Availability) (types.SupplyPoint, error) {
	if point.Status == "" {
		point.Status = types.PointActive
	}
	if availability.Status == "" {
		availability.Status = types.AvailabilityAvailable
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.SupplyPoint{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertPoint = `
		INSERT INTO puntos_suministro (codigo_punto, estado, direccion, capacidad)
		VALUES ($1, $2, $3, $4)
		RETURNING id_punto`
	if err := tx.QueryRowContext(ctx, insertPoint, point.Code, point.Status, point.Address, point.Capacity).Scan(&point.ID); err != nil {
		return types.SupplyPoint{}, translate(err)
	}

	const insertAvailability = `
		INSERT INTO disponibilidad (id_punto, estado_disponibilidad, cantidad_disponible)
		VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertAvailability, point.ID, availability.Status, availability.Quantity); err != nil {
		return types.SupplyPoint{}, fmt.Errorf("insert availability for point %s: %w", point.Code, translate(err))
	}

	if err := tx.Commit(); err != nil {
		return types.SupplyPoint{}, err
	}
	return point, nil
}

func (r *SupplyPointRepository) GetByField(ctx context.Context, field string, value any) (types.SupplyPoint, error) {
	points, err := r.query(ctx, Where(Eq(field, value)), " LIMIT 1")
	if err != nil {
		return types.SupplyPoint{}, err
	}
	if len(points) == 0 {
		return types.SupplyPoint{}, ErrNotFound
	}
	return points[0], nil
}

func (r *SupplyPointRepository) List(ctx context.Context) ([]types.SupplyPoint, error) {
	return r.query(ctx, nil, "")
}

func (r *SupplyPointRepository) Filter(ctx context.Context, f Filter) ([]types.SupplyPoint, error) {
	return r.query(ctx, f, "")
}

func (r *SupplyPointRepository) Count(ctx context.Context, f Filter) (int, error) {
	return SupplyPointsTable.count(ctx, r.db, f)
}

func (r *SupplyPointRepository) query(ctx context.Context, f Filter, suffix string) ([]types.SupplyPoint, error) {
	clause, args, err := SupplyPointsTable.where(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, supplyPointSelect+clause+" ORDER BY id_punto"+suffix, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]types.SupplyPoint, 0)
	for rows.Next() {
		var point types.SupplyPoint
		if err := rows.Scan(&point.ID, &point.Code, &point.Status, &point.Address, &point.Capacity); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}
