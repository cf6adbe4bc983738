package store

import (
	"context"
	"database/sql"

	"github.com/aquagest/apiserver/types"
)

// AvailabilityTable lists the filterable columns of disponibilidad.
var AvailabilityTable = Table{
	Name:    "disponibilidad",
	Columns: []string{"id_disponibilidad", "id_punto", "estado_disponibilidad", "cantidad_disponible"},
}

const availabilitySelect = `
	SELECT id_disponibilidad, id_punto, estado_disponibilidad, cantidad_disponible
	FROM disponibilidad`

// AvailabilityRepository handles persistence for availability records.
type AvailabilityRepository struct {
	db *sql.DB
}

func NewAvailabilityRepository(db *sql.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) Create(ctx context.Context, availability types.Availability) (types.Availability, error) {
	if availability.Status == "" {
		availability.Status = types.AvailabilityAvailable
	}

	const query = `
		INSERT INTO disponibilidad (id_punto, estado_disponibilidad, cantidad_disponible)
		VALUES ($1, $2, $3)
		RETURNING id_disponibilidad`
	if err := r.db.QueryRowContext(ctx, query, availability.PointID, availability.Status, availability.Quantity).Scan(&availability.ID); err != nil {
		return types.Availability{}, translate(err)
	}
	return availability, nil
}

func (r *AvailabilityRepository) GetByField(ctx context.Context, field string, value any) (types.Availability, error) {
	records, err := r.query(ctx, Where(Eq(field, value)), " LIMIT 1")
	if err != nil {
		return types.Availability{}, err
	}
	if len(records) == 0 {
		return types.Availability{}, ErrNotFound
	}
	return records[0], nil
}

func (r *AvailabilityRepository) List(ctx context.Context) ([]types.Availability, error) {
	return r.query(ctx, nil, "")
}

func (r *AvailabilityRepository) Filter(ctx context.Context, f Filter) ([]types.Availability, error) {
	return r.query(ctx, f, "")
}

func (r *AvailabilityRepository) Count(ctx context.Context, f Filter) (int, error) {
	return AvailabilityTable.count(ctx, r.db, f)
}

func (r *AvailabilityRepository) query(ctx context.Context, f Filter, suffix string) ([]types.Availability, error) {
	clause, args, err := AvailabilityTable.where(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, availabilitySelect+clause+" ORDER BY id_disponibilidad"+suffix, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]types.Availability, 0)
	for rows.Next() {
		var record types.Availability
		if err := rows.Scan(&record.ID, &record.PointID, &record.Status, &record.Quantity); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
