package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/aquagest/apiserver/internal/apperr"
	"github.com/aquagest/apiserver/internal/session"
	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/internal/validation"
	"github.com/aquagest/apiserver/types"
)

// initialAvailability is the share of capacity a new point starts with.
var initialAvailability = decimal.RequireFromString("0.8")

// SupplyPointService handles supply points and their availability.
type SupplyPointService struct {
	points       SupplyPointRepository
	availability AvailabilityRepository
	gate         *session.Gate
	validator    validation.Validator[validation.NewSupplyPoint]
}

func NewSupplyPointService(points SupplyPointRepository, availability AvailabilityRepository, gate *session.Gate) *SupplyPointService {
	return &SupplyPointService{
		points:       points,
		availability: availability,
		gate:         gate,
		validator:    validation.SupplyPointValidator{},
	}
}

// List returns every supply point, or an empty list when storage fails.
func (s *SupplyPointService) List(ctx context.Context) []types.SupplyPoint {
	points, err := s.points.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list supply points")
		return []types.SupplyPoint{}
	}
	return points
}

// Create registers a point and its initial availability. Only resident
// staff may create points.
func (s *SupplyPointService) Create(ctx context.Context, cmd validation.NewSupplyPoint) (types.SupplyPoint, error) {
	if _, err := s.gate.RequireRole(types.RoleResidentStaff); err != nil {
		return types.SupplyPoint{}, err
	}
	return s.create(ctx, cmd)
}

func (s *SupplyPointService) create(ctx context.Context, cmd validation.NewSupplyPoint) (types.SupplyPoint, error) {
	cmd.Code = strings.TrimSpace(cmd.Code)
	cmd.Address = strings.TrimSpace(cmd.Address)
	if ok, msg := s.validator.Validate(cmd); !ok {
		return types.SupplyPoint{}, apperr.Validation(msg)
	}

	point, err := s.points.CreateWithAvailability(ctx, types.SupplyPoint{
		Code:     cmd.Code,
		Status:   strings.ToUpper(strings.TrimSpace(cmd.Status)),
		Address:  cmd.Address,
		Capacity: cmd.Capacity,
	}, types.Availability{
		Status:   types.AvailabilityAvailable,
		Quantity: cmd.Capacity.Mul(initialAvailability),
	})
	if err != nil {
		return types.SupplyPoint{}, writeError(err, "El código de punto ya existe")
	}
	return point, nil
}

// Availability lists the availability records of a point. A missing point
// is NotFound; storage failures yield an empty list.
func (s *SupplyPointService) Availability(ctx context.Context, pointID int) ([]types.Availability, error) {
	if _, err := s.points.GetByField(ctx, "id_punto", pointID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Punto de suministro no encontrado")
		}
		log.Error().Err(err).Int("id_punto", pointID).Msg("failed to load supply point")
		return []types.Availability{}, nil
	}

	records, err := s.availability.Filter(ctx, store.Where(store.Eq("id_punto", pointID)))
	if err != nil {
		log.Error().Err(err).Int("id_punto", pointID).Msg("failed to list availability")
		return []types.Availability{}, nil
	}
	return records, nil
}

// SeedPoint is one supply point created by Seed.
type SeedPoint struct {
	Code     string
	Address  string
	Capacity decimal.Decimal
}

// DefaultSeedPoints are the sample points loaded on a fresh installation.
var DefaultSeedPoints = []SeedPoint{
	{Code: "PUNTO-001", Address: "Plaza Principal - Centro Ciudad", Capacity: decimal.NewFromInt(1000)},
	{Code: "PUNTO-002", Address: "Parque Norte - Zona Residencial", Capacity: decimal.NewFromInt(750)},
	{Code: "PUNTO-003", Address: "Centro Comercial Sur", Capacity: decimal.NewFromInt(500)},
}

// Seed creates the given points when no point exists yet. It returns the
// number of points created.
func (s *SupplyPointService) Seed(ctx context.Context, seeds []SeedPoint) (int, error) {
	existing, err := s.points.Count(ctx, nil)
	if err != nil {
		return 0, apperr.Storage("failed to count supply points", err)
	}
	if existing > 0 {
		return 0, nil
	}

	for i, seed := range seeds {
		if _, err := s.create(ctx, validation.NewSupplyPoint{
			Code:     seed.Code,
			Address:  seed.Address,
			Status:   types.PointActive,
			Capacity: seed.Capacity,
		}); err != nil {
			return i, err
		}
	}
	return len(seeds), nil
}
