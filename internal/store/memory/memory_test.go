package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/types"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()

	first, err := users.Create(ctx, types.User{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, types.RoleRequester, first.Role)

	_, err = users.Create(ctx, types.User{Name: "Otra Ana", Email: "ana@example.com"})
	assert.True(t, errors.Is(err, store.ErrConflict))

	second, err := users.Create(ctx, types.User{Name: "Luis", Email: "luis@example.com", Role: types.RoleAdvisor})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)

	found, err := users.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = users.GetByField(ctx, "email", "nobody@example.com")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	advisors, err := users.Count(ctx, store.Where(store.Eq("tipo_usuario", types.RoleAdvisor)))
	require.NoError(t, err)
	assert.Equal(t, 1, advisors)

	_, err = users.Filter(ctx, store.Where(store.Eq("password", "x")))
	var unknown store.ErrUnknownColumn
	assert.True(t, errors.As(err, &unknown))
}

func TestRequestRepositoryStoresDetailsWithParent(t *testing.T) {
	ctx := context.Background()
	requests := NewStore().Requests()

	created, err := requests.Create(ctx, types.Request{
		Code:        "SOL-0001",
		Type:        "uso_domestico",
		RequesterID: 1,
		Details: []types.RequestDetail{
			{PointID: 1, Quantity: decimal.NewFromInt(20)},
			{PointID: 2, Quantity: decimal.RequireFromString("12.50")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	require.Len(t, created.Details, 2)
	assert.Equal(t, created.ID, created.Details[1].RequestID)

	details, err := requests.Details(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, details, 2)

	_, err = requests.Create(ctx, types.Request{Code: "SOL-0001", Type: "x", RequesterID: 2})
	assert.True(t, errors.Is(err, store.ErrConflict))
	assert.Equal(t, 2, requests.DetailCount())
}

func TestRequestRepositoryCountSince(t *testing.T) {
	ctx := context.Background()
	requests := NewStore().Requests()
	now := time.Now()

	_, err := requests.Create(ctx, types.Request{Code: "OLD-0001", Type: "x", RequesterID: 1, CreatedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = requests.Create(ctx, types.Request{Code: "NEW-0001", Type: "x", RequesterID: 1, CreatedAt: now})
	require.NoError(t, err)

	total, err := requests.Count(ctx, store.Where(store.Gte("fecha_solicitud", now.Add(-time.Hour))))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestFailWith(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.FailWith(ErrUnavailable)

	_, err := s.SupplyPoints().List(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = s.Inquiries().Create(ctx, types.Inquiry{Description: "x", UserID: 1})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Ping(ctx), ErrUnavailable)

	s.FailWith(nil)
	assert.NoError(t, s.Ping(ctx))
}

func TestCreateWithAvailabilityIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	points := s.SupplyPoints()
	point := types.SupplyPoint{Code: "PUNTO-001", Address: "Centro", Capacity: decimal.NewFromInt(100)}

	_, err := points.CreateWithAvailability(ctx, point, types.Availability{Quantity: decimal.NewFromInt(-5)})
	require.Error(t, err)
	total, err := points.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, total)

	created, err := points.CreateWithAvailability(ctx, point, types.Availability{Quantity: decimal.NewFromInt(80)})
	require.NoError(t, err)
	assert.Equal(t, types.PointActive, created.Status)

	records, err := s.Availability().Filter(ctx, store.Where(store.Eq("id_punto", created.ID)))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.AvailabilityAvailable, records[0].Status)
	assert.True(t, records[0].Quantity.Equal(decimal.NewFromInt(80)))

	_, err = points.CreateWithAvailability(ctx, point, types.Availability{Quantity: decimal.NewFromInt(80)})
	assert.True(t, errors.Is(err, store.ErrConflict))
	records, err = s.Availability().Filter(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
