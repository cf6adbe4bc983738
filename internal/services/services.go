// Package services composes validation, the session gate, repositories,
// the notification hub and the report factory into the use cases exposed
// by the HTTP layer.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/aquagest/apiserver/internal/apperr"
	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Count(ctx context.Context, f store.Filter) (int, error)
}

// RequestRepository defines persistence operations for requests. Create
// stores the parent row and its detail lines atomically.
type RequestRepository interface {
	Create(ctx context.Context, request types.Request) (types.Request, error)
	GetByField(ctx context.Context, field string, value any) (types.Request, error)
	List(ctx context.Context) ([]types.Request, error)
	Filter(ctx context.Context, f store.Filter) ([]types.Request, error)
	Count(ctx context.Context, f store.Filter) (int, error)
	Details(ctx context.Context, requestID int) ([]types.RequestDetail, error)
}

// SupplyPointRepository defines persistence operations for supply points.
// CreateWithAvailability stores a point and its initial availability
// atomically.
type SupplyPointRepository interface {
	Create(ctx context.Context, point types.SupplyPoint) (types.SupplyPoint, error)
	CreateWithAvailability(ctx context.Context, point types.SupplyPoint, availability types.Availability) (types.SupplyPoint, error)
	GetByField(ctx context.Context, field string, value any) (types.SupplyPoint, error)
	List(ctx context.Context) ([]types.SupplyPoint, error)
	Count(ctx context.Context, f store.Filter) (int, error)
}

type AvailabilityRepository interface {
	Filter(ctx context.Context, f store.Filter) ([]types.Availability, error)
}

type InquiryRepository interface {
	Create(ctx context.Context, inquiry types.Inquiry) (types.Inquiry, error)
	GetByField(ctx context.Context, field string, value any) (types.Inquiry, error)
	List(ctx context.Context) ([]types.Inquiry, error)
	Filter(ctx context.Context, f store.Filter) ([]types.Inquiry, error)
	Count(ctx context.Context, f store.Filter) (int, error)
}

// Publisher records domain events.
type Publisher interface {
	Publish(ctx context.Context, eventType types.EventType, payload map[string]any) types.Event
}

// Repositories bundles the storage collaborators.
type Repositories struct {
	Users        UserRepository
	Requests     RequestRepository
	SupplyPoints SupplyPointRepository
	Availability AvailabilityRepository
	Inquiries    InquiryRepository
}

// writeError turns a repository failure on a write path into an app error.
func writeError(err error, conflictMessage string) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict(conflictMessage)
	default:
		return apperr.Storage("Error interno del servidor", err)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
