package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aquagest/apiserver/internal/apperr"
	"github.com/aquagest/apiserver/internal/session"
	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/internal/validation"
	"github.com/aquagest/apiserver/types"
)

// RequestService handles water requests and their detail lines.
type RequestService struct {
	requests RequestRepository
	points   SupplyPointRepository
	gate     *session.Gate
	events   Publisher
	now      func() time.Time

	validator       validation.Validator[validation.NewRequest]
	detailValidator validation.Validator[validation.DetailLine]
}

func NewRequestService(requests RequestRepository, points SupplyPointRepository, gate *session.Gate, events Publisher) *RequestService {
	return &RequestService{
		requests:        requests,
		points:          points,
		gate:            gate,
		events:          events,
		now:             time.Now,
		validator:       validation.RequestValidator{},
		detailValidator: validation.DetailValidator{},
	}
}

// Create stores a request for the logged-in user. Every detail line is
// checked before anything is written, and the request is stored together
// with its lines or not at all.
func (s *RequestService) Create(ctx context.Context, cmd validation.NewRequest) (types.Request, error) {
	principal, err := s.gate.RequireAuthenticated()
	if err != nil {
		return types.Request{}, apperr.Unauthorized("Debe iniciar sesión primero")
	}

	cmd.Code = strings.TrimSpace(cmd.Code)
	cmd.Type = strings.TrimSpace(cmd.Type)
	if ok, msg := s.validator.Validate(cmd); !ok {
		return types.Request{}, apperr.Validation(msg)
	}
	if len(cmd.Details) == 0 {
		return types.Request{}, apperr.Validation("Campo requerido: detalles")
	}

	details := make([]types.RequestDetail, 0, len(cmd.Details))
	for i, line := range cmd.Details {
		if ok, msg := s.detailValidator.Validate(line); !ok {
			return types.Request{}, apperr.Validation(fmt.Sprintf("Detalle %d: %s", i+1, msg))
		}
		if err := s.pointExists(ctx, line.PointID); err != nil {
			return types.Request{}, err
		}
		details = append(details, types.RequestDetail{PointID: line.PointID, Quantity: line.Quantity})
	}

	request, err := s.requests.Create(ctx, types.Request{
		Code:        cmd.Code,
		Type:        cmd.Type,
		RequesterID: principal.UserID,
		CreatedAt:   s.now(),
		Details:     details,
	})
	if err != nil {
		return types.Request{}, writeError(err, "El código de solicitud ya existe")
	}

	s.events.Publish(ctx, types.EventNewRequest, map[string]any{
		"solicitud_id": request.ID,
		"codigo":       request.Code,
		"usuario_id":   principal.UserID,
	})
	return request, nil
}

func (s *RequestService) pointExists(ctx context.Context, pointID int) error {
	_, err := s.points.GetByField(ctx, "id_punto", pointID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.Validation(fmt.Sprintf("Punto de suministro no encontrado: %d", pointID))
	default:
		return apperr.Storage("failed to load supply point", err)
	}
}

// List returns the requests visible to the current principal: requesters
// see their own, staff see all. Without a session, or when storage fails,
// the list is empty.
func (s *RequestService) List(ctx context.Context) []types.Request {
	principal, ok := s.gate.Current()
	if !ok {
		return []types.Request{}
	}

	var (
		requests []types.Request
		err      error
	)
	if principal.SeesAll() {
		requests, err = s.requests.List(ctx)
	} else {
		requests, err = s.requests.Filter(ctx, store.Where(store.Eq("id_usuario_solicitante", principal.UserID)))
	}
	if err != nil {
		log.Error().Err(err).Int("user_id", principal.UserID).Msg("failed to list requests")
		return []types.Request{}
	}
	return requests
}

// Get returns a single request with its detail lines. Requests hidden from
// the current principal are reported as not found.
func (s *RequestService) Get(ctx context.Context, id int) (types.Request, error) {
	principal, err := s.gate.RequireAuthenticated()
	if err != nil {
		return types.Request{}, err
	}

	request, err := s.requests.GetByField(ctx, "id_solicitud", id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Request{}, apperr.NotFound("Solicitud no encontrada")
		}
		return types.Request{}, apperr.Storage("failed to load request", err)
	}
	if !principal.SeesAll() && request.RequesterID != principal.UserID {
		return types.Request{}, apperr.NotFound("Solicitud no encontrada")
	}

	details, err := s.requests.Details(ctx, request.ID)
	if err != nil {
		return types.Request{}, apperr.Storage("failed to load request details", err)
	}
	request.Details = details
	return request, nil
}
