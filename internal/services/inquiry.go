package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aquagest/apiserver/internal/apperr"
	"github.com/aquagest/apiserver/internal/session"
	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/internal/validation"
	"github.com/aquagest/apiserver/types"
)

// InquiryService handles user inquiries.
type InquiryService struct {
	repo      InquiryRepository
	gate      *session.Gate
	now       func() time.Time
	validator validation.Validator[validation.NewInquiry]
}

func NewInquiryService(repo InquiryRepository, gate *session.Gate) *InquiryService {
	return &InquiryService{
		repo:      repo,
		gate:      gate,
		now:       time.Now,
		validator: validation.InquiryValidator{},
	}
}

// Create files an inquiry on behalf of the logged-in user.
func (s *InquiryService) Create(ctx context.Context, cmd validation.NewInquiry) (types.Inquiry, error) {
	principal, err := s.gate.RequireAuthenticated()
	if err != nil {
		return types.Inquiry{}, apperr.Unauthorized("Debe iniciar sesión primero")
	}

	cmd.Description = strings.TrimSpace(cmd.Description)
	if ok, msg := s.validator.Validate(cmd); !ok {
		return types.Inquiry{}, apperr.Validation(msg)
	}

	inquiry, err := s.repo.Create(ctx, types.Inquiry{
		Description: cmd.Description,
		Status:      types.InquiryPending,
		CreatedAt:   s.now(),
		UserID:      principal.UserID,
	})
	if err != nil {
		return types.Inquiry{}, apperr.Storage("Error interno del servidor", err)
	}
	return inquiry, nil
}

// List is scoped like request listing.
func (s *InquiryService) List(ctx context.Context) []types.Inquiry {
	principal, ok := s.gate.Current()
	if !ok {
		return []types.Inquiry{}
	}

	var (
		inquiries []types.Inquiry
		err       error
	)
	if principal.SeesAll() {
		inquiries, err = s.repo.List(ctx)
	} else {
		inquiries, err = s.repo.Filter(ctx, store.Where(store.Eq("usuarios_id_usuario", principal.UserID)))
	}
	if err != nil {
		log.Error().Err(err).Int("user_id", principal.UserID).Msg("failed to list inquiries")
		return []types.Inquiry{}
	}
	return inquiries
}
