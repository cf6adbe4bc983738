package services

import (
	"context"
	"errors"
	"strings"

	"github.com/aquagest/apiserver/internal/apperr"
	"github.com/aquagest/apiserver/internal/session"
	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/internal/validation"
	"github.com/aquagest/apiserver/types"
)

const duplicateEmail = "El email ya está registrado"

// UserService encapsulates account use-cases.
type UserService struct {
	repo      UserRepository
	gate      *session.Gate
	events    Publisher
	validator validation.Validator[validation.UserRegistration]
}

func NewUserService(repo UserRepository, gate *session.Gate, events Publisher) *UserService {
	return &UserService{
		repo:      repo,
		gate:      gate,
		events:    events,
		validator: validation.RegistrationValidator{},
	}
}

// Register validates cmd, checks the email is free, stores the account with
// a hashed credential and publishes user_registered.
func (s *UserService) Register(ctx context.Context, cmd validation.UserRegistration) (types.User, error) {
	cmd.Email = strings.TrimSpace(cmd.Email)
	cmd.Name = strings.TrimSpace(cmd.Name)

	if ok, msg := s.validator.Validate(cmd); !ok {
		return types.User{}, apperr.Validation(msg)
	}

	role := types.Role(strings.ToUpper(strings.TrimSpace(cmd.Role)))
	if role == "" {
		role = types.RoleRequester
	}
	if !role.Valid() {
		return types.User{}, apperr.Validation("Tipo de usuario inválido")
	}

	if _, err := s.repo.GetByEmail(ctx, cmd.Email); err == nil {
		return types.User{}, apperr.Conflict(duplicateEmail)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, apperr.Storage("failed to check user", err)
	}

	hashed, err := session.HashCredential(cmd.Password)
	if err != nil {
		return types.User{}, apperr.Storage("failed to create user", err)
	}

	user := types.User{
		Name:         cmd.Name,
		Surname:      strings.TrimSpace(cmd.Surname),
		Email:        cmd.Email,
		Role:         role,
		PasswordHash: hashed,
	}
	if phone := strings.TrimSpace(cmd.Phone); phone != "" {
		user.Phone = &phone
	}

	// The unique index still guards against a concurrent registration that
	// passed the lookup above.
	user, err = s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, writeError(err, duplicateEmail)
	}

	s.events.Publish(ctx, types.EventUserRegistered, map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
		"tipo":    string(user.Role),
	})
	return user, nil
}

// Login authenticates through the session gate.
func (s *UserService) Login(ctx context.Context, email, credential string) (types.User, error) {
	return s.gate.Login(ctx, email, credential)
}

func (s *UserService) Logout() {
	s.gate.Logout()
}

// Current returns the logged-in principal, if any.
func (s *UserService) Current() (session.Principal, bool) {
	return s.gate.Current()
}
