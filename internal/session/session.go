// Package session holds the process-wide login state.
//
// There is a single current principal shared by every caller; each
// successful login replaces it, so the last login wins.
package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/aquagest/apiserver/internal/apperr"
	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/types"
)

// Principal identifies the logged-in user.
type Principal struct {
	UserID int        `json:"user_id"`
	Email  string     `json:"email"`
	Role   types.Role `json:"tipo_usuario"`
}

// SeesAll reports whether p may read every user's requests and inquiries.
// Requesters only see their own.
func (p Principal) SeesAll() bool {
	return p.Role != types.RoleRequester
}

// UserLookup resolves a login email to a stored account.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
}

// Publisher records domain events.
type Publisher interface {
	Publish(ctx context.Context, eventType types.EventType, payload map[string]any) types.Event
}

type Gate struct {
	mu      sync.RWMutex
	current *Principal

	users  UserLookup
	events Publisher
}

func NewGate(users UserLookup, events Publisher) *Gate {
	return &Gate{users: users, events: events}
}

// Login checks credential against the stored hash and, on success, makes
// the user the current principal.
func (g *Gate) Login(ctx context.Context, email, credential string) (types.User, error) {
	user, err := g.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.Unauthorized("user not found")
		}
		return types.User{}, apperr.Storage("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return types.User{}, apperr.Unauthorized("wrong credential")
	}

	g.mu.Lock()
	g.current = &Principal{UserID: user.ID, Email: user.Email, Role: user.Role}
	g.mu.Unlock()

	if g.events != nil {
		g.events.Publish(ctx, types.EventUserLogin, map[string]any{
			"user_id": user.ID,
			"email":   user.Email,
		})
	}
	return user, nil
}

// Logout clears the current principal.
func (g *Gate) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = nil
}

// Current returns the current principal, if any.
func (g *Gate) Current() (Principal, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil {
		return Principal{}, false
	}
	return *g.current, true
}

func (g *Gate) RequireAuthenticated() (Principal, error) {
	principal, ok := g.Current()
	if !ok {
		return Principal{}, apperr.Unauthorized("Usuario no autenticado")
	}
	return principal, nil
}

// RequireRole fails with Forbidden unless the current principal holds one
// of roles.
func (g *Gate) RequireRole(roles ...types.Role) (Principal, error) {
	principal, err := g.RequireAuthenticated()
	if err != nil {
		return Principal{}, err
	}
	if !slices.Contains(roles, principal.Role) {
		return Principal{}, apperr.Forbidden("Permisos insuficientes")
	}
	return principal, nil
}

// HashCredential returns the bcrypt hash stored for a new account.
func HashCredential(credential string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
