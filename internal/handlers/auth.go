package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aquagest/apiserver/internal/services"
	"github.com/aquagest/apiserver/internal/validation"
	"github.com/aquagest/apiserver/types"
)

// AuthHandler provides registration and session endpoints.
type AuthHandler struct {
	userService *services.UserService
}

func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// AuthRouter registers session routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService) {
	handler := NewAuthHandler(userService)

	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.Get("/current-user", handler.CurrentUser)
}

// UserRouter registers account routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService) {
	handler := NewAuthHandler(userService)

	r.Post("/registro", handler.Register)
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Register(r.Context(), validation.UserRegistration{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{
		Message: "✅ Usuario registrado exitosamente",
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
	})
}

// Login reads form fields email and password and opens the session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Login(r.Context(), email, password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:       "✅ Login exitoso",
		UserType:      user.Role,
		UserName:      user.Name,
		UserID:        user.ID,
		AccessGranted: true,
	})
}

// Logout clears the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.userService.Logout()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sesión cerrada"})
}

// CurrentUser reports the logged-in principal.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.userService.Current()
	if !ok {
		writeJSON(w, http.StatusOK, CurrentUserResponse{LoggedIn: false})
		return
	}
	writeJSON(w, http.StatusOK, CurrentUserResponse{
		LoggedIn: true,
		UserID:   principal.UserID,
		Email:    principal.Email,
		Role:     principal.Role,
	})
}

type RegisterRequest struct {
	Name     string `json:"nombre"`
	Surname  string `json:"apellidos"`
	Email    string `json:"email"`
	Phone    string `json:"telefono"`
	Role     string `json:"tipo_usuario"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string     `json:"message"`
	UserID  int        `json:"user_id"`
	Email   string     `json:"email"`
	Role    types.Role `json:"tipo_usuario"`
}

type LoginResponse struct {
	Message       string     `json:"message"`
	UserType      types.Role `json:"user_type"`
	UserName      string     `json:"user_name"`
	UserID        int        `json:"user_id"`
	AccessGranted bool       `json:"access_granted"`
}

type CurrentUserResponse struct {
	LoggedIn bool       `json:"logged_in"`
	UserID   int        `json:"user_id,omitempty"`
	Email    string     `json:"email,omitempty"`
	Role     types.Role `json:"tipo_usuario,omitempty"`
}
