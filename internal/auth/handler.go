package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oakline/wallbed-studio/internal/api"
)

// Handler exposes the auth HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates an auth handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the auth endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/auth/register", h.handleRegister)
	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/logout", h.handleLogout)
	r.Get("/api/auth/me", h.handleMe)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !api.Decode(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			api.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrEmailTaken):
			api.Error(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("Registration failed", "error", err)
			api.Error(w, http.StatusInternalServerError, "failed to register")
		}
		return
	}

	// Issue a session right away so registration logs the user in.
	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Error("Post-registration login failed", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to register")
		return
	}
	h.service.SetSessionCookie(w, session)

	api.JSON(w, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !api.Decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			api.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		slog.Error("Login failed", "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	h.service.SetSessionCookie(w, session)

	// The guard preserves the originally requested path; hand it back
	// so the client can finish the redirect.
	redirectTo := r.URL.Query().Get("redirectTo")
	if redirectTo == "" {
		redirectTo = "/"
	}
	api.JSON(w, http.StatusOK, map[string]string{"redirectTo": redirectTo})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			slog.Error("Logout failed", "error", err)
		}
	}
	h.service.ClearSessionCookie(w)
	api.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		api.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	api.JSON(w, http.StatusOK, user)
}
