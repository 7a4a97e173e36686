package handlers

import (
	"net/http"

	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/diagnosis/estate-listings/internal/http/middleware"
	"github.com/diagnosis/estate-listings/internal/http/response"
	"github.com/diagnosis/estate-listings/internal/service"
	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	Auth  service.AuthService
	guard *middleware.Guard
	limit func(http.Handler) http.Handler
}

func NewAuthHandler(auth service.AuthService, guard *middleware.Guard, limit func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{Auth: auth, guard: guard, limit: limit}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		if h.limit != nil {
			r.Use(h.limit)
		}
		r.Post("/signup", h.signup)
		r.Post("/login", h.login)
	})
	r.With(h.guard.RequireAuth).Get("/me", h.me)
	return r
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Auth.Signup(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"user":    user.ToUserInfo(),
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.Auth.Login(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /auth/me
func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.Identity(r.Context())
	user, err := h.Auth.Profile(r.Context(), id.UserID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.ToUserInfo())
}
