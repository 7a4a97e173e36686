package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/diagnosis/estate-listings/internal/http/middleware"
	"github.com/diagnosis/estate-listings/internal/http/response"
	"github.com/diagnosis/estate-listings/internal/service"
	"github.com/diagnosis/estate-listings/pkg/logger"
	mw "github.com/diagnosis/estate-listings/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

type RouterConfig struct {
	Auth    service.AuthService
	Catalog service.CatalogService
	Guard   *middleware.Guard
	// AuthLimit wraps /auth/signup and /auth/login; nil disables limiting.
	AuthLimit   func(http.Handler) http.Handler
	CORSOrigins []string
	ServiceName string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(cfg.ServiceName))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(mw.CORS(cfg.CORSOrigins))
	r.Use(mw.Health)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	r.Mount("/auth", NewAuthHandler(cfg.Auth, cfg.Guard, cfg.AuthLimit).Routes())
	r.Mount("/properties", NewPropertyHandler(cfg.Catalog).Routes())
	r.Mount("/admin/properties", NewAdminPropertyHandler(cfg.Catalog, cfg.Guard).Routes())
	return r
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// decodeJSON reads a single JSON object; an empty or malformed body is a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			response.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", response.CodeInvalidInput)
		case errors.Is(err, io.EOF):
			response.BadRequest(w, "Request body is required")
		default:
			response.BadRequest(w, "Invalid JSON format")
		}
		return false
	}
	return true
}
