package handlers

import (
	"net/http"

	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/diagnosis/estate-listings/internal/http/middleware"
	"github.com/diagnosis/estate-listings/internal/http/response"
	"github.com/diagnosis/estate-listings/internal/service"
	"github.com/go-chi/chi/v5"
)

// AdminPropertyHandler serves the full catalog; every route requires an admin token.
type AdminPropertyHandler struct {
	Catalog service.CatalogService
	guard   *middleware.Guard
}

func NewAdminPropertyHandler(catalog service.CatalogService, guard *middleware.Guard) *AdminPropertyHandler {
	return &AdminPropertyHandler{Catalog: catalog, guard: guard}
}

func (h *AdminPropertyHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.guard.RequireAdmin)
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/bulk-delete", h.bulkDelete)
	r.Get("/{id}", h.getByID)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	return r
}

func actorID(r *http.Request) string {
	id, _ := middleware.Identity(r.Context())
	return id.UserID
}

func (h *AdminPropertyHandler) list(w http.ResponseWriter, r *http.Request) {
	props, err := h.Catalog.ListAll(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}

func (h *AdminPropertyHandler) getByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminPropertyHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.PropertyInput
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := h.Catalog.Create(r.Context(), actorID(r), &in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminPropertyHandler) update(w http.ResponseWriter, r *http.Request) {
	var in domain.PropertyInput
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := h.Catalog.Update(r.Context(), actorID(r), chi.URLParam(r, "id"), &in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminPropertyHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Property deleted successfully"})
}

// POST /admin/properties/bulk-delete {"ids": [...]}
func (h *AdminPropertyHandler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkDeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.Catalog.DeleteMany(r.Context(), actorID(r), &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": n,
		"message": "Properties deleted successfully",
	})
}
