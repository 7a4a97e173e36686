package handlers

import (
	"net/http"

	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/diagnosis/estate-listings/internal/http/response"
	"github.com/diagnosis/estate-listings/internal/service"
	"github.com/go-chi/chi/v5"
)

// PropertyHandler is the unauthenticated catalog.
type PropertyHandler struct {
	Catalog service.CatalogService
}

func NewPropertyHandler(catalog service.CatalogService) *PropertyHandler {
	return &PropertyHandler{Catalog: catalog}
}

func (h *PropertyHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.getByID)
	return r
}

// GET /properties?minPrice=&maxPrice=&location=&sortBy=
func (h *PropertyHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := domain.NewPublicFilter(q.Get("minPrice"), q.Get("maxPrice"), q.Get("location"), q.Get("sortBy"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	props, err := h.Catalog.ListPublic(r.Context(), f)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}

func (h *PropertyHandler) getByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
