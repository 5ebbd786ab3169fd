package handler

import (
	"net/http"

	"github.com/docstack/backend/internal/domain"
	"github.com/docstack/backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// TemplateHandler handles template endpoints.
type TemplateHandler struct {
	templates *service.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templates *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// Create handles POST /api/templates.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	var req domain.TemplateRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	tmpl, err := h.templates.Create(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, tmpl)
}

// ListMine handles GET /api/templates.
func (h *TemplateHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	templates, err := h.templates.ListMine(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}
	if templates == nil {
		templates = []*domain.Template{}
	}

	JSON(w, http.StatusOK, templates)
}

// ListPublic handles GET /api/templates/public?category=...
func (h *TemplateHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.ListPublic(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		Error(w, err)
		return
	}
	if templates == nil {
		templates = []*domain.Template{}
	}

	JSON(w, http.StatusOK, templates)
}

// Get handles GET /api/templates/{id}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	tmpl, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, tmpl)
}
