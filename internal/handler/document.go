package handler

import (
	"net/http"

	"github.com/docstack/backend/internal/domain"
	"github.com/docstack/backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// DocumentHandler handles document CRUD and history endpoints.
type DocumentHandler struct {
	docs *service.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(docs *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// Create handles POST /api/documents.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	var req domain.DocumentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	doc, err := h.docs.Create(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, doc)
}

// List handles GET /api/documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	docs, err := h.docs.List(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}

	JSON(w, http.StatusOK, docs)
}

// Get handles GET /api/documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, doc)
}

// Update handles PUT /api/documents/{id}.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	var req domain.DocumentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	doc, err := h.docs.Update(r.Context(), chi.URLParam(r, "id"), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, doc)
}

// Delete handles DELETE /api/documents/{id}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	if err := h.docs.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// History handles GET /api/documents/{id}/history.
func (h *DocumentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	versions, err := h.docs.History(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		Error(w, err)
		return
	}
	if versions == nil {
		versions = []*domain.DocumentVersion{}
	}

	JSON(w, http.StatusOK, versions)
}
