package service

import (
	"context"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TemplateService handles reusable document templates. Creating templates
// requires a plan with template access (starter or professional).
type TemplateService struct {
	templates   TemplateStore
	entitlement *EntitlementService
	validate    *validator.Validate
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(templates TemplateStore, entitlement *EntitlementService) *TemplateService {
	return &TemplateService{
		templates:   templates,
		entitlement: entitlement,
		validate:    validator.New(),
	}
}

// Create inserts a new template for the user.
func (s *TemplateService) Create(ctx context.Context, userID string, req *domain.TemplateRequest) (*domain.Template, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	allowed, err := s.entitlement.HasTemplateAccess(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, domain.ErrQuotaExceeded("templates require a starter or professional plan")
	}

	now := time.Now()
	tmpl := &domain.Template{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Data:        req.Data,
		IsPublic:    req.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.templates.Create(ctx, tmpl); err != nil {
		return nil, domain.ErrInternal("failed to create template", err)
	}
	return tmpl, nil
}

// Get returns a template visible to the user.
func (s *TemplateService) Get(ctx context.Context, id, userID string) (*domain.Template, error) {
	tmpl, err := s.templates.FindByID(ctx, id, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find template", err)
	}
	if tmpl == nil {
		return nil, domain.ErrNotFound("template not found")
	}
	return tmpl, nil
}

// ListMine returns the user's own templates.
func (s *TemplateService) ListMine(ctx context.Context, userID string) ([]*domain.Template, error) {
	templates, err := s.templates.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to list templates", err)
	}
	return templates, nil
}

// ListPublic returns public templates, optionally filtered by category.
func (s *TemplateService) ListPublic(ctx context.Context, category string) ([]*domain.Template, error) {
	templates, err := s.templates.ListPublic(ctx, category)
	if err != nil {
		return nil, domain.ErrInternal("failed to list public templates", err)
	}
	return templates, nil
}
