package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DocumentService handles document CRUD with quota gating and version
// history.
type DocumentService struct {
	docs        DocumentStore
	activity    ActivityStore
	entitlement *EntitlementService
	validate    *validator.Validate
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(docs DocumentStore, activity ActivityStore, entitlement *EntitlementService) *DocumentService {
	return &DocumentService{
		docs:        docs,
		activity:    activity,
		entitlement: entitlement,
		validate:    validator.New(),
	}
}

// Create inserts a new document after passing the entitlement gate: the
// user's plan must allow another document this month, and pay-per-use users
// atomically spend a credit.
func (s *DocumentService) Create(ctx context.Context, userID string, req *domain.DocumentRequest) (*domain.Document, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	ok, err := s.entitlement.CanCreateDocument(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrQuotaExceeded("document limit reached, upgrade your plan or buy credits")
	}

	allowed, err := s.entitlement.ConsumeCreditIfNeeded(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		// A concurrent request spent the last credit between the quota
		// check and the decrement.
		return nil, domain.ErrQuotaExceeded("no credits remaining")
	}

	now := time.Now()
	doc := &domain.Document{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		FileType:    req.FileType,
		Status:      statusOrDraft(req.Status),
		Data:        req.Data,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, domain.ErrInternal("failed to create document", err)
	}

	details, _ := json.Marshal(map[string]string{"documentId": doc.ID, "title": doc.Title})
	if err := s.activity.Log(ctx, &domain.ActivityLog{
		UserID:  userID,
		Action:  domain.ActivityDocumentCreated,
		Details: details,
	}); err != nil {
		log.Printf("documents: failed to log activity for %s: %v", doc.ID, err)
	}

	return doc, nil
}

// Get returns a document owned by the user.
func (s *DocumentService) Get(ctx context.Context, id, userID string) (*domain.Document, error) {
	doc, err := s.docs.FindByID(ctx, id, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find document", err)
	}
	if doc == nil {
		return nil, domain.ErrNotFound("document not found")
	}
	return doc, nil
}

// List returns the user's documents, newest first.
func (s *DocumentService) List(ctx context.Context, userID string) ([]*domain.Document, error) {
	docs, err := s.docs.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to list documents", err)
	}
	return docs, nil
}

// Update writes a new payload, snapshotting the previous one into the
// version history first.
func (s *DocumentService) Update(ctx context.Context, id, userID string, req *domain.DocumentRequest) (*domain.Document, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	current, err := s.docs.FindByID(ctx, id, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find document", err)
	}
	if current == nil {
		return nil, domain.ErrNotFound("document not found")
	}

	if err := s.docs.AppendVersion(ctx, &domain.DocumentVersion{
		ID:         uuid.New().String(),
		DocumentID: id,
		Data:       current.Data,
		ChangedBy:  userID,
	}); err != nil {
		return nil, domain.ErrInternal("failed to snapshot document version", err)
	}

	current.Title = req.Title
	current.Description = req.Description
	current.Status = statusOrDraft(req.Status)
	current.Data = req.Data
	current.Metadata = req.Metadata

	updated, err := s.docs.Update(ctx, current)
	if err != nil {
		return nil, domain.ErrInternal("failed to update document", err)
	}
	if !updated {
		return nil, domain.ErrNotFound("document not found")
	}
	return current, nil
}

// Delete removes a document and its history.
func (s *DocumentService) Delete(ctx context.Context, id, userID string) error {
	deleted, err := s.docs.Delete(ctx, id, userID)
	if err != nil {
		return domain.ErrInternal("failed to delete document", err)
	}
	if !deleted {
		return domain.ErrNotFound("document not found")
	}
	return nil
}

// History returns a document's version history, newest first.
func (s *DocumentService) History(ctx context.Context, id, userID string) ([]*domain.DocumentVersion, error) {
	doc, err := s.docs.FindByID(ctx, id, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find document", err)
	}
	if doc == nil {
		return nil, domain.ErrNotFound("document not found")
	}

	versions, err := s.docs.ListVersions(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to list document history", err)
	}
	return versions, nil
}

func statusOrDraft(status string) string {
	if status == "" {
		return "draft"
	}
	return status
}
