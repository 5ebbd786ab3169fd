package repository

import (
	"context"
	"fmt"

	"github.com/docstack/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const templateColumns = `id, user_id, name, description, category, data, is_public, created_at, updated_at`

// TemplateRepository handles database operations for templates.
type TemplateRepository struct {
	db *pgxpool.Pool
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(db *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a new template.
func (r *TemplateRepository) Create(ctx context.Context, t *domain.Template) error {
	query := `
		INSERT INTO templates (id, user_id, name, description, category, data, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.UserID, t.Name, t.Description, t.Category, t.Data, t.IsPublic,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// FindByID returns a template visible to the given user (owned or public).
func (r *TemplateRepository) FindByID(ctx context.Context, id, userID string) (*domain.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = $1 AND (user_id = $2 OR is_public)`
	row := r.db.QueryRow(ctx, query, id, userID)

	var t domain.Template
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.Category, &t.Data, &t.IsPublic, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find template: %w", err)
	}
	return &t, nil
}

// ListByUser returns a user's templates, newest first.
func (r *TemplateRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListPublic returns public templates, optionally filtered by category.
func (r *TemplateRepository) ListPublic(ctx context.Context, category string) ([]*domain.Template, error) {
	if category != "" {
		query := `SELECT ` + templateColumns + ` FROM templates WHERE is_public AND category = $1 ORDER BY created_at DESC`
		return r.list(ctx, query, category)
	}
	query := `SELECT ` + templateColumns + ` FROM templates WHERE is_public ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *TemplateRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Template, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*domain.Template
	for rows.Next() {
		var t domain.Template
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.Category, &t.Data, &t.IsPublic, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}
