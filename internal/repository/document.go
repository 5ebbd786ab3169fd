package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const docColumns = `id, user_id, title, description, file_name, file_size, file_type, status, data, metadata, created_at, updated_at`

// DocumentRepository handles database operations for documents and their
// version history.
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document.
func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	query := `
		INSERT INTO documents (id, user_id, title, description, file_name, file_size, file_type, status, data, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		d.ID, d.UserID, d.Title, d.Description, d.FileName, d.FileSize, d.FileType,
		d.Status, d.Data, d.Metadata, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// FindByID returns a document owned by the given user.
func (r *DocumentRepository) FindByID(ctx context.Context, id, userID string) (*domain.Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents WHERE id = $1 AND user_id = $2`
	row := r.db.QueryRow(ctx, query, id, userID)

	var d domain.Document
	err := row.Scan(
		&d.ID, &d.UserID, &d.Title, &d.Description, &d.FileName, &d.FileSize, &d.FileType,
		&d.Status, &d.Data, &d.Metadata, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return &d, nil
}

// ListByUser returns a user's documents, newest first.
func (r *DocumentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.Title, &d.Description, &d.FileName, &d.FileSize, &d.FileType,
			&d.Status, &d.Data, &d.Metadata, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// Update writes the mutable fields of a document and reports whether a row
// matched.
func (r *DocumentRepository) Update(ctx context.Context, d *domain.Document) (bool, error) {
	query := `
		UPDATE documents
		SET title = $1, description = $2, status = $3, data = $4, metadata = $5, updated_at = NOW()
		WHERE id = $6 AND user_id = $7
	`
	tag, err := r.db.Exec(ctx, query,
		d.Title, d.Description, d.Status, d.Data, d.Metadata, d.ID, d.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update document: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a document; history rows cascade.
func (r *DocumentRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountCreatedSince counts a user's documents created at or after the given
// instant. Used for monthly quota enforcement.
func (r *DocumentRepository) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// AppendVersion snapshots a payload into the document history with the next
// version number.
func (r *DocumentRepository) AppendVersion(ctx context.Context, v *domain.DocumentVersion) error {
	query := `
		INSERT INTO document_history (id, document_id, version, data, changed_by, created_at)
		SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4, NOW()
		FROM document_history WHERE document_id = $2
	`
	_, err := r.db.Exec(ctx, query, v.ID, v.DocumentID, v.Data, v.ChangedBy)
	if err != nil {
		return fmt.Errorf("failed to append document version: %w", err)
	}
	return nil
}

// ListVersions returns a document's history, newest version first.
func (r *DocumentRepository) ListVersions(ctx context.Context, documentID string) ([]*domain.DocumentVersion, error) {
	query := `
		SELECT id, document_id, version, data, changed_by, created_at
		FROM document_history WHERE document_id = $1 ORDER BY version DESC
	`
	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list document history: %w", err)
	}
	defer rows.Close()

	var versions []*domain.DocumentVersion
	for rows.Next() {
		var v domain.DocumentVersion
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.Version, &v.Data, &v.ChangedBy, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document version: %w", err)
		}
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}
