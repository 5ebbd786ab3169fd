package domain

import (
	"encoding/json"
	"time"
)

// Document is a user-owned record with an opaque JSON payload. The payload
// shape is defined by the caller; only the envelope fields are typed.
type Document struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	FileName    string          `json:"fileName,omitempty"`
	FileSize    int64           `json:"fileSize,omitempty"`
	FileType    string          `json:"fileType,omitempty"`
	Status      string          `json:"status"`
	Data        json.RawMessage `json:"data,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// DocumentVersion is a snapshot of a document's payload taken before each
// update. Versions start at 1 and increase monotonically per document.
type DocumentVersion struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"documentId"`
	Version    int             `json:"version"`
	Data       json.RawMessage `json:"data,omitempty"`
	ChangedBy  string          `json:"changedBy"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// DocumentRequest is the input for creating or updating a document.
type DocumentRequest struct {
	Title       string          `json:"title" validate:"required,max=300"`
	Description string          `json:"description"`
	FileName    string          `json:"fileName"`
	FileSize    int64           `json:"fileSize"`
	FileType    string          `json:"fileType"`
	Status      string          `json:"status"`
	Data        json.RawMessage `json:"data"`
	Metadata    json.RawMessage `json:"metadata"`
}
