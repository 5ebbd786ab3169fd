package domain

import (
	"encoding/json"
	"time"
)

// Template is a reusable document blueprint. Public templates are visible
// to all users; private ones only to their owner.
type Template struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	IsPublic    bool            `json:"isPublic"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TemplateRequest is the input for creating a template.
type TemplateRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Data        json.RawMessage `json:"data"`
	IsPublic    bool            `json:"isPublic"`
}
