package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a registered account with its billing and credit state.
type User struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name,omitempty"`
	Image              string     `json:"image,omitempty"`
	Provider           string     `json:"provider"`
	SubscriptionStatus string     `json:"subscriptionStatus"`
	BillingCustomerID  string     `json:"-"`
	Credits            int        `json:"credits"`
	TrialEndsAt        *time.Time `json:"trialEndsAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// NewUserID generates a new unique user ID.
func NewUserID() string {
	return uuid.New().String()
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserResponse is the public view of a user returned by the API.
type UserResponse struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name,omitempty"`
	Image              string    `json:"image,omitempty"`
	SubscriptionStatus string    `json:"subscriptionStatus"`
	Credits            int       `json:"credits"`
	CreatedAt          time.Time `json:"createdAt"`
}

// JWTClaims holds the claims extracted from a session token.
type JWTClaims struct {
	Sub   string
	Email string
}

// MagicLinkRequest is the input for requesting a sign-in link.
type MagicLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SessionResponse is returned after a successful sign-in.
type SessionResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// OAuthAccount is a linked external identity (one row per provider account).
type OAuthAccount struct {
	ID                string `json:"id"`
	UserID            string `json:"userId"`
	Type              string `json:"type"`
	Provider          string `json:"provider"`
	ProviderAccountID string `json:"providerAccountId"`
	AccessToken       string `json:"-"`
	RefreshToken      string `json:"-"`
	ExpiresAt         *int64 `json:"-"`
}

// Session is a persisted sign-in session.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	SessionToken string    `json:"-"`
	Expires      time.Time `json:"expires"`
}

// VerificationToken is a single-use magic-link token.
type VerificationToken struct {
	Identifier string    `json:"identifier"`
	Token      string    `json:"-"`
	Expires    time.Time `json:"expires"`
}
