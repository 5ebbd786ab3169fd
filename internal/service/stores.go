package service

import (
	"context"
	"time"

	"github.com/docstack/backend/internal/domain"
)

// Store interfaces consumed by the services. The repository package provides
// the PostgreSQL implementations; tests substitute in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByBillingCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	SetBillingCustomerID(ctx context.Context, id, customerID string) error
	UpdateSubscriptionStatus(ctx context.Context, id, status string) error
	Credits(ctx context.Context, id string) (int, error)
	AddCredits(ctx context.Context, id string, amount int) error
	ConsumeCredit(ctx context.Context, id string) (bool, error)
}

type SubscriptionStore interface {
	Upsert(ctx context.Context, sub *domain.Subscription) error
	FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	FindQualifyingByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	FindByProviderSubID(ctx context.Context, providerSubID string) (*domain.Subscription, error)
	UpdateStatus(ctx context.Context, userID, status string) error
	MarkCanceled(ctx context.Context, userID string, canceledAt time.Time) error
}

type PaymentStore interface {
	Insert(ctx context.Context, p *domain.Payment) (bool, error)
	ListByUserID(ctx context.Context, userID string) ([]*domain.Payment, error)
	CountSucceededSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type DocumentStore interface {
	Create(ctx context.Context, d *domain.Document) error
	FindByID(ctx context.Context, id, userID string) (*domain.Document, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Document, error)
	Update(ctx context.Context, d *domain.Document) (bool, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error)
	AppendVersion(ctx context.Context, v *domain.DocumentVersion) error
	ListVersions(ctx context.Context, documentID string) ([]*domain.DocumentVersion, error)
}

type TemplateStore interface {
	Create(ctx context.Context, t *domain.Template) error
	FindByID(ctx context.Context, id, userID string) (*domain.Template, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Template, error)
	ListPublic(ctx context.Context, category string) ([]*domain.Template, error)
}

type ActivityStore interface {
	Log(ctx context.Context, entry *domain.ActivityLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.ActivityLog, error)
}

type AuthStore interface {
	CreateVerificationToken(ctx context.Context, t *domain.VerificationToken) error
	ConsumeVerificationToken(ctx context.Context, identifier, token string) (*domain.VerificationToken, error)
	CreateSession(ctx context.Context, s *domain.Session) error
	DeleteSession(ctx context.Context, sessionToken string) error
	UpsertOAuthAccount(ctx context.Context, a *domain.OAuthAccount) error
	FindUserIDByOAuthAccount(ctx context.Context, provider, providerAccountID string) (string, error)
}
