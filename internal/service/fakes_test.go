package service

import (
	"context"
	"sync"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/google/uuid"
)

// In-memory store fakes backing the service tests. They mirror the SQL
// semantics that matter: conditional credit decrement, unique payment
// intents, per-user subscription upsert.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	f := &fakeUserStore{users: make(map[string]*domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserStore) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeUserStore) FindByBillingCustomerID(_ context.Context, customerID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if customerID == "" {
		return nil, nil
	}
	for _, u := range f.users {
		if u.BillingCustomerID == customerID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) SetBillingCustomerID(_ context.Context, id, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.users[id]; u != nil {
		u.BillingCustomerID = customerID
	}
	return nil
}

func (f *fakeUserStore) UpdateSubscriptionStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.users[id]; u != nil {
		u.SubscriptionStatus = status
	}
	return nil
}

func (f *fakeUserStore) Credits(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.users[id]; u != nil {
		return u.Credits, nil
	}
	return 0, nil
}

func (f *fakeUserStore) AddCredits(_ context.Context, id string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.users[id]; u != nil {
		u.Credits += amount
	}
	return nil
}

func (f *fakeUserStore) ConsumeCredit(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	if u == nil || u.Credits <= 0 {
		return false, nil
	}
	u.Credits--
	return true, nil
}

type fakeSubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]*domain.Subscription // keyed by user ID
}

func newFakeSubscriptionStore(subs ...*domain.Subscription) *fakeSubscriptionStore {
	f := &fakeSubscriptionStore{subs: make(map[string]*domain.Subscription)}
	for _, s := range subs {
		f.subs[s.UserID] = s
	}
	return f
}

func (f *fakeSubscriptionStore) Upsert(_ context.Context, sub *domain.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing := f.subs[sub.UserID]; existing != nil {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.ID = uuid.New().String()
		sub.CreatedAt = time.Now()
	}
	sub.UpdatedAt = time.Now()
	f.subs[sub.UserID] = sub
	return nil
}

func (f *fakeSubscriptionStore) FindByUserID(_ context.Context, userID string) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[userID], nil
}

func (f *fakeSubscriptionStore) FindQualifyingByUserID(_ context.Context, userID string) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub := f.subs[userID]; sub.Qualifying() {
		return sub, nil
	}
	return nil, nil
}

func (f *fakeSubscriptionStore) FindByProviderSubID(_ context.Context, providerSubID string) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.ProviderSubID == providerSubID {
			return sub, nil
		}
	}
	return nil, nil
}

func (f *fakeSubscriptionStore) UpdateStatus(_ context.Context, userID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub := f.subs[userID]; sub != nil {
		sub.Status = status
	}
	return nil
}

func (f *fakeSubscriptionStore) MarkCanceled(_ context.Context, userID string, canceledAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub := f.subs[userID]; sub != nil {
		sub.Status = domain.SubStatusCanceled
		sub.CanceledAt = &canceledAt
	}
	return nil
}

type fakePaymentStore struct {
	mu       sync.Mutex
	payments []*domain.Payment
}

func (f *fakePaymentStore) Insert(_ context.Context, p *domain.Payment) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.PaymentIntentID != "" {
		for _, existing := range f.payments {
			if existing.PaymentIntentID == p.PaymentIntentID {
				return false, nil
			}
		}
	}
	p.CreatedAt = time.Now()
	f.payments = append(f.payments, p)
	return true, nil
}

func (f *fakePaymentStore) ListByUserID(_ context.Context, userID string) ([]*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaymentStore) CountSucceededSince(_ context.Context, userID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, p := range f.payments {
		if p.UserID == userID && p.Status == domain.PaymentSucceeded && !p.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeDocumentStore struct {
	mu       sync.Mutex
	docs     map[string]*domain.Document
	versions map[string][]*domain.DocumentVersion
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{
		docs:     make(map[string]*domain.Document),
		versions: make(map[string][]*domain.DocumentVersion),
	}
}

func (f *fakeDocumentStore) Create(_ context.Context, d *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[d.ID] = d
	return nil
}

func (f *fakeDocumentStore) FindByID(_ context.Context, id, userID string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d := f.docs[id]; d != nil && d.UserID == userID {
		return d, nil
	}
	return nil, nil
}

func (f *fakeDocumentStore) ListByUser(_ context.Context, userID string) ([]*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) Update(_ context.Context, d *domain.Document) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing := f.docs[d.ID]; existing == nil || existing.UserID != d.UserID {
		return false, nil
	}
	d.UpdatedAt = time.Now()
	f.docs[d.ID] = d
	return true, nil
}

func (f *fakeDocumentStore) Delete(_ context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d := f.docs[id]; d != nil && d.UserID == userID {
		delete(f.docs, id)
		delete(f.versions, id)
		return true, nil
	}
	return false, nil
}

func (f *fakeDocumentStore) CountCreatedSince(_ context.Context, userID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, d := range f.docs {
		if d.UserID == userID && !d.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeDocumentStore) AppendVersion(_ context.Context, v *domain.DocumentVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.Version = len(f.versions[v.DocumentID]) + 1
	v.CreatedAt = time.Now()
	f.versions[v.DocumentID] = append(f.versions[v.DocumentID], v)
	return nil
}

func (f *fakeDocumentStore) ListVersions(_ context.Context, documentID string) ([]*domain.DocumentVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.DocumentVersion, len(f.versions[documentID]))
	copy(out, f.versions[documentID])
	return out, nil
}

type fakeActivityStore struct {
	mu      sync.Mutex
	entries []*domain.ActivityLog
}

func (f *fakeActivityStore) Log(_ context.Context, entry *domain.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeActivityStore) ListByUser(_ context.Context, userID string, limit int) ([]*domain.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ActivityLog
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
