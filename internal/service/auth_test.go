package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthStore struct {
	mu       sync.Mutex
	tokens   map[string]*domain.VerificationToken // keyed by identifier+token
	sessions map[string]*domain.Session           // keyed by session token
	oauth    map[string]string                    // provider+accountID -> userID
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{
		tokens:   make(map[string]*domain.VerificationToken),
		sessions: make(map[string]*domain.Session),
		oauth:    make(map[string]string),
	}
}

func (f *fakeAuthStore) CreateVerificationToken(_ context.Context, t *domain.VerificationToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[t.Identifier+"|"+t.Token] = t
	return nil
}

func (f *fakeAuthStore) ConsumeVerificationToken(_ context.Context, identifier, token string) (*domain.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := identifier + "|" + token
	vt := f.tokens[key]
	delete(f.tokens, key)
	if vt == nil || vt.Expires.Before(time.Now()) {
		return nil, nil
	}
	return vt, nil
}

func (f *fakeAuthStore) CreateSession(_ context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.SessionToken] = s
	return nil
}

func (f *fakeAuthStore) DeleteSession(_ context.Context, sessionToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionToken)
	return nil
}

func (f *fakeAuthStore) UpsertOAuthAccount(_ context.Context, a *domain.OAuthAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oauth[a.Provider+"|"+a.ProviderAccountID] = a.UserID
	return nil
}

func (f *fakeAuthStore) FindUserIDByOAuthAccount(_ context.Context, provider, providerAccountID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.oauth[provider+"|"+providerAccountID], nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string // links
}

func (f *fakeMailer) SendMagicLink(_ context.Context, to, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, link)
	return nil
}

func newAuthFixture() (*AuthService, *fakeUserStore, *fakeAuthStore, *fakeMailer) {
	users := newFakeUserStore()
	store := newFakeAuthStore()
	mail := &fakeMailer{}
	svc := NewAuthService("test-secret", "http://localhost:3000", users, store, mail)
	return svc, users, store, mail
}

func TestMagicLinkRoundTrip(t *testing.T) {
	svc, users, store, mail := newAuthFixture()
	ctx := context.Background()

	require.NoError(t, svc.RequestMagicLink(ctx, "  New.User@Example.COM "))
	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0], "email=new.user%40example.com")

	// Pull the token back out of the store the way the link would carry it.
	var token string
	for key := range store.tokens {
		token = strings.SplitN(key, "|", 2)[1]
	}
	require.NotEmpty(t, token)

	resp, err := svc.VerifyMagicLink(ctx, "new.user@example.com", token)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "new.user@example.com", resp.User.Email)
	assert.Equal(t, domain.PlanFree, resp.User.SubscriptionStatus)

	// Account was created lazily on first verification.
	user, err := users.FindByEmail(ctx, "new.user@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "email", user.Provider)

	// The token is single use.
	_, err = svc.VerifyMagicLink(ctx, "new.user@example.com", token)
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.Code)
}

func TestRequestMagicLinkRejectsInvalidEmail(t *testing.T) {
	svc, _, _, mail := newAuthFixture()

	err := svc.RequestMagicLink(context.Background(), "not-an-email")
	require.Error(t, err)
	assert.Empty(t, mail.sent)
}

func TestVerifyMagicLinkUnknownToken(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	_, err := svc.VerifyMagicLink(context.Background(), "a@b.co", "bogus")
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.Code)
}

func TestCompleteOAuthCreatesAndLinksAccount(t *testing.T) {
	svc, users, store, _ := newAuthFixture()
	ctx := context.Background()

	profile := OAuthProfile{
		Provider:          "google",
		ProviderAccountID: "goog-123",
		Email:             "oauth@example.com",
		Name:              "OAuth User",
	}
	resp, err := svc.CompleteOAuth(ctx, profile)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	user, err := users.FindByEmail(ctx, "oauth@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "google", user.Provider)
	assert.Equal(t, user.ID, store.oauth["google|goog-123"])

	// Second sign-in reuses the linked account instead of creating another.
	resp2, err := svc.CompleteOAuth(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, resp2.User.ID)
}

func TestCompleteOAuthRequiresEmail(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	_, err := svc.CompleteOAuth(context.Background(), OAuthProfile{Provider: "google", ProviderAccountID: "x"})
	require.Error(t, err)
}

func TestVerifyTokenAndLogout(t *testing.T) {
	svc, users, store, _ := newAuthFixture()
	ctx := context.Background()

	user := &domain.User{ID: "u1", Email: "a@b.co", SubscriptionStatus: domain.PlanFree}
	require.NoError(t, users.Create(ctx, user))

	resp, err := svc.issueSession(ctx, user)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Sub)
	assert.Equal(t, "a@b.co", claims.Email)

	sid := svc.SessionTokenFromJWT(resp.Token)
	require.NotEmpty(t, sid)
	assert.Contains(t, store.sessions, sid)

	require.NoError(t, svc.Logout(ctx, sid))
	assert.NotContains(t, store.sessions, sid)
}

func TestVerifyTokenRejectsForgedToken(t *testing.T) {
	svc, users, _, _ := newAuthFixture()
	ctx := context.Background()

	user := &domain.User{ID: "u1", Email: "a@b.co"}
	require.NoError(t, users.Create(ctx, user))

	other := NewAuthService("other-secret", "http://localhost:3000", users, newFakeAuthStore(), &fakeMailer{})
	resp, err := other.issueSession(ctx, user)
	require.NoError(t, err)

	_, err = svc.VerifyToken(resp.Token)
	require.Error(t, err)
}
