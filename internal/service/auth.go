package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/docstack/backend/pkg/mailer"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	magicLinkTTL = 10 * time.Minute
	sessionTTL   = 7 * 24 * time.Hour
)

// OAuthProfile is the identity returned by an external OAuth provider after
// a completed handshake.
type OAuthProfile struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	AvatarURL         string
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *int64
}

// AuthService handles sign-in (OAuth and magic link), JWT issuance, and
// session management.
type AuthService struct {
	jwtSecret string
	appURL    string
	users     UserStore
	store     AuthStore
	mail      mailer.Mailer
	validate  *validator.Validate
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret, appURL string, users UserStore, store AuthStore, mail mailer.Mailer) *AuthService {
	return &AuthService{
		jwtSecret: jwtSecret,
		appURL:    appURL,
		users:     users,
		store:     store,
		mail:      mail,
		validate:  validator.New(),
	}
}

// RequestMagicLink creates a single-use verification token for the email
// and sends the sign-in link. The account is created lazily on first
// verification, so requesting a link never reveals whether an account
// exists.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return domain.ErrValidation("a valid email address is required")
	}
	token := uuid.New().String()

	if err := s.store.CreateVerificationToken(ctx, &domain.VerificationToken{
		Identifier: email,
		Token:      token,
		Expires:    time.Now().Add(magicLinkTTL),
	}); err != nil {
		return domain.ErrInternal("failed to create verification token", err)
	}

	link := fmt.Sprintf("%s/api/auth/verify?email=%s&token=%s",
		s.appURL, url.QueryEscape(email), url.QueryEscape(token))
	if err := s.mail.SendMagicLink(ctx, email, link); err != nil {
		if err == mailer.ErrNotConfigured {
			return domain.ErrNotConfigured("mail provider")
		}
		return domain.ErrInternal("failed to send magic link", err)
	}
	return nil
}

// VerifyMagicLink redeems a verification token, creating the account on
// first sign-in, and returns a signed session.
func (s *AuthService) VerifyMagicLink(ctx context.Context, email, token string) (*domain.SessionResponse, error) {
	email = domain.NormalizeEmail(email)

	vt, err := s.store.ConsumeVerificationToken(ctx, email, token)
	if err != nil {
		return nil, domain.ErrInternal("failed to verify token", err)
	}
	if vt == nil {
		return nil, domain.ErrUnauthorized("invalid or expired sign-in link")
	}

	user, err := s.findOrCreateUser(ctx, email, "", "", "email")
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

// CompleteOAuth links the provider identity to an account (creating one on
// first sign-in) and returns a signed session.
func (s *AuthService) CompleteOAuth(ctx context.Context, profile OAuthProfile) (*domain.SessionResponse, error) {
	if profile.Email == "" {
		return nil, domain.ErrBadRequest("provider did not supply an email address")
	}

	userID, err := s.store.FindUserIDByOAuthAccount(ctx, profile.Provider, profile.ProviderAccountID)
	if err != nil {
		return nil, domain.ErrInternal("failed to look up oauth account", err)
	}

	var user *domain.User
	if userID != "" {
		user, err = s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, domain.ErrInternal("failed to find user", err)
		}
	}
	if user == nil {
		user, err = s.findOrCreateUser(ctx, profile.Email, profile.Name, profile.AvatarURL, profile.Provider)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.UpsertOAuthAccount(ctx, &domain.OAuthAccount{
		UserID:            user.ID,
		Type:              "oauth",
		Provider:          profile.Provider,
		ProviderAccountID: profile.ProviderAccountID,
		AccessToken:       profile.AccessToken,
		RefreshToken:      profile.RefreshToken,
		ExpiresAt:         profile.ExpiresAt,
	}); err != nil {
		return nil, domain.ErrInternal("failed to link oauth account", err)
	}

	return s.issueSession(ctx, user)
}

// Logout deletes the persisted session for a token.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) error {
	if err := s.store.DeleteSession(ctx, sessionToken); err != nil {
		return domain.ErrInternal("failed to delete session", err)
	}
	return nil
}

// VerifyToken validates a JWT token and returns the claims.
func (s *AuthService) VerifyToken(tokenStr string) (*domain.JWTClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized("invalid token claims")
	}

	return &domain.JWTClaims{
		Sub:   getClaimString(claims, "sub"),
		Email: getClaimString(claims, "email"),
	}, nil
}

// SessionTokenFromJWT extracts the persisted session reference from a
// signed token, for logout.
func (s *AuthService) SessionTokenFromJWT(tokenStr string) string {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	return getClaimString(claims, "sid")
}

// GetUserByID returns a user profile by ID (for /api/auth/me).
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*domain.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}
	resp := userResponse(user)
	return &resp, nil
}

func (s *AuthService) findOrCreateUser(ctx context.Context, email, name, image, provider string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user != nil {
		return user, nil
	}

	now := time.Now()
	user = &domain.User{
		ID:                 domain.NewUserID(),
		Email:              email,
		Name:               name,
		Image:              image,
		Provider:           provider,
		SubscriptionStatus: domain.PlanFree,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, domain.ErrInternal("failed to create user", err)
	}
	return user, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*domain.SessionResponse, error) {
	sessionToken := uuid.New().String()
	expires := time.Now().Add(sessionTTL)

	if err := s.store.CreateSession(ctx, &domain.Session{
		UserID:       user.ID,
		SessionToken: sessionToken,
		Expires:      expires,
	}); err != nil {
		return nil, domain.ErrInternal("failed to create session", err)
	}

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"sid":   sessionToken,
		"exp":   expires.Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, domain.ErrInternal("failed to sign token", err)
	}

	return &domain.SessionResponse{Token: signed, User: userResponse(user)}, nil
}

func userResponse(u *domain.User) domain.UserResponse {
	return domain.UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Image:              u.Image,
		SubscriptionStatus: u.SubscriptionStatus,
		Credits:            u.Credits,
		CreatedAt:          u.CreatedAt,
	}
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
