package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/docstack/backend/internal/contextkeys"
	"github.com/docstack/backend/internal/domain"
	"github.com/docstack/backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
)

// AuthHandler handles authentication HTTP endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	appURL string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, appURL string) *AuthHandler {
	return &AuthHandler{auth: auth, appURL: appURL}
}

// RequestMagicLink handles POST /api/auth/magic-link.
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req domain.MagicLinkRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	if err := h.auth.RequestMagicLink(r.Context(), req.Email); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// VerifyMagicLink handles GET /api/auth/verify?email=...&token=...
func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	token := r.URL.Query().Get("token")
	if email == "" || token == "" {
		Error(w, domain.ErrBadRequest("email and token are required"))
		return
	}

	resp, err := h.auth.VerifyMagicLink(r.Context(), email, token)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// OAuthBegin handles GET /api/auth/{provider} and redirects to the provider
// consent screen.
func (h *AuthHandler) OAuthBegin(w http.ResponseWriter, r *http.Request) {
	r = withProviderParam(r)
	gothic.BeginAuthHandler(w, r)
}

// OAuthCallback handles GET /api/auth/{provider}/callback. On success the
// browser is sent back to the frontend with the session token; errors land
// on the sign-in page.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	r = withProviderParam(r)

	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		http.Redirect(w, r, h.appURL+"/signin?error=oauth", http.StatusTemporaryRedirect)
		return
	}

	resp, err := h.auth.CompleteOAuth(r.Context(), oauthProfile(gothUser))
	if err != nil {
		http.Redirect(w, r, h.appURL+"/signin?error=oauth", http.StatusTemporaryRedirect)
		return
	}

	http.Redirect(w, r, h.appURL+"/auth/callback#token="+url.QueryEscape(resp.Token), http.StatusTemporaryRedirect)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, user)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 {
		if sid := h.auth.SessionTokenFromJWT(parts[1]); sid != "" {
			if err := h.auth.Logout(r.Context(), sid); err != nil {
				Error(w, err)
				return
			}
		}
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// withProviderParam copies the chi route parameter into the context key
// gothic reads the provider name from.
func withProviderParam(r *http.Request) *http.Request {
	provider := chi.URLParam(r, "provider")
	return r.WithContext(context.WithValue(r.Context(), gothic.ProviderParamKey, provider))
}

func oauthProfile(u goth.User) service.OAuthProfile {
	p := service.OAuthProfile{
		Provider:          u.Provider,
		ProviderAccountID: u.UserID,
		Email:             u.Email,
		Name:              u.Name,
		AvatarURL:         u.AvatarURL,
		AccessToken:       u.AccessToken,
		RefreshToken:      u.RefreshToken,
	}
	if !u.ExpiresAt.IsZero() {
		exp := u.ExpiresAt.Unix()
		p.ExpiresAt = &exp
	}
	return p
}
