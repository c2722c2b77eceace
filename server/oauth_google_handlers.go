package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	googleIssuer = "https://accounts.google.com"
	// oauthStateCookie pins the state parameter to the browser that started
	// the login, for CSRF protection on the callback.
	oauthStateCookie = "oauth_state"
)

// generateRandomString creates a random base64url string. A failed entropy
// read must never yield a predictable value, so it panics (the recover
// middleware turns that into a 500).
func generateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// GoogleLoginHandler starts the federated login by redirecting to Google.
func (s *Server) GoogleLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, _, err := s.googleOidcState(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("google oidc init failed")
			errorJSON(w, http.StatusServiceUnavailable, "federated login unavailable")
			return
		}

		state := generateRandomString(32)
		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    state,
			Path:     RouteOAuth2GoogleCallback,
			HttpOnly: true,
			Secure:   getScheme(r) == "https",
			SameSite: http.SameSiteLaxMode,
			MaxAge:   300, // long enough for the Google round trip
		})

		http.Redirect(w, r, s.googleOauthConfig(r, provider).AuthCodeURL(state), http.StatusFound)
	}
}

// GoogleCallbackHandler finishes the federated login. It lands on the API
// origin, not the front end's, so the freshly issued tokens are parked in
// the code bridge and only the one-time code travels in the redirect URL.
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errParam := r.FormValue("error"); errParam != "" {
			s.redirectLoginFailure(w, r, "federated login refused")
			return
		}

		state := r.FormValue("state")
		code := r.FormValue("code")
		if state == "" || code == "" {
			s.redirectLoginFailure(w, r, "missing code or state")
			return
		}

		stateCookie, err := r.Cookie(oauthStateCookie)
		if err != nil || stateCookie.Value != state {
			s.redirectLoginFailure(w, r, "state mismatch")
			return
		}

		provider, verifier, err := s.googleOidcState(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("google oidc init failed")
			s.redirectLoginFailure(w, r, "federated login unavailable")
			return
		}

		oauth2Token, err := s.googleOauthConfig(r, provider).Exchange(r.Context(), code)
		if err != nil {
			log.Debug().Err(err).Msg("google code exchange failed")
			s.redirectLoginFailure(w, r, "code exchange failed")
			return
		}

		rawIDToken, ok := oauth2Token.Extra("id_token").(string)
		if !ok {
			s.redirectLoginFailure(w, r, "no id token in response")
			return
		}

		idToken, err := verifier.Verify(r.Context(), rawIDToken)
		if err != nil {
			log.Debug().Err(err).Msg("google id token rejected")
			s.redirectLoginFailure(w, r, "id token verification failed")
			return
		}

		var claims struct {
			Sub           string `json:"sub"`
			Email         string `json:"email"`
			GivenName     string `json:"given_name"`
			FamilyName    string `json:"family_name"`
			EmailVerified bool   `json:"email_verified"`
		}
		if err := idToken.Claims(&claims); err != nil {
			s.redirectLoginFailure(w, r, "failed to extract claims")
			return
		}

		user, err := s.auth.FindOrCreateGoogleUser(r.Context(),
			claims.Sub, claims.Email, claims.GivenName, claims.FamilyName, claims.EmailVerified)
		if err != nil {
			log.Error().Err(err).Msg("federated user resolution failed")
			s.redirectLoginFailure(w, r, "login failed")
			return
		}

		pair, err := s.auth.IssuePair(r.Context(), user)
		if err != nil {
			log.Error().Err(err).Msg("federated token issuance failed")
			s.redirectLoginFailure(w, r, "login failed")
			return
		}

		oneTimeCode := s.bridge.IssueCode(pair.AccessToken, pair.RefreshToken)
		log.Info().Str("user_id", user.ID).Msg("federated login succeeded")

		target := s.config.GetFrontendURL() + "/auth/callback?code=" + url.QueryEscape(oneTimeCode)
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// ExchangeHandler redeems a one-time code for cookies. The redeem is atomic:
// of any number of concurrent attempts with the same code, at most one gets
// the tokens.
func (s *Server) ExchangeHandler() http.HandlerFunc {
	type exchangeRequest struct {
		Code string `json:"code"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req exchangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
			errorJSON(w, http.StatusBadRequest, "code is required")
			return
		}

		pair, ok := s.bridge.Redeem(req.Code)
		if !ok {
			errorJSON(w, http.StatusUnauthorized, "no pending exchange")
			return
		}

		s.SetAccessTokenCookie(w, pair.AccessToken)
		s.SetRefreshTokenCookie(w, pair.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]string{
			"accessToken":  pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		})
	}
}

// googleOidcState returns the Google provider and verifier, running issuer
// discovery on first use. Discovery happens outside the lock so concurrent
// first logins are not serialized behind the network call; if several race,
// the first result to be stored wins and the others are discarded.
func (s *Server) googleOidcState(ctx context.Context) (*oidc.Provider, *oidc.IDTokenVerifier, error) {
	clientID := s.config.GetGoogleClientID()
	if clientID == "" || s.config.GetGoogleClientSecret() == "" {
		return nil, nil, fmt.Errorf("google client credentials not configured")
	}

	s.googleOidcLock.Lock()
	if s.googleProvider != nil {
		provider, verifier := s.googleProvider, s.googleVerifier
		s.googleOidcLock.Unlock()
		return provider, verifier, nil
	}
	s.googleOidcLock.Unlock()

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	s.googleOidcLock.Lock()
	defer s.googleOidcLock.Unlock()
	if s.googleProvider == nil {
		s.googleProvider = provider
		s.googleVerifier = provider.Verifier(&oidc.Config{ClientID: clientID})
	}
	return s.googleProvider, s.googleVerifier, nil
}

// googleOauthConfig builds the OAuth2 exchange configuration for this request.
// The redirect URL is derived from the request's own scheme and host, so
// deployments reachable under several hosts never reuse a stale redirect.
func (s *Server) googleOauthConfig(r *http.Request, provider *oidc.Provider) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.config.GetGoogleClientID(),
		ClientSecret: s.config.GetGoogleClientSecret(),
		Endpoint:     provider.Endpoint(),
		RedirectURL:  googleRedirectURL(r),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
}

func googleRedirectURL(r *http.Request) string {
	return fmt.Sprintf("%s://%s%s", getScheme(r), r.Host, RouteOAuth2GoogleCallback)
}

// redirectLoginFailure sends the browser back to the front end with a
// generic error marker. Specific causes stay in the debug log.
func (s *Server) redirectLoginFailure(w http.ResponseWriter, r *http.Request, reason string) {
	log.Debug().Str("reason", reason).Msg("federated login failed")
	target := s.config.GetFrontendURL() + "/auth/callback?error=" + url.QueryEscape("login_failed")
	http.Redirect(w, r, target, http.StatusFound)
}
