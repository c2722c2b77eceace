package server

import (
	"net/http"
	"strings"
)

const (
	// accessTokenCookie carries the access token for browser clients.
	accessTokenCookie = "access_token"
	// refreshTokenCookie carries the refresh token, only read by the refresh
	// and logout endpoints.
	refreshTokenCookie = "refresh_token"
)

// SetAccessTokenCookie sets the access token cookie with Max-Age equal to the
// access token TTL.
func (s *Server) SetAccessTokenCookie(w http.ResponseWriter, tokenValue string) {
	s.setTokenCookie(w, accessTokenCookie, tokenValue, int(s.codec.AccessTTL().Seconds()))
}

// SetRefreshTokenCookie sets the refresh token cookie with Max-Age equal to
// the refresh token TTL.
func (s *Server) SetRefreshTokenCookie(w http.ResponseWriter, tokenValue string) {
	s.setTokenCookie(w, refreshTokenCookie, tokenValue, int(s.codec.RefreshTTL().Seconds()))
}

// ClearTokenCookies overwrites both token cookies with empty values and
// Max-Age=0.
func (s *Server) ClearTokenCookies(w http.ResponseWriter) {
	s.setTokenCookie(w, accessTokenCookie, "", -1)
	s.setTokenCookie(w, refreshTokenCookie, "", -1)
}

func (s *Server) setTokenCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.config.GetCookieSecure(),
		SameSite: sameSiteFromString(s.config.GetCookieSameSite()),
	})
}

// ExtractAccessToken returns the access token presented by the request. A
// Bearer Authorization header takes precedence over the cookie.
func (s *Server) ExtractAccessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && parts[1] != "" {
			return parts[1]
		}
	}

	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// ExtractRefreshToken returns the refresh token cookie value, if any.
func (s *Server) ExtractRefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func sameSiteFromString(policy string) http.SameSite {
	switch strings.ToLower(policy) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
