package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astba/trainingcenter/internal/config"
)

func TestDefaults(t *testing.T) {
	c := config.New()

	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "http://localhost:3000", c.GetFrontendURL())
	require.Equal(t, 15*time.Minute, c.GetAccessTokenTTL())
	require.False(t, c.GetCookieSecure())
	require.Equal(t, "Lax", c.GetCookieSameSite())
	require.Empty(t, c.GetJWTSecret())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV", "PROD")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ACCESS_TTL_MIN", "5")
	t.Setenv("JWT_REFRESH_TTL_DAYS", "30")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("FRONTEND_URL", "https://app.example.com")

	c := config.New()
	require.Equal(t, "PROD", c.GetEnv())
	require.Equal(t, "s3cret", c.GetJWTSecret())
	require.Equal(t, 5*time.Minute, c.GetAccessTokenTTL())
	require.Equal(t, 30*24*time.Hour, c.GetRefreshTokenTTL())
	require.True(t, c.GetCookieSecure())
	require.Equal(t, "https://app.example.com", c.GetFrontendURL())
}

func TestAllowedOrigins(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://app.example.com")

	origins := config.New().GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://app.example.com"))
	require.False(t, origins.IsAllowedOrigin("https://evil.example.com"))
}
