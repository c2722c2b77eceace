package config

import (
	"strconv"
	"time"
)

const (
	jwtSecretVar          = "JWT_SECRET"
	accessTTLMinutesVar   = "JWT_ACCESS_TTL_MIN"
	refreshTTLDaysVar     = "JWT_REFRESH_TTL_DAYS"
	googleClientIDVar     = "GOOGLE_CLIENT_ID"
	googleClientSecretVar = "GOOGLE_CLIENT_SECRET"
)

type AuthConfig interface {
	GetJWTSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetGoogleClientID() string
	GetGoogleClientSecret() string
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetJWTSecret returns the shared signing secret. There is no default: an
// empty value must be treated as fatal by the caller (token.NewCodec rejects it).
func (Auth) GetJWTSecret() string {
	return GetEnv(jwtSecretVar, "")
}

func (Auth) GetAccessTokenTTL() time.Duration {
	return durationFromEnv(accessTTLMinutesVar, 15, time.Minute)
}

// GetRefreshTokenTTL defaults to 36500 days. Refresh tokens are invalidated
// by revocation, not expiry.
func (Auth) GetRefreshTokenTTL() time.Duration {
	return durationFromEnv(refreshTTLDaysVar, 36500, 24*time.Hour)
}

func (Auth) GetGoogleClientID() string {
	return GetEnv(googleClientIDVar, "")
}

func (Auth) GetGoogleClientSecret() string {
	return GetEnv(googleClientSecretVar, "")
}

func durationFromEnv(envVar string, defaultValue int64, unit time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return time.Duration(defaultValue) * unit
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return time.Duration(defaultValue) * unit
	}
	return time.Duration(n) * unit
}
