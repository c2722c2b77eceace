package config

const (
	cookieSecureVar   = "COOKIE_SECURE"
	cookieSameSiteVar = "COOKIE_SAME_SITE"
)

type CookieConfig interface {
	GetCookieSecure() bool
	GetCookieSameSite() string
}

type Cookie struct{}

var _ CookieConfig = Cookie{}

// GetCookieSecure defaults to false so that cookies work over plain HTTP in
// local development. Production deployments must set COOKIE_SECURE=true.
func (Cookie) GetCookieSecure() bool {
	return GetEnv(cookieSecureVar, "false") == "true"
}

// GetCookieSameSite returns the SameSite policy: "Lax", "Strict" or "None".
func (Cookie) GetCookieSameSite() string {
	return GetEnv(cookieSameSiteVar, "Lax")
}
