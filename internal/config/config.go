package config

type Config interface {
	EnvConfig
	AuthConfig
	CookieConfig
	CorsConfig
}

type mainConfig struct {
	EnvVars
	Auth
	Cookie
	Cors
}

func New() Config {
	return mainConfig{}
}
