package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/astba/trainingcenter/auth"
	"github.com/astba/trainingcenter/internal/config"
	"github.com/astba/trainingcenter/server/codebridge"
	"github.com/astba/trainingcenter/token"
)

type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.Config
	auth   *auth.Service
	codec  *token.Codec
	bridge *codebridge.Bridge

	// Discovery result for the Google issuer, cached after the first login.
	// The redirect URL is derived per request and never cached.
	googleProvider *oidc.Provider
	googleVerifier *oidc.IDTokenVerifier
	googleOidcLock sync.Mutex
}

func New(cfg config.Config, authService *auth.Service, codec *token.Codec) (*Server, error) {
	if authService == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}
	if codec == nil {
		return nil, fmt.Errorf("[Server New] token codec is required")
	}

	s := &Server{
		mux:    http.NewServeMux(),
		config: cfg,
		auth:   authService,
		codec:  codec,
		bridge: codebridge.New(),
	}
	s.env = cfg.GetEnv()

	s.initRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Bridge exposes the one-time code bridge used by the federated login
// handoff.
func (s *Server) Bridge() *codebridge.Bridge {
	return s.bridge
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
