package server

import (
	"net/http"

	"github.com/astba/trainingcenter/users"
)

func (s *Server) initRoutes() {
	// Local account flows
	s.RegisterRouteHandler("POST "+RouteAuthRegister, s.apiRoute(s.RegisterHandler()))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, s.apiRoute(s.LoginHandler()))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, s.apiRoute(s.RefreshHandler()))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, s.apiRoute(s.LogoutHandler()))

	// Routes below need an authenticated principal
	s.RegisterRouteHandler("POST "+RouteAuthLogoutAll, s.apiRoute(s.LogoutAllHandler(), s.RequireAuth))
	s.RegisterRouteHandler("GET "+RouteAuthMe, s.apiRoute(s.MeHandler(), s.RequireAuth))
	s.RegisterRouteHandler("POST "+RouteAuthChangePassword, s.apiRoute(s.ChangePasswordHandler(), s.RequireAuth))

	// Admin user management
	s.RegisterRouteHandler("GET "+RouteAdminUsers, s.apiRoute(s.ListUsersHandler(), s.RequireRole(users.RoleAdmin)))
	s.RegisterRouteHandler("POST "+RouteAdminUsers, s.apiRoute(s.AdminCreateUserHandler(), s.RequireRole(users.RoleAdmin)))
	s.RegisterRouteHandler("PATCH "+RouteAdminUserRoles, s.apiRoute(s.UpdateUserRolesHandler(), s.RequireRole(users.RoleAdmin)))
	s.RegisterRouteHandler("PATCH "+RouteAdminUserStatus, s.apiRoute(s.UpdateUserStatusHandler(), s.RequireRole(users.RoleAdmin)))

	// Federated login
	s.RegisterRouteHandler("GET "+RouteOAuth2GoogleLogin, s.apiRoute(s.GoogleLoginHandler()))
	s.RegisterRouteHandler("GET "+RouteOAuth2GoogleCallback, s.apiRoute(s.GoogleCallbackHandler()))
	s.RegisterRouteHandler("POST "+RouteOAuth2Exchange, s.apiRoute(s.ExchangeHandler()))

	s.RegisterRouteHandler("GET "+RouteHealth, s.apiRoute(s.HealthHandler()))
}

// apiRoute wraps a handler with the standard API middleware chain. The
// authentication gate runs on every route; extra middleware (authorization)
// is appended after it.
func (s *Server) apiRoute(handler http.HandlerFunc, extra ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	mw := []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		s.CorsMiddleware,
		s.Authenticate,
	}
	mw = append(mw, extra...)
	return ChainMiddleware(handler, mw...)
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
