package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - local accounts
	RouteAuthRegister       = "/api/auth/register"
	RouteAuthLogin          = "/api/auth/login"
	RouteAuthRefresh        = "/api/auth/refresh"
	RouteAuthLogout         = "/api/auth/logout"
	RouteAuthLogoutAll      = "/api/auth/logout-all"
	RouteAuthMe             = "/api/auth/me"
	RouteAuthChangePassword = "/api/auth/change-password"

	// Auth Routes - federated login
	RouteOAuth2GoogleLogin    = "/api/auth/oauth2/google"
	RouteOAuth2GoogleCallback = "/api/auth/oauth2/callback/google"
	RouteOAuth2Exchange       = "/api/auth/oauth2/exchange"

	// Admin Routes - user management
	RouteAdminUsers      = "/api/admin/users"
	RouteAdminUserRoles  = "/api/admin/users/{userId}/roles"
	RouteAdminUserStatus = "/api/admin/users/{userId}/status"

	// Operational
	RouteHealth = "/api/health"
)
