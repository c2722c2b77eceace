package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	errs "github.com/astba/trainingcenter/internal/errors"
	"github.com/astba/trainingcenter/users"
)

const contentTypeJSON = "application/json; charset=utf-8"

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// authResponse mirrors the token pair and user identity handed to clients on
// login, registration and refresh. Tokens also travel as cookies; the body
// copy serves non-browser clients.
type authResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	UserID       string       `json:"userId"`
	Email        string       `json:"email"`
	Roles        []users.Role `json:"roles"`
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			errorJSON(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, pair, err := s.auth.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
		if err != nil {
			switch {
			case errs.Is(err, errs.ErrEmailTaken):
				errorJSON(w, http.StatusConflict, "email already registered")
			case errs.Is(err, errs.ErrWeakPassword):
				errorJSON(w, http.StatusBadRequest, "password does not meet requirements")
			default:
				log.Error().Err(err).Msg("registration failed")
				errorJSON(w, http.StatusInternalServerError, "registration failed")
			}
			return
		}

		s.SetAccessTokenCookie(w, pair.AccessToken)
		s.SetRefreshTokenCookie(w, pair.RefreshToken)
		writeJSON(w, http.StatusCreated, authResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			UserID:       user.ID,
			Email:        user.Email,
			Roles:        user.Roles,
		})
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, pair, err := s.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			switch {
			case errs.Is(err, errs.ErrInvalidCredentials):
				errorJSON(w, http.StatusUnauthorized, "invalid credentials")
			case errs.Is(err, errs.ErrAccountSuspended):
				errorJSON(w, http.StatusForbidden, "account suspended")
			default:
				log.Error().Err(err).Msg("login failed")
				errorJSON(w, http.StatusInternalServerError, "login failed")
			}
			return
		}

		s.SetAccessTokenCookie(w, pair.AccessToken)
		s.SetRefreshTokenCookie(w, pair.RefreshToken)
		writeJSON(w, http.StatusOK, authResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			UserID:       user.ID,
			Email:        user.Email,
			Roles:        user.Roles,
		})
	}
}

// RefreshHandler rotates the presented refresh token. The token comes from
// the refresh cookie or, for non-browser clients, the request body.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawRefresh := s.ExtractRefreshToken(r)
		if rawRefresh == "" {
			var req refreshRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
				rawRefresh = req.RefreshToken
			}
		}

		user, pair, err := s.auth.Refresh(r.Context(), rawRefresh)
		if err != nil {
			log.Debug().Msg("refresh rejected")
			errorJSON(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}

		s.SetAccessTokenCookie(w, pair.AccessToken)
		s.SetRefreshTokenCookie(w, pair.RefreshToken)
		writeJSON(w, http.StatusOK, authResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			UserID:       user.ID,
			Email:        user.Email,
			Roles:        user.Roles,
		})
	}
}

// LogoutHandler revokes the presented refresh token and clears both cookies.
// Always succeeds: logging out twice is fine.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Logout(r.Context(), s.ExtractRefreshToken(r)); err != nil {
			log.Warn().Err(err).Msg("logout revoke failed")
		}
		s.ClearTokenCookies(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) LogoutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFrom(r.Context())
		if err := s.auth.LogoutAll(r.Context(), principal.UserID); err != nil {
			log.Error().Err(err).Str("user_id", principal.UserID).Msg("logout-all failed")
			errorJSON(w, http.StatusInternalServerError, "logout failed")
			return
		}
		s.ClearTokenCookies(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFrom(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"userId": principal.UserID,
			"email":  principal.Email,
			"roles":  principal.Roles,
		})
	}
}

// ChangePasswordHandler swaps the password and revokes every outstanding
// refresh token; the caller must log in again.
func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid request body")
			return
		}

		principal, _ := PrincipalFrom(r.Context())
		err := s.auth.ChangePassword(r.Context(), principal.UserID, req.CurrentPassword, req.NewPassword)
		if err != nil {
			switch {
			case errs.Is(err, errs.ErrInvalidCredentials):
				errorJSON(w, http.StatusUnauthorized, "invalid credentials")
			case errs.Is(err, errs.ErrWeakPassword):
				errorJSON(w, http.StatusBadRequest, "password does not meet requirements")
			default:
				log.Error().Err(err).Str("user_id", principal.UserID).Msg("password change failed")
				errorJSON(w, http.StatusInternalServerError, "password change failed")
			}
			return
		}

		s.ClearTokenCookies(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
