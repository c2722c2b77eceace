package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	errs "github.com/astba/trainingcenter/internal/errors"
	"github.com/astba/trainingcenter/users"
)

type updateRolesRequest struct {
	Roles []string `json:"roles"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type adminCreateUserRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Roles     []string `json:"roles"`
}

// userResponse is the admin-facing view of an account. Password hash and the
// federated identity link never leave the server.
type userResponse struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Roles         []users.Role `json:"roles"`
	Status        users.Status `json:"status"`
	EmailVerified bool         `json:"emailVerified"`
	CreatedAt     time.Time    `json:"createdAt"`
	LastLogin     *time.Time   `json:"lastLogin,omitempty"`
}

type userPageResponse struct {
	Users []userResponse `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

func toUserResponse(user *users.User) userResponse {
	resp := userResponse{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Roles:         user.Roles,
		Status:        user.Status,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
	if !user.LastLogin.IsZero() {
		t := user.LastLogin
		resp.LastLogin = &t
	}
	return resp
}

// ListUsersHandler returns a page of users. Query parameters: q (search),
// page (zero-based), size.
func (s *Server) ListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))

		result, err := s.auth.ListUsers(r.Context(), r.URL.Query().Get("q"), page, size)
		if err != nil {
			log.Error().Err(err).Msg("user listing failed")
			errorJSON(w, http.StatusInternalServerError, "user listing failed")
			return
		}

		resp := userPageResponse{
			Users: make([]userResponse, 0, len(result.Users)),
			Total: result.Total,
			Page:  result.Page,
			Size:  result.Size,
		}
		for _, user := range result.Users {
			resp.Users = append(resp.Users, toUserResponse(user))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) UpdateUserRolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateRolesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Roles) == 0 {
			errorJSON(w, http.StatusBadRequest, "at least one role is required")
			return
		}

		roles, err := users.ParseRoles(joinNames(req.Roles))
		if err != nil || len(roles) == 0 {
			errorJSON(w, http.StatusBadRequest, "unknown role")
			return
		}

		user, err := s.auth.UpdateUserRoles(r.Context(), r.PathValue("userId"), roles)
		if err != nil {
			s.writeAdminUserError(w, err, "role update failed")
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

func (s *Server) UpdateUserStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid request body")
			return
		}

		status, err := users.ParseStatus(req.Status)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "unknown status")
			return
		}

		user, err := s.auth.UpdateUserStatus(r.Context(), r.PathValue("userId"), status)
		if err != nil {
			s.writeAdminUserError(w, err, "status update failed")
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

func (s *Server) AdminCreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminCreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			errorJSON(w, http.StatusBadRequest, "email and password are required")
			return
		}

		roles, err := users.ParseRoles(joinNames(req.Roles))
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "unknown role")
			return
		}

		user, err := s.auth.AdminCreateUser(r.Context(), req.Email, req.Password, req.FirstName, req.LastName, roles)
		if err != nil {
			switch {
			case errs.Is(err, errs.ErrEmailTaken):
				errorJSON(w, http.StatusConflict, "email already registered")
			case errs.Is(err, errs.ErrWeakPassword):
				errorJSON(w, http.StatusBadRequest, "password does not meet requirements")
			default:
				log.Error().Err(err).Msg("admin user creation failed")
				errorJSON(w, http.StatusInternalServerError, "user creation failed")
			}
			return
		}
		writeJSON(w, http.StatusCreated, toUserResponse(user))
	}
}

func (s *Server) writeAdminUserError(w http.ResponseWriter, err error, logMsg string) {
	if errs.Is(err, errs.ErrUserNotFound) {
		errorJSON(w, http.StatusNotFound, "user not found")
		return
	}
	log.Error().Err(err).Msg(logMsg)
	errorJSON(w, http.StatusInternalServerError, logMsg)
}

// joinNames rebuilds the comma-joined wire format users.ParseRoles expects.
func joinNames(names []string) string {
	return strings.Join(names, ",")
}
