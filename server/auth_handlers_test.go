package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type authBody struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	UserID       string   `json:"userId"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
}

func doJSON(t *testing.T, f *serverFixture, method, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(r)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, r)
	return rec
}

func registerViaAPI(t *testing.T, f *serverFixture) authBody {
	t.Helper()

	rec := doJSON(t, f, http.MethodPost, "/api/auth/register", map[string]string{
		"email":     testEmail,
		"password":  testPassword,
		"firstName": "Jane",
		"lastName":  "Doe",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body authBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestRegisterEndpoint(t *testing.T) {
	f := newServerFixture(t)

	body := registerViaAPI(t, f)
	require.Equal(t, testEmail, body.Email)
	require.Equal(t, []string{"TRAINER"}, body.Roles)
	require.True(t, f.codec.Validate(body.AccessToken))
	require.True(t, f.codec.IsRefresh(body.RefreshToken))

	// Both token cookies ride along with the response body.
	rec := doJSON(t, f, http.MethodPost, "/api/auth/login", map[string]string{
		"email": testEmail, "password": testPassword,
	}, nil)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookieByName(t, cookies, "access_token").Value)
	require.NotEmpty(t, cookieByName(t, cookies, "refresh_token").Value)
}

func TestRegisterEndpointDuplicateEmail(t *testing.T) {
	f := newServerFixture(t)
	registerViaAPI(t, f)

	rec := doJSON(t, f, http.MethodPost, "/api/auth/register", map[string]string{
		"email": testEmail, "password": testPassword,
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterEndpointWeakPassword(t *testing.T) {
	f := newServerFixture(t)

	rec := doJSON(t, f, http.MethodPost, "/api/auth/register", map[string]string{
		"email": testEmail, "password": "weak",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpointRejectsBadCredentials(t *testing.T) {
	f := newServerFixture(t)
	registerViaAPI(t, f)

	rec := doJSON(t, f, http.MethodPost, "/api/auth/login", map[string]string{
		"email": testEmail, "password": "WrongPass1",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpointWithCookie(t *testing.T) {
	f := newServerFixture(t)
	registered := registerViaAPI(t, f)

	rec := doJSON(t, f, http.MethodPost, "/api/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: registered.RefreshToken})
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body authBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, registered.UserID, body.UserID)
	require.NotEqual(t, registered.RefreshToken, body.RefreshToken)

	// The rotated-out token is dead.
	rec = doJSON(t, f, http.MethodPost, "/api/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: registered.RefreshToken})
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpointWithBodyToken(t *testing.T) {
	f := newServerFixture(t)
	registered := registerViaAPI(t, f)

	rec := doJSON(t, f, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": registered.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshEndpointWithoutToken(t *testing.T) {
	f := newServerFixture(t)

	rec := doJSON(t, f, http.MethodPost, "/api/auth/refresh", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	f := newServerFixture(t)
	registered := registerViaAPI(t, f)

	rec := doJSON(t, f, http.MethodPost, "/api/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: registered.RefreshToken})
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.Empty(t, cookieByName(t, cookies, "access_token").Value)
	require.Empty(t, cookieByName(t, cookies, "refresh_token").Value)

	rec = doJSON(t, f, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": registered.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logging out again, or with no cookie at all, still succeeds.
	rec = doJSON(t, f, http.MethodPost, "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMeEndpoint(t *testing.T) {
	f := newServerFixture(t)
	registered := registerViaAPI(t, f)

	rec := doJSON(t, f, http.MethodGet, "/api/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, registered.UserID, body["userId"])
	require.Equal(t, testEmail, body["email"])
}

func TestMeEndpointRequiresAuth(t *testing.T) {
	f := newServerFixture(t)

	rec := doJSON(t, f, http.MethodGet, "/api/auth/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	f := newServerFixture(t)
	registered := registerViaAPI(t, f)

	rec := doJSON(t, f, http.MethodPost, "/api/auth/change-password", map[string]string{
		"currentPassword": testPassword,
		"newPassword":     "An0therSecret",
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Every outstanding refresh token died with the old password.
	rec = doJSON(t, f, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": registered.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, f, http.MethodPost, "/api/auth/login", map[string]string{
		"email": testEmail, "password": "An0therSecret",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutAllEndpoint(t *testing.T) {
	f := newServerFixture(t)
	registered := registerViaAPI(t, f)

	// Second session for the same account.
	rec := doJSON(t, f, http.MethodPost, "/api/auth/login", map[string]string{
		"email": testEmail, "password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var second authBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))

	rec = doJSON(t, f, http.MethodPost, "/api/auth/logout-all", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, refreshToken := range []string{registered.RefreshToken, second.RefreshToken} {
		rec = doJSON(t, f, http.MethodPost, "/api/auth/refresh", map[string]string{
			"refreshToken": refreshToken,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestExchangeEndpoint(t *testing.T) {
	f := newServerFixture(t)

	code := f.srv.Bridge().IssueCode("access-1", "refresh-1")

	rec := doJSON(t, f, http.MethodPost, "/api/auth/oauth2/exchange", map[string]string{"code": code}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "access-1", body["accessToken"])
	require.Equal(t, "refresh-1", body["refreshToken"])

	cookies := rec.Result().Cookies()
	require.Equal(t, "access-1", cookieByName(t, cookies, "access_token").Value)
	require.Equal(t, "refresh-1", cookieByName(t, cookies, "refresh_token").Value)

	// Second redeem of the same code fails.
	rec = doJSON(t, f, http.MethodPost, "/api/auth/oauth2/exchange", map[string]string{"code": code}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExchangeEndpointUnknownCode(t *testing.T) {
	f := newServerFixture(t)

	rec := doJSON(t, f, http.MethodPost, "/api/auth/oauth2/exchange", map[string]string{"code": "bogus"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, f, http.MethodPost, "/api/auth/oauth2/exchange", map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rec := doJSON(t, f, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
