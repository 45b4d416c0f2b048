// AngelaMos | 2026
// handler_test.go

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/eventhub/internal/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func staticRole(role string) middleware.RoleFunc {
	return func(context.Context, string, string) string { return role }
}

func newTestRouter(f *serviceFixture, role string) chi.Router {
	r := chi.NewRouter()
	authenticator := middleware.Authenticator(f.svc)
	optional := func(next http.Handler) http.Handler {
		return middleware.OptionalAuth(f.svc)(middleware.ResolveRole(staticRole(role))(next))
	}
	NewHandler(f.svc).RegisterRoutes(r, authenticator, optional)
	return r
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_SignupAndDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(f, "User")
	body := `{"email":"bob@example.com","password":"password123"}`

	rec := post(router, "/auth/signup", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &resp))
	assert.Equal(t, "bob@example.com", resp.Principal.Email)

	rec = post(router, "/auth/signup", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already exists", decode(t, rec).Error.Message)
}

func TestHandler_SignupValidation(t *testing.T) {
	router := newTestRouter(newServiceFixture(t), "User")

	rec := post(router, "/auth/signup", `{"email":"not-an-email","password":"short"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Error.Code)
}

func TestHandler_LoginRejectsBadCredentials(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(f, "User")

	require.Equal(t, http.StatusCreated,
		post(router, "/auth/signup", `{"email":"carol@example.com","password":"password123"}`).Code)

	rec := post(router, "/auth/login", `{"email":"carol@example.com","password":"password999"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decode(t, rec).Error.Message)
}

func TestHandler_SessionAnonymous(t *testing.T) {
	router := newTestRouter(newServiceFixture(t), "User")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var session SessionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &session))
	assert.False(t, session.Authenticated)
}

func TestHandler_SessionAuthenticated(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(f, "Hoster")

	resp, err := f.svc.Register(context.Background(), creds, "", "")
	require.NoError(t, err)
	claims, err := f.jwt.ParseAccessToken(resp.Tokens.AccessToken)
	require.NoError(t, err)
	f.redis.ExpectExists(blacklistPrefix + claims.JTI).SetVal(0)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Tokens.AccessToken)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var session SessionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &session))
	assert.True(t, session.Authenticated)
	assert.Equal(t, resp.Principal.ID, session.UserID)
	assert.Equal(t, "Hoster", session.Role)
}

func TestHandler_LogoutRequiresToken(t *testing.T) {
	router := newTestRouter(newServiceFixture(t), "User")

	rec := post(router, "/auth/logout", `{}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
