// AngelaMos | 2026
// handler_test.go

package event

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/eventhub/internal/identity"
	"github.com/carterperez-dev/eventhub/internal/middleware"
)

func asCaller(c identity.Caller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if c.ID != "" {
				ctx = context.WithValue(ctx, middleware.UserIDKey, c.ID)
				ctx = context.WithValue(ctx, middleware.UserEmailKey, c.Email)
			}
			if c.Role != identity.RoleUnknown {
				ctx = context.WithValue(ctx, middleware.UserRoleKey, c.Role.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

func do(
	t *testing.T,
	svc *Service,
	c identity.Caller,
	method, path, body string,
) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, asCaller(c), asCaller(c))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

const jazzBody = `{
	"title": "Jazz Night",
	"description": "Live jazz",
	"date": "2025-06-01",
	"time": "20:00",
	"location": "Blue Room",
	"ticket_price": 20,
	"total_tickets": 100
}`

func TestHandler_SubmitApproveCatalog(t *testing.T) {
	svc, _, _ := newTestService()

	rec, env := do(t, svc, hoster, http.MethodPost, "/hoster/events", jazzBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created EventResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, StatusPending, created.Status)

	rec, _ = do(t, svc, admin, http.MethodPut,
		"/admin/events/"+created.ID+"/decision", `{"decision":"Approved"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, svc, identity.Caller{}, http.MethodGet, "/events?search=jazz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog []EventResponse
	require.NoError(t, json.Unmarshal(env.Data, &catalog))
	require.Len(t, catalog, 1)
	assert.Equal(t, "Jazz Night", catalog[0].Title)

	rec, _ = do(t, svc, admin, http.MethodPut,
		"/admin/events/"+created.ID+"/decision", `{"decision":"Rejected"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_SubmitRejectsNonNumericFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "price",
			body: strings.Replace(jazzBody, `"ticket_price": 20`, `"ticket_price": "twenty"`, 1),
			want: "ticket_price must be a number",
		},
		{
			name: "capacity",
			body: strings.Replace(jazzBody, `"total_tickets": 100`, `"total_tickets": "lots"`, 1),
			want: "total_tickets must be a number",
		},
		{
			name: "missing price",
			body: strings.Replace(jazzBody, `"ticket_price": 20,`, ``, 1),
			want: "TicketPrice is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService()

			rec, env := do(t, svc, hoster, http.MethodPost, "/hoster/events", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, env.Error.Message)
			assert.Empty(t, repo.events)
		})
	}
}

func TestHandler_RoleGates(t *testing.T) {
	svc, _, _ := newTestService()

	rec, _ := do(t, svc, user, http.MethodPost, "/hoster/events", jazzBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, svc, hoster, http.MethodGet, "/admin/events/pending", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, svc, identity.Caller{ID: "x"}, http.MethodGet, "/hoster/events", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_CatalogStoreFailureIsRetryable(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.failAll = errors.New("connection refused")

	rec, env := do(t, svc, identity.Caller{}, http.MethodGet, "/events", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", env.Error.Code)
	assert.True(t, env.Error.Retryable)
}

func TestHandler_GetUnknownEvent(t *testing.T) {
	svc, _, _ := newTestService()

	rec, _ := do(t, svc, identity.Caller{}, http.MethodGet, "/events/does-not-exist", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GetHidesUndecidedEvents(t *testing.T) {
	svc, _, _ := newTestService()

	pending, err := svc.Submit(context.Background(), hoster, jazzNight())
	require.NoError(t, err)
	rejected, err := svc.Submit(context.Background(), hoster, jazzNight())
	require.NoError(t, err)
	_, err = svc.Decide(context.Background(), admin, rejected.ID, StatusRejected)
	require.NoError(t, err)

	otherHoster := identity.Caller{ID: "hoster-2", Email: "h2@example.com", Role: identity.RoleHoster}

	tests := []struct {
		name     string
		caller   identity.Caller
		eventID  string
		wantCode int
	}{
		{"anonymous on pending", identity.Caller{}, pending.ID, http.StatusNotFound},
		{"user on pending", user, pending.ID, http.StatusNotFound},
		{"other hoster on pending", otherHoster, pending.ID, http.StatusNotFound},
		{"anonymous on rejected", identity.Caller{}, rejected.ID, http.StatusNotFound},
		{"owner on pending", hoster, pending.ID, http.StatusOK},
		{"owner on rejected", hoster, rejected.ID, http.StatusOK},
		{"admin on pending", admin, pending.ID, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, svc, tt.caller, http.MethodGet, "/events/"+tt.eventID, "")

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusNotFound {
				assert.NotContains(t, rec.Body.String(), "Jazz Night")
				return
			}
			var got EventResponse
			require.NoError(t, json.Unmarshal(env.Data, &got))
			assert.Equal(t, tt.eventID, got.ID)
		})
	}
}
