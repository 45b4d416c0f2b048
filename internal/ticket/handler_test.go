// AngelaMos | 2026
// handler_test.go

package ticket

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

type routerOption func(*routerConfig)

type routerConfig struct {
	limit func(http.Handler) http.Handler
}

func withVerifyLimit(mw func(http.Handler) http.Handler) routerOption {
	return func(c *routerConfig) { c.limit = mw }
}

func do(
	t *testing.T,
	svc *Service,
	c identity.Caller,
	method, path, body string,
	opts ...routerOption,
) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, asCaller(c), cfg.limit)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHandler_BookListVerify(t *testing.T) {
	svc, _, _ := newTestService()

	rec, env := do(t, svc, alice, http.MethodPost, "/events/"+approvedID+"/tickets", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var booked BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &booked))
	assert.Equal(t, "Booked! Your Ticket ID: "+booked.Ticket.TicketID, booked.Message)
	assert.Equal(t, StatusValid, booked.Ticket.Status)

	rec, env = do(t, svc, alice, http.MethodGet, "/tickets/mine", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var mine []TicketResponse
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, booked.Ticket.TicketID, mine[0].TicketID)

	body := `{"ticket_id":"` + booked.Ticket.TicketID + `"}`

	rec, env = do(t, svc, hoster, http.MethodPost, "/tickets/verify", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var verified VerifyResponse
	require.NoError(t, json.Unmarshal(env.Data, &verified))
	assert.Equal(t, OutcomeValid, verified.Result)
	assert.Equal(t, "Valid Ticket, checked in now.", verified.Message)
	require.NotNil(t, verified.Ticket)
	assert.Equal(t, StatusCheckedIn, verified.Ticket.Status)

	rec, env = do(t, svc, admin, http.MethodPost, "/tickets/verify", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &verified))
	assert.Equal(t, OutcomeAlreadyUsed, verified.Result)
	assert.Equal(t, "Ticket Already Used", verified.Message)
}

func TestHandler_VerifyUnknownIsNotAnError(t *testing.T) {
	svc, _, _ := newTestService()

	rec, env := do(t, svc, hoster, http.MethodPost, "/tickets/verify", `{"ticket_id":"T-NOPE-ZZZZZ"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	var verified VerifyResponse
	require.NoError(t, json.Unmarshal(env.Data, &verified))
	assert.Equal(t, OutcomeInvalid, verified.Result)
	assert.Equal(t, "Invalid Ticket", verified.Message)
	assert.Nil(t, verified.Ticket)
}

func TestHandler_VerifyBodyValidation(t *testing.T) {
	svc, _, _ := newTestService()

	rec, _ := do(t, svc, hoster, http.MethodPost, "/tickets/verify", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, svc, hoster, http.MethodPost, "/tickets/verify", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_BookErrors(t *testing.T) {
	tests := []struct {
		name     string
		caller   identity.Caller
		eventID  string
		wantCode int
		wantErr  string
	}{
		{"pending event", alice, pendingID, http.StatusConflict, "CONFLICT"},
		{"unknown event", alice, "00000000-0000-0000-0000-000000000000", http.StatusNotFound, "NOT_FOUND"},
		{"hoster", hoster, approvedID, http.StatusForbidden, "FORBIDDEN"},
		{"anonymous", identity.Caller{}, approvedID, http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService()

			rec, env := do(t, svc, tt.caller, http.MethodPost, "/events/"+tt.eventID+"/tickets", "")
			assert.Equal(t, tt.wantCode, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func TestHandler_VerifyRoleGate(t *testing.T) {
	svc, _, _ := newTestService()

	rec, _ := do(t, svc, alice, http.MethodPost, "/tickets/verify", `{"ticket_id":"T-A-AAAAA"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, svc, identity.Caller{}, http.MethodPost, "/tickets/verify", `{"ticket_id":"T-A-AAAAA"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_VerifyLimitAppliesOnlyToVerify(t *testing.T) {
	svc, _, _ := newTestService()

	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false}`))
		})
	}

	rec, _ := do(t, svc, hoster, http.MethodPost, "/tickets/verify",
		`{"ticket_id":"T-A-AAAAA"}`, withVerifyLimit(deny))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = do(t, svc, alice, http.MethodPost, "/events/"+approvedID+"/tickets",
		"", withVerifyLimit(deny))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandler_ListStoreFailureIsRetryable(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.failAll = errors.New("connection refused")

	rec, env := do(t, svc, alice, http.MethodGet, "/tickets/mine", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "STORE_UNAVAILABLE", env.Error.Code)
	assert.True(t, env.Error.Retryable)
}
