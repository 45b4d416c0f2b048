// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status string

func passthrough(next http.Handler) http.Handler { return next }

func deny(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
}

func get(t *testing.T, h *Handler, gate func(http.Handler) http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r, passthrough, gate)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestCounts(t *testing.T) {
	fn := Counts(func(context.Context) (map[status]int, error) {
		return map[status]int{"Pending": 2, "Approved": 5}, nil
	})

	got, err := fn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Pending": 2, "Approved": 5}, got)

	failing := Counts(func(context.Context) (map[status]int, error) {
		return nil, errors.New("boom")
	})
	_, err = failing(context.Background())
	assert.Error(t, err)
}

func TestSystemStats(t *testing.T) {
	h := NewHandler(HandlerConfig{
		DBPing:  func(context.Context) error { return nil },
		BusPing: func(context.Context) error { return errors.New("nats: connection closed") },
		Roles: func(context.Context) (map[string]int, error) {
			return map[string]int{"User": 3, "Admin": 1}, nil
		},
		Events: func(context.Context) (map[string]int, error) {
			return nil, errors.New("timeout")
		},
		Lifecycle: func() (map[string]float64, error) {
			return map[string]float64{"ticket.booked": 4}, nil
		},
	})

	rec := get(t, h, passthrough, "/admin/system")
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	assert.True(t, env.Data.Database.Healthy)
	assert.Nil(t, env.Data.Database.Stats)
	assert.True(t, env.Data.Redis.Healthy)
	assert.False(t, env.Data.Bus.Healthy)
	assert.Equal(t, 3, env.Data.Activity.UsersByRole["User"])
	assert.Nil(t, env.Data.Activity.EventsByStatus)
	assert.Nil(t, env.Data.Activity.TicketsByStatus)
	assert.InDelta(t, 4.0, env.Data.Activity.Lifecycle["ticket.booked"], 0)
	assert.NotEmpty(t, env.Data.Runtime.GoVersion)
}

func TestRoutesAreGated(t *testing.T) {
	h := NewHandler(HandlerConfig{})

	for _, path := range []string{
		"/admin/system",
		"/admin/system/db",
		"/admin/system/redis",
		"/admin/system/runtime",
		"/admin/system/activity",
	} {
		assert.Equal(t, http.StatusForbidden, get(t, h, deny, path).Code, path)
		assert.Equal(t, http.StatusOK, get(t, h, passthrough, path).Code, path)
	}
}
