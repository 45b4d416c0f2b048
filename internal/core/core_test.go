// AngelaMos | 2026
// core_test.go

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("create: %w", ErrDuplicateKey), http.StatusConflict, "DUPLICATE"},
		{fmt.Errorf("submit: %w", ErrInvalidInput), http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("list: %w", ErrUnauthorized), http.StatusUnauthorized, "UNAUTHORIZED"},
		{fmt.Errorf("decide: %w", ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("decide: %w", ErrInvalidTransition), http.StatusConflict, "INVALID_TRANSITION"},
		{fmt.Errorf("book: %w", ErrConflict), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("view: %w", ErrStoreUnavailable), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{ForbiddenError("nope"), http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			appErr := ToAppError(tt.err, "event")
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestJSONErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, StoreUnavailableError(errors.New("dial tcp")))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "STORE_UNAVAILABLE", body.Error.Code)
	assert.True(t, body.Error.Retryable)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}

func TestRandomBase36(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-Z]{5}$`)

	for range 100 {
		s, err := RandomBase36(5)
		require.NoError(t, err)
		assert.Regexp(t, pattern, s)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	ok, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, "role:", time.Minute)
	ctx := context.Background()

	mock.ExpectGet("role:u-1").SetVal("Hoster")
	val, ok := cache.Get(ctx, "u-1")
	assert.True(t, ok)
	assert.Equal(t, "Hoster", val)

	mock.ExpectGet("role:u-2").RedisNil()
	_, ok = cache.Get(ctx, "u-2")
	assert.False(t, ok)

	mock.ExpectGet("role:u-3").SetErr(errors.New("connection reset"))
	_, ok = cache.Get(ctx, "u-3")
	assert.False(t, ok)

	mock.ExpectSet("role:u-1", "Admin", time.Minute).SetVal("OK")
	cache.Set(ctx, "u-1", "Admin")

	mock.ExpectDel("role:u-1").SetVal(1)
	cache.Delete(ctx, "u-1")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilCacheIsAMiss(t *testing.T) {
	var cache *Cache
	_, ok := cache.Get(context.Background(), "anything")
	assert.False(t, ok)
	cache.Set(context.Background(), "anything", "x")

	var cmdable redis.Cmdable
	_, ok = NewCache(cmdable, "p:", time.Second).Get(context.Background(), "k")
	assert.False(t, ok)
}
