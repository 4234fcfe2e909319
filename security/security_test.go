package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newRequestEvent(req *http.Request) *core.RequestEvent {
	return &core.RequestEvent{Event: router.Event{Response: httptest.NewRecorder(), Request: req}}
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()

	var apiErr *router.ApiError
	require.True(t, errors.As(err, &apiErr), "expected an ApiError, got %v", err)
	return apiErr.Status
}

func fixedLimiter(t *testing.T, perMinute int) (*RateLimiter, redismock.ClientMock, string) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, perMinute)
	now := time.Unix(1_700_000_040, 0)
	limiter.now = func() time.Time { return now }
	return limiter, mock, "ratelimit:192.0.2.1:28333334"
}

func TestRateLimiter_FirstRequestSetsExpiry(t *testing.T) {
	limiter, mock, key := fixedLimiter(t, 5)
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", nil)
	err := limiter.Limit(newRequestEvent(req))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_WithinBudget(t *testing.T) {
	limiter, mock, key := fixedLimiter(t, 5)
	mock.ExpectIncr(key).SetVal(5)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", nil)
	err := limiter.Limit(newRequestEvent(req))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_OverBudget(t *testing.T) {
	limiter, mock, key := fixedLimiter(t, 5)
	mock.ExpectIncr(key).SetVal(6)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", nil)
	err := limiter.Limit(newRequestEvent(req))

	assert.Equal(t, http.StatusTooManyRequests, apiStatus(t, err))
}

func TestRateLimiter_RedisDownFailsOpen(t *testing.T) {
	limiter, mock, key := fixedLimiter(t, 5)
	mock.ExpectIncr(key).SetErr(errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", nil)
	err := limiter.Limit(newRequestEvent(req))

	assert.NoError(t, err)
}

func TestRateLimiter_SuspiciousUserAgent(t *testing.T) {
	limiter, mock, _ := fixedLimiter(t, 5)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", nil)
	req.Header.Set("User-Agent", "TicketScraper/1.0")
	err := limiter.Limit(newRequestEvent(req))

	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", clientIP(req))
}

func TestAdminGuard(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	guard := NewAdminGuard(string(hash))

	tests := []struct {
		name     string
		header   string
		value    string
		expected int
	}{
		{"Token header", AdminTokenHeader, "s3cret", 0},
		{"Bearer token", "Authorization", "Bearer s3cret", 0},
		{"Wrong token", AdminTokenHeader, "guess", http.StatusUnauthorized},
		{"Missing token", "", "", http.StatusUnauthorized},
		{"Basic auth is not accepted", "Authorization", "Basic s3cret", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/mine", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			err := guard.Require(newRequestEvent(req))

			if tt.expected == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.expected, apiStatus(t, err))
		})
	}
}

func TestAdminGuard_Disabled(t *testing.T) {
	guard := NewAdminGuard("")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/mine", nil)
	req.Header.Set(AdminTokenHeader, "anything")
	err := guard.Require(newRequestEvent(req))

	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))
}

func TestHashToken(t *testing.T) {
	hash, err := HashToken("s3cret")
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}
