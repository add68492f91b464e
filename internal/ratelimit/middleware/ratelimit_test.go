package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/audit"
	platformMW "github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/middleware"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/models"
)

type stubLimiter struct {
	result *models.Result
	err    error
	calls  []string
}

func (s *stubLimiter) Check(_ context.Context, class models.EndpointClass, identity string) (*models.Result, error) {
	s.calls = append(s.calls, string(class)+":"+identity)
	return s.result, s.err
}

func serve(t *testing.T, limiter RateLimiter, class models.EndpointClass) *httptest.ResponseRecorder {
	t.Helper()
	mw := New(limiter, slog.Default())
	handler := platformMW.ClientIP(mw.RateLimit(class)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/verification/status/vs_x", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitAllowed(t *testing.T) {
	limiter := &stubLimiter{result: &models.Result{
		Allowed:   true,
		Limit:     5,
		Remaining: 4,
		ResetAt:   time.Unix(1750000000, 0),
	}}

	rec := serve(t, limiter, models.ClassOTPSend)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1750000000", rec.Header().Get("X-RateLimit-Reset"))
	require.Len(t, limiter.calls, 1)
	assert.Equal(t, "otp_send:203.0.113.7", limiter.calls[0], "keyed by class and client ip")
}

func TestRateLimitExceeded(t *testing.T) {
	limiter := &stubLimiter{result: &models.Result{
		Allowed:    false,
		Limit:      5,
		Remaining:  0,
		ResetAt:    time.Unix(1750000000, 0),
		RetryAfter: 42,
	}}

	rec := serve(t, limiter, models.ClassLogin)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	var body models.RateLimitExceededResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body.Error)
	assert.Equal(t, 42, body.RetryAfter)
}

type capturingPublisher struct {
	events []audit.Event
}

func (p *capturingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.events = append(p.events, event)
	return nil
}

func TestRateLimitDenialEmitsAuditEvent(t *testing.T) {
	limiter := &stubLimiter{result: &models.Result{
		Allowed:    false,
		Limit:      5,
		ResetAt:    time.Unix(1750000000, 0),
		RetryAfter: 60,
	}}
	publisher := &capturingPublisher{}
	mw := New(limiter, slog.Default(), WithAuditPublisher(publisher))
	handler := platformMW.ClientIP(mw.RateLimit(models.ClassOTPSend)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodPost, "/verification/send-otp", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, string(audit.EventRateLimitExceeded), publisher.events[0].Action)
	assert.Equal(t, "203.0.113.7", publisher.events[0].Subject)
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("store down")}

	rec := serve(t, limiter, models.ClassGeneric)

	assert.Equal(t, http.StatusOK, rec.Code, "a broken limiter must not take the endpoint down")
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
