package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/audit"
	platformMW "github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/middleware"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/models"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/transport/http/json"
)

// RateLimiter is what the middleware needs from the checker service.
type RateLimiter interface {
	Check(ctx context.Context, class models.EndpointClass, identity string) (*models.Result, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Middleware struct {
	limiter        RateLimiter
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Middleware)

// WithAuditPublisher emits an audit event for every denied request.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(m *Middleware) {
		m.auditPublisher = publisher
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RateLimit enforces the tier for the endpoint class, keyed by client IP.
// A checker failure fails open: availability beats strictness for a limiter.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := platformMW.GetClientIP(ctx)

			result, err := m.limiter.Check(ctx, class, ip)
			if err != nil {
				m.logger.Error("failed to check rate limit", "error", err, "class", string(class))
				next.ServeHTTP(w, r)
				return
			}

			// Add headers regardless of outcome
			addRateLimitHeaders(w, result)

			if !result.Allowed {
				m.logger.Warn("rate limit exceeded",
					"class", string(class),
					"ip", ip,
					"retry_after", result.RetryAfter,
					"request_id", platformMW.GetRequestID(ctx),
				)
				if m.auditPublisher != nil {
					_ = m.auditPublisher.Emit(ctx, audit.Event{
						Subject:   ip,
						Action:    string(audit.EventRateLimitExceeded),
						Reason:    "class " + string(class),
						RequestID: platformMW.GetRequestID(ctx),
					})
				}
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// addRateLimitHeaders adds X-RateLimit-* headers to the response.
func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	json.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
