package abuse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/audit"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/config"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/middleware"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

// Store is the persistence contract for failure windows.
type Store interface {
	RecordFailure(ctx context.Context, clientKey string, now time.Time) (*Record, error)
	Get(ctx context.Context, clientKey string, now time.Time) (*Record, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Detector tracks verification failures per client identity within a sliding
// window. Crossing the threshold blocks the client until the window elapses.
// The block is a one-way escalation: an intervening success never resets it,
// deliberately favoring false positives over missed abuse.
type Detector struct {
	store          Store
	auditPublisher AuditPublisher
	logger         *slog.Logger
	config         config.AbuseConfig
	now            func() time.Time
}

type Option func(*Detector)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(d *Detector) {
		d.auditPublisher = publisher
	}
}

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

func New(store Store, cfg config.AbuseConfig, opts ...Option) (*Detector, error) {
	if store == nil {
		return nil, fmt.Errorf("abuse store is required")
	}
	if cfg.Threshold <= 0 || cfg.Window <= 0 {
		return nil, fmt.Errorf("abuse window and threshold must be positive")
	}
	d := &Detector{
		store:  store,
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// RecordFailure charges one failure against the client. Crossing the
// threshold emits a high-severity security event.
func (d *Detector) RecordFailure(ctx context.Context, clientKey string) error {
	record, err := d.store.RecordFailure(ctx, clientKey, d.now())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record abuse failure")
	}
	if record.FailureCount == d.config.Threshold {
		d.logSecurityEvent(ctx, clientKey, record.FailureCount)
	}
	return nil
}

// RecordSuccess exists for the post-handler hook symmetry. Successes do not
// unwind the counter: blocks are one-way within a window.
func (d *Detector) RecordSuccess(_ context.Context, _ string) {}

// IsBlocked reports whether the client has crossed the failure threshold in
// the active window.
func (d *Detector) IsBlocked(ctx context.Context, clientKey string) (bool, error) {
	record, err := d.store.Get(ctx, clientKey, d.now())
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load abuse record")
	}
	return record != nil && record.FailureCount >= d.config.Threshold, nil
}

// Sweep evicts elapsed windows. Eviction is already lazy on access; this
// bounds memory for keys never touched again.
func (d *Detector) Sweep(ctx context.Context) (int, error) {
	return d.store.Sweep(ctx, d.now())
}

func (d *Detector) logSecurityEvent(ctx context.Context, clientKey string, failures int) {
	attrs := []any{
		"client_key", clientKey,
		"failure_count", failures,
		"window", d.config.Window.String(),
		"event", string(audit.EventClientBlocked),
		"log_type", "audit",
	}
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	if d.logger != nil {
		d.logger.WarnContext(ctx, string(audit.EventClientBlocked), attrs...)
	}
	if d.auditPublisher == nil {
		return
	}
	if err := d.auditPublisher.Emit(ctx, audit.Event{
		Subject:   clientKey,
		Action:    string(audit.EventClientBlocked),
		Reason:    fmt.Sprintf("%d failures within %s", failures, d.config.Window),
		Severity:  audit.SeverityHigh,
		RequestID: middleware.GetRequestID(ctx),
	}); err != nil && d.logger != nil {
		d.logger.ErrorContext(ctx, "failed to emit security event", "error", err)
	}
}
