package service

import (
	"context"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/audit"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/middleware"
)

// Observability helpers for logging, auditing, and metrics.
// These methods are on *Service to access logger, auditPublisher, and metrics.

func (s *Service) logAudit(ctx context.Context, event string, subject string, attributes ...any) {
	requestID := middleware.GetRequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   subject,
		Action:    event,
		RequestID: requestID,
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err)
	}
}

func (s *Service) incrementSessionsStarted(flow string) {
	if s.metrics != nil {
		s.metrics.IncrementSessionsStarted(flow)
	}
}

func (s *Service) incrementOTPSends(flow, medium string) {
	if s.metrics != nil {
		s.metrics.IncrementOTPSends(flow, medium)
	}
}

func (s *Service) incrementVerificationFailures() {
	if s.metrics != nil {
		s.metrics.IncrementVerificationFailures()
	}
}

func (s *Service) incrementGatewayErrors() {
	if s.metrics != nil {
		s.metrics.IncrementGatewayErrors()
	}
}

func (s *Service) incrementSessionsCompleted(flow string) {
	if s.metrics != nil {
		s.metrics.IncrementSessionsCompleted(flow)
	}
}

func (s *Service) incrementSessionsAbandoned() {
	if s.metrics != nil {
		s.metrics.IncrementSessionsAbandoned()
	}
}

func (s *Service) observeVerifyDuration(durationMs float64) {
	if s.metrics != nil {
		s.metrics.ObserveVerifyDuration(durationMs)
	}
}
