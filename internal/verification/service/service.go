package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/audit"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/identity"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/config"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/metrics"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/models"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
)

// SessionStore defines the persistence interface for verification sessions.
// Error Contract: Get/Update/Delete return sentinel.ErrNotFound for unknown
// or expired sessions; Update serializes per session id and persists the
// mutated state even when the mutator returns an error.
type SessionStore interface {
	Create(ctx context.Context, session *models.VerificationSession) error
	Get(ctx context.Context, sessionID id.SessionID) (*models.VerificationSession, error)
	Update(ctx context.Context, sessionID id.SessionID, mutate func(*models.VerificationSession) error) (*models.VerificationSession, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}

// Gateway is the OTP provider collaborator. Calls run outside any session
// lock and are bounded by the provider client's timeout.
type Gateway interface {
	Send(ctx context.Context, destination, channel string) (id.MethodID, error)
	Authenticate(ctx context.Context, methodID id.MethodID, code string) (bool, error)
}

// Identity is the session-issuance collaborator consulted on completion.
type Identity interface {
	FindOrCreateAccount(ctx context.Context, phone, email string) (id.AccountID, error)
	IssueCredential(ctx context.Context, accountID id.AccountID) (*identity.Credential, error)
	GetAccount(ctx context.Context, accountID id.AccountID) (*identity.Account, error)
	ChangePhone(ctx context.Context, accountID id.AccountID, newPhone string) (*identity.Account, error)
}

// AbuseDetector is consulted before starting work and fed on every explicit
// verification rejection. Gateway failures never reach it.
type AbuseDetector interface {
	RecordFailure(ctx context.Context, clientKey string) error
	IsBlocked(ctx context.Context, clientKey string) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives the verification session state machine for the login and
// guarded phone-change flows.
type Service struct {
	sessions       SessionStore
	gateway        Gateway
	identity       Identity
	abuse          AbuseDetector
	config         config.VerificationConfig
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAbuseDetector(detector AbuseDetector) Option {
	return func(s *Service) {
		s.abuse = detector
	}
}

// WithClock injects the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(sessions SessionStore, gateway Gateway, identitySvc Identity, cfg config.VerificationConfig, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("otp gateway is required")
	}
	if identitySvc == nil {
		return nil, fmt.Errorf("identity service is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	svc := &Service{
		sessions: sessions,
		gateway:  gateway,
		identity: identitySvc,
		config:   cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc, nil
}

// clientKey derives the abuse-detector key for a session: the phone for
// login flows (the underlying client identity before an account exists) and
// the account id for guarded changes.
func clientKey(session *models.VerificationSession) string {
	if session.Flow == id.FlowPhoneChange {
		return "account:" + session.AccountID.String()
	}
	return "phone:" + session.Phone
}
