package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/config"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/sentinel"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

// AccountStore defines the persistence interface for account data.
// Error Contract: Find methods return sentinel.ErrNotFound when the entity doesn't exist.
type AccountStore interface {
	FindOrCreate(ctx context.Context, phone, email string, candidate *Account) (*Account, error)
	FindByID(ctx context.Context, accountID id.AccountID) (*Account, error)
	UpdatePhone(ctx context.Context, accountID id.AccountID, newPhone string, at time.Time) (*Account, error)
}

// accountClaims are the JWT claims inside an issued credential.
type accountClaims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// Service resolves accounts and issues credentials. The orchestrator calls
// it on successful flow completion; the auth middleware calls it to verify
// bearer tokens on guarded endpoints.
type Service struct {
	accounts   AccountStore
	signingKey []byte
	tokenTTL   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
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

func New(accounts AccountStore, cfg config.CredentialConfig, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("credential signing key is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &Service{
		accounts:   accounts,
		signingKey: []byte(cfg.SigningKey),
		tokenTTL:   ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// FindOrCreateAccount resolves the durable account for a verified
// phone+email pair, creating one on first login.
func (s *Service) FindOrCreateAccount(ctx context.Context, phone, email string) (id.AccountID, error) {
	now := s.now()
	candidate := &Account{
		ID:        id.AccountID(uuid.New()),
		Phone:     phone,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	account, err := s.accounts.FindOrCreate(ctx, phone, email, candidate)
	if err != nil {
		return id.AccountID(uuid.Nil), dErrors.Wrap(err, dErrors.CodeInternal, "failed to find or create account")
	}
	if account.ID == candidate.ID {
		s.logger.InfoContext(ctx, "account created", "account_id", account.ID.String())
	}
	return account.ID, nil
}

// IssueCredential signs a bearer token for the account.
func (s *Service) IssueCredential(_ context.Context, accountID id.AccountID) (*Credential, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := accountClaims{
		AccountID: accountID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign credential")
	}
	return &Credential{Token: token, ExpiresAt: expiresAt}, nil
}

// VerifyCredential validates a bearer token and returns the account it was
// issued for. Implements the auth middleware's verifier contract.
func (s *Service) VerifyCredential(_ context.Context, token string) (id.AccountID, error) {
	var claims accountClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return id.AccountID(uuid.Nil), dErrors.New(dErrors.CodeUnauthorized, "invalid or expired credential")
	}
	return id.ParseAccountID(claims.AccountID)
}

// GetAccount loads an account by id.
func (s *Service) GetAccount(ctx context.Context, accountID id.AccountID) (*Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return account, nil
}

// ChangePhone commits a verified phone mutation.
func (s *Service) ChangePhone(ctx context.Context, accountID id.AccountID, newPhone string) (*Account, error) {
	account, err := s.accounts.UpdatePhone(ctx, accountID, newPhone, s.now())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "phone number already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update phone")
	}
	s.logger.InfoContext(ctx, "account phone changed", "account_id", accountID.String())
	return account, nil
}
