package otp

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

const (
	stubCodeLength   = 6
	stubChallengeTTL = 10 * time.Minute
)

// StubGateway is an in-process provider for local development and tests. It
// issues ulid method handles and real random numeric codes; with acceptAny
// set it verifies any code, which keeps manual testing friction-free.
type StubGateway struct {
	mu         sync.Mutex
	challenges map[id.MethodID]stubChallenge
	acceptAny  bool
	logger     *slog.Logger
}

type stubChallenge struct {
	destination string
	code        string
	expiresAt   time.Time
}

// StubOption configures the stub gateway.
type StubOption func(*StubGateway)

// WithAcceptAny makes Authenticate accept every code. Development only.
func WithAcceptAny() StubOption {
	return func(g *StubGateway) {
		g.acceptAny = true
	}
}

// WithStubLogger logs issued codes at debug level for local flows.
func WithStubLogger(logger *slog.Logger) StubOption {
	return func(g *StubGateway) {
		g.logger = logger
	}
}

// NewStubGateway creates an in-memory OTP gateway.
func NewStubGateway(opts ...StubOption) *StubGateway {
	g := &StubGateway{challenges: make(map[id.MethodID]stubChallenge)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *StubGateway) Send(_ context.Context, destination, channel string) (id.MethodID, error) {
	if destination == "" {
		return "", dErrors.New(dErrors.CodeGateway, "destination is required")
	}
	code, err := generateNumericCode(stubCodeLength)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeGateway, "generate code")
	}
	methodID := id.MethodID(ulid.Make().String())

	g.mu.Lock()
	g.challenges[methodID] = stubChallenge{
		destination: destination,
		code:        code,
		expiresAt:   time.Now().Add(stubChallengeTTL),
	}
	g.mu.Unlock()

	if g.logger != nil {
		g.logger.Debug("stub otp issued",
			"method_id", methodID.String(),
			"destination", destination,
			"channel", channel,
			"code", code,
		)
	}
	return methodID, nil
}

func (g *StubGateway) Authenticate(_ context.Context, methodID id.MethodID, code string) (bool, error) {
	g.mu.Lock()
	challenge, ok := g.challenges[methodID]
	g.mu.Unlock()

	if !ok {
		return false, dErrors.New(dErrors.CodeGateway, "unknown method id")
	}
	if time.Now().After(challenge.expiresAt) {
		return false, nil
	}
	if g.acceptAny {
		return true, nil
	}
	return challenge.code == code, nil
}

// generateNumericCode draws each digit from crypto/rand.
func generateNumericCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
