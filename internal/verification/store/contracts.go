package store

import (
	"context"
	"time"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/models"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
)

// Store is the keyed, TTL-bound home of verification sessions.
//
// Error Contract:
// - Get/Update/Delete return sentinel.ErrNotFound when the session does not
//   exist; a session past its expiry behaves identically to a missing one
//   and is lazily deleted on access.
// - Create returns sentinel.ErrConflict when the id is already taken.
// - Infrastructure failures are returned wrapped with context.
//
// Update serializes per session id: the mutator runs with exclusive
// ownership of the record and its result is persisted atomically. The
// mutated state is persisted even when the mutator returns an error, so the
// state machine can record terminal transitions (e.g. abandonment) while
// still failing the operation; the mutator's error is passed through.
type Store interface {
	Create(ctx context.Context, session *models.VerificationSession) error
	Get(ctx context.Context, sessionID id.SessionID) (*models.VerificationSession, error)
	Update(ctx context.Context, sessionID id.SessionID, mutate func(*models.VerificationSession) error) (*models.VerificationSession, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
