package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/sentinel"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/models"
	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
)

const (
	sessionKeyPrefix = "verification_session:"

	// casMaxRetries bounds the optimistic-concurrency retry loop. Contention
	// on a single session is rare (one user driving one flow), so a handful
	// of retries is plenty.
	casMaxRetries = 5
)

// sessionJSON is the JSON-serializable representation of a VerificationSession.
// We use explicit JSON tags to control serialization format.
type sessionJSON struct {
	ID            string `json:"id"`
	Flow          string `json:"flow"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	AccountID     string `json:"account_id,omitempty"`
	TargetValue   string `json:"target_value,omitempty"`
	PhoneVerified bool   `json:"phone_verified"`
	EmailVerified bool   `json:"email_verified"`
	PhoneMethodID string `json:"phone_method_id,omitempty"`
	EmailMethodID string `json:"email_method_id,omitempty"`
	AttemptsPhone int    `json:"attempts_phone"`
	AttemptsEmail int    `json:"attempts_email"`
	CreatedAt     int64  `json:"created_at"` // Unix nano
	ExpiresAt     int64  `json:"expires_at"` // Unix nano
	Status        string `json:"status"`
}

func sessionToJSON(s *models.VerificationSession) *sessionJSON {
	j := &sessionJSON{
		ID:            s.ID.String(),
		Flow:          string(s.Flow),
		Phone:         s.Phone,
		Email:         s.Email,
		TargetValue:   s.TargetValue,
		PhoneVerified: s.PhoneVerified,
		EmailVerified: s.EmailVerified,
		PhoneMethodID: s.PhoneMethodID.String(),
		EmailMethodID: s.EmailMethodID.String(),
		AttemptsPhone: s.AttemptsPhone,
		AttemptsEmail: s.AttemptsEmail,
		CreatedAt:     s.CreatedAt.UnixNano(),
		ExpiresAt:     s.ExpiresAt.UnixNano(),
		Status:        string(s.Status),
	}
	if !s.AccountID.IsNil() {
		j.AccountID = s.AccountID.String()
	}
	return j
}

func sessionFromJSON(j *sessionJSON) (*models.VerificationSession, error) {
	sessionID, err := id.ParseSessionID(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	s := &models.VerificationSession{
		ID:            sessionID,
		Flow:          id.Flow(j.Flow),
		Phone:         j.Phone,
		Email:         j.Email,
		TargetValue:   j.TargetValue,
		PhoneVerified: j.PhoneVerified,
		EmailVerified: j.EmailVerified,
		PhoneMethodID: id.MethodID(j.PhoneMethodID),
		EmailMethodID: id.MethodID(j.EmailMethodID),
		AttemptsPhone: j.AttemptsPhone,
		AttemptsEmail: j.AttemptsEmail,
		CreatedAt:     time.Unix(0, j.CreatedAt),
		ExpiresAt:     time.Unix(0, j.ExpiresAt),
		Status:        models.SessionStatus(j.Status),
	}
	if j.AccountID != "" {
		accountID, err := id.ParseAccountID(j.AccountID)
		if err != nil {
			return nil, fmt.Errorf("parse account id: %w", err)
		}
		s.AccountID = accountID
	}
	return s, nil
}

// RedisStore persists verification sessions in Redis. This is the
// implementation for multi-process deployments where instances share session
// state; Redis key TTLs mirror the session expiry so storage self-cleans.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// RedisOption configures the Redis store.
type RedisOption func(*RedisStore)

// WithRedisClock injects the time source for expiry checks.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func (s *RedisStore) Create(ctx context.Context, session *models.VerificationSession) error {
	data, err := json.Marshal(sessionToJSON(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session already expired: %w", sentinel.ErrExpired)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists: %w", session.ID, sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID id.SessionID) (*models.VerificationSession, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	session, err := s.decode(data)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(s.now()) {
		// The Redis TTL should have evicted this already; delete defensively.
		_ = s.client.Del(ctx, sessionKey(sessionID)).Err()
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return session, nil
}

// Update applies the mutator under optimistic concurrency: WATCH the key,
// mutate a decoded copy, then write back in a MULTI/EXEC transaction. A
// concurrent writer aborts the transaction and the loop retries.
func (s *RedisStore) Update(ctx context.Context, sessionID id.SessionID, mutate func(*models.VerificationSession) error) (*models.VerificationSession, error) {
	key := sessionKey(sessionID)

	var result *models.VerificationSession
	var mutErr error

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		session, err := s.decode(data)
		if err != nil {
			return err
		}
		if session.IsExpired(s.now()) {
			_, _ = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}

		mutErr = mutate(session)

		encoded, err := json.Marshal(sessionToJSON(session))
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		ttl := session.ExpiresAt.Sub(s.now())
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = session
		return nil
	}

	for range casMaxRetries {
		mutErr = nil
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if mutErr != nil {
			return nil, mutErr
		}
		return result, nil
	}
	return nil, fmt.Errorf("session update contention: %w", sentinel.ErrConflict)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	deleted, err := s.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// DeleteExpired is a no-op for Redis; key TTLs handle eviction.
func (s *RedisStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) decode(data []byte) (*models.VerificationSession, error) {
	var j sessionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sessionFromJSON(&j)
}
