package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/config"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/models"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

// BucketStore is the window-counter persistence contract.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
	Reset(ctx context.Context, key string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Checker enforces per-endpoint-class tiers keyed by client identity.
type Checker struct {
	store  BucketStore
	tiers  map[models.EndpointClass]config.Tier
	logger *slog.Logger
}

type Option func(*Checker)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

func New(store BucketStore, cfg config.RateLimitConfig, opts ...Option) (*Checker, error) {
	if store == nil {
		return nil, fmt.Errorf("bucket store is required")
	}
	tiers := map[models.EndpointClass]config.Tier{
		models.ClassGeneric: cfg.Generic,
		models.ClassOTPSend: cfg.OTPSend,
		models.ClassLogin:   cfg.Login,
	}
	for class, tier := range tiers {
		if tier.MaxRequests <= 0 {
			return nil, fmt.Errorf("tier %s: max requests must be positive", class)
		}
		if tier.Window <= 0 {
			return nil, fmt.Errorf("tier %s: window must be positive", class)
		}
	}
	c := &Checker{
		store: store,
		tiers: tiers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Check consumes one slot from the (class, identity) bucket. Denied requests
// do not consume capacity; only elapsed time resets the window.
func (c *Checker) Check(ctx context.Context, class models.EndpointClass, identity string) (*models.Result, error) {
	tier, ok := c.tiers[class]
	if !ok {
		tier = c.tiers[models.ClassGeneric]
	}
	key := string(class) + ":" + identity
	result, err := c.store.Allow(ctx, key, tier.MaxRequests, tier.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	return result, nil
}

// Sweep drops fully-elapsed buckets.
func (c *Checker) Sweep(ctx context.Context, now time.Time) (int, error) {
	return c.store.Sweep(ctx, now)
}
