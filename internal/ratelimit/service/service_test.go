package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/config"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/models"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/store/bucket"
)

func testTiers() config.RateLimitConfig {
	return config.RateLimitConfig{
		Generic: config.Tier{Window: time.Minute, MaxRequests: 10},
		OTPSend: config.Tier{Window: time.Minute, MaxRequests: 2},
		Login:   config.Tier{Window: time.Minute, MaxRequests: 5},
	}
}

func TestCheckerRequiresStore(t *testing.T) {
	_, err := New(nil, testTiers())
	assert.Error(t, err)
}

func TestCheckerRejectsInvalidTiers(t *testing.T) {
	store := bucket.NewInMemoryBucketStore()

	_, err := New(store, config.RateLimitConfig{})
	assert.Error(t, err, "a zero-valued config has no usable tiers")

	cfg := testTiers()
	cfg.OTPSend.MaxRequests = 0
	_, err = New(store, cfg)
	assert.Error(t, err)

	cfg = testTiers()
	cfg.Login.Window = 0
	_, err = New(store, cfg)
	assert.Error(t, err)
}

func TestCheckerEnforcesPerClassTiers(t *testing.T) {
	checker, err := New(bucket.NewInMemoryBucketStore(), testTiers())
	require.NoError(t, err)
	ctx := context.Background()

	// The narrow OTP-send tier exhausts first for the same identity.
	for i := 0; i < 2; i++ {
		result, err := checker.Check(ctx, models.ClassOTPSend, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
	result, err := checker.Check(ctx, models.ClassOTPSend, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// The login tier for the same identity still has budget.
	result, err = checker.Check(ctx, models.ClassLogin, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 5, result.Limit)
}

func TestCheckerUnknownClassFallsBackToGeneric(t *testing.T) {
	checker, err := New(bucket.NewInMemoryBucketStore(), testTiers())
	require.NoError(t, err)

	result, err := checker.Check(context.Background(), models.EndpointClass("unknown"), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 10, result.Limit)
}

func TestCheckerSeparatesIdentities(t *testing.T) {
	checker, err := New(bucket.NewInMemoryBucketStore(), testTiers())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := checker.Check(ctx, models.ClassOTPSend, "10.0.0.1")
		require.NoError(t, err)
	}
	result, err := checker.Check(ctx, models.ClassOTPSend, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
