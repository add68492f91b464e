package abuse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/audit"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/config"
)

type capturingPublisher struct {
	events []audit.Event
}

func (p *capturingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.events = append(p.events, event)
	return nil
}

func newTestDetector(t *testing.T, threshold int, window time.Duration, now *time.Time, publisher AuditPublisher) *Detector {
	t.Helper()
	opts := []Option{WithClock(func() time.Time { return *now })}
	if publisher != nil {
		opts = append(opts, WithAuditPublisher(publisher))
	}
	detector, err := New(NewInMemoryStore(window), config.AbuseConfig{Window: window, Threshold: threshold}, opts...)
	require.NoError(t, err)
	return detector
}

func TestDetectorValidation(t *testing.T) {
	_, err := New(nil, config.AbuseConfig{Window: time.Minute, Threshold: 5})
	assert.Error(t, err)

	_, err = New(NewInMemoryStore(time.Minute), config.AbuseConfig{Window: 0, Threshold: 5})
	assert.Error(t, err)

	_, err = New(NewInMemoryStore(time.Minute), config.AbuseConfig{Window: time.Minute, Threshold: 0})
	assert.Error(t, err)
}

func TestDetectorBlocksAtThreshold(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	detector := newTestDetector(t, 3, 15*time.Minute, &now, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, detector.RecordFailure(ctx, "phone:+15551230001"))
		blocked, err := detector.IsBlocked(ctx, "phone:+15551230001")
		require.NoError(t, err)
		assert.False(t, blocked, "below threshold must not block")
	}

	require.NoError(t, detector.RecordFailure(ctx, "phone:+15551230001"))
	blocked, err := detector.IsBlocked(ctx, "phone:+15551230001")
	require.NoError(t, err)
	assert.True(t, blocked)

	// A different client is unaffected.
	blocked, err = detector.IsBlocked(ctx, "phone:+15551239999")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestDetectorWindowElapses(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	detector := newTestDetector(t, 3, 15*time.Minute, &now, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, detector.RecordFailure(ctx, "account:abc"))
	}
	blocked, err := detector.IsBlocked(ctx, "account:abc")
	require.NoError(t, err)
	assert.True(t, blocked)

	now = now.Add(15 * time.Minute)
	blocked, err = detector.IsBlocked(ctx, "account:abc")
	require.NoError(t, err)
	assert.False(t, blocked, "an elapsed window lifts the block")

	// The next failure starts a fresh window at count one.
	require.NoError(t, detector.RecordFailure(ctx, "account:abc"))
	blocked, err = detector.IsBlocked(ctx, "account:abc")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestDetectorBlockIsOneWay(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	detector := newTestDetector(t, 2, 15*time.Minute, &now, nil)
	ctx := context.Background()

	require.NoError(t, detector.RecordFailure(ctx, "phone:+15551230001"))
	require.NoError(t, detector.RecordFailure(ctx, "phone:+15551230001"))

	detector.RecordSuccess(ctx, "phone:+15551230001")

	blocked, err := detector.IsBlocked(ctx, "phone:+15551230001")
	require.NoError(t, err)
	assert.True(t, blocked, "success must not unwind the block within the window")
}

func TestDetectorEmitsSecurityEventAtThreshold(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	publisher := &capturingPublisher{}
	detector := newTestDetector(t, 2, 15*time.Minute, &now, publisher)
	ctx := context.Background()

	require.NoError(t, detector.RecordFailure(ctx, "phone:+15551230001"))
	assert.Empty(t, publisher.events)

	require.NoError(t, detector.RecordFailure(ctx, "phone:+15551230001"))
	require.Len(t, publisher.events, 1)
	assert.Equal(t, string(audit.EventClientBlocked), publisher.events[0].Action)
	assert.Equal(t, audit.SeverityHigh, publisher.events[0].Severity)
	assert.Equal(t, "phone:+15551230001", publisher.events[0].Subject)

	// Failures past the threshold do not re-emit.
	require.NoError(t, detector.RecordFailure(ctx, "phone:+15551230001"))
	assert.Len(t, publisher.events, 1)
}

func TestDetectorSweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	detector := newTestDetector(t, 5, 15*time.Minute, &now, nil)
	ctx := context.Background()

	require.NoError(t, detector.RecordFailure(ctx, "phone:+15551230001"))
	require.NoError(t, detector.RecordFailure(ctx, "phone:+15551230002"))

	removed, err := detector.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	now = now.Add(16 * time.Minute)
	removed, err = detector.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}
