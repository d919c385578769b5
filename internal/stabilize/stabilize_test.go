package stabilize

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// sequence replays observations and then repeats the last one.
func sequence[T any](vals []T, present []bool) (Probe[T], *int) {
	calls := 0
	return func(context.Context) (T, bool, error) {
		i := calls
		if i >= len(vals) {
			i = len(vals) - 1
		}
		calls++
		return vals[i], present[i], nil
	}, &calls
}

func TestWaitChangeSucceedsAfterMarkerChanges(t *testing.T) {
	clock := newFakeClock()
	d := New(PageChange, WithClock(clock), WithLogger(zaptest.NewLogger(t)))

	probe, calls := sequence([]string{"Page 1 of 3", "Page 1 of 3", "Page 2 of 3"}, []bool{true, true, true})
	err := WaitChange(context.Background(), d, "Page 1 of 3", probe, func(context.Context) (bool, error) { return true, nil })

	require.NoError(t, err)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{150 * time.Millisecond, 150 * time.Millisecond}, clock.sleeps)
}

func TestWaitChangeWaitsForCompletionControl(t *testing.T) {
	clock := newFakeClock()
	d := New(PageChange, WithClock(clock))

	probe, _ := sequence([]string{"Page 2 of 3"}, []bool{true})
	readyCalls := 0
	ready := func(context.Context) (bool, error) {
		readyCalls++
		return readyCalls >= 3, nil
	}

	require.NoError(t, WaitChange(context.Background(), d, "Page 1 of 3", probe, ready))
	assert.Equal(t, 3, readyCalls)
}

func TestWaitChangeAbsentMarkerCountsAsChanged(t *testing.T) {
	d := New(PageChange, WithClock(newFakeClock()))

	probe, calls := sequence([]string{""}, []bool{false})
	require.NoError(t, WaitChange(context.Background(), d, "Page 1 of 3", probe, nil))
	assert.Equal(t, 1, *calls)
}

func TestWaitChangeTimesOut(t *testing.T) {
	clock := newFakeClock()
	d := New(PageChange, WithClock(clock))

	probe, calls := sequence([]string{"Page 2 of 3"}, []bool{true})
	err := WaitChange(context.Background(), d, "Page 2 of 3", probe, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 3*time.Second, te.Limit)
	assert.GreaterOrEqual(t, te.Elapsed, 3*time.Second)
	// 3s / 150ms polls before the deadline check fires.
	assert.Equal(t, 20, *calls)
}

func TestWaitChangeProbeError(t *testing.T) {
	d := New(PageChange, WithClock(newFakeClock()))
	boom := errors.New("cdp gone")

	err := WaitChange(context.Background(), d, "x", func(context.Context) (string, bool, error) {
		return "", false, boom
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestWaitStableReturnsAfterSettleCount(t *testing.T) {
	clock := newFakeClock()
	d := New(DetailSettle, WithClock(clock))

	probe, calls := sequence([]int{0, 7, 7, 7, 7}, []bool{false, true, true, true, true})
	h, err := WaitStable(context.Background(), d, probe, func(a, b int) bool { return a == b })

	require.NoError(t, err)
	assert.Equal(t, 7, h)
	// absent, first sighting, then three identical observations.
	assert.Equal(t, 5, *calls)
}

func TestWaitStableResetsOnChange(t *testing.T) {
	d := New(Config{SlowInterval: time.Millisecond, SettleCount: 2}, WithClock(newFakeClock()))

	vals := []int{1, 1, 2, 2, 0, 3, 3, 3}
	present := []bool{true, true, true, true, false, true, true, true}
	probe, calls := sequence(vals, present)

	h, err := WaitStable(context.Background(), d, probe, func(a, b int) bool { return a == b })
	require.NoError(t, err)
	assert.Equal(t, 3, h)
	assert.Equal(t, 8, *calls)
}

func TestWaitStableCadenceIsTwoPhase(t *testing.T) {
	clock := newFakeClock()
	cfg := Config{FastInterval: 16 * time.Millisecond, FastCount: 2, SlowInterval: 150 * time.Millisecond, SettleCount: 3}
	d := New(cfg, WithClock(clock))

	probe, _ := sequence([]int{5}, []bool{true})
	_, err := WaitStable(context.Background(), d, probe, func(a, b int) bool { return a == b })
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{
		16 * time.Millisecond,
		16 * time.Millisecond,
		150 * time.Millisecond,
	}, clock.sleeps)
}

func TestWaitStableHonorsContextCancellation(t *testing.T) {
	d := New(DetailSettle, WithClock(newFakeClock()))
	ctx, cancel := context.WithCancel(context.Background())

	polls := 0
	probe := func(context.Context) (int, bool, error) {
		polls++
		if polls == 10 {
			cancel()
		}
		return polls, true, nil // never stable
	}

	_, err := WaitStable(ctx, d, probe, func(a, b int) bool { return a == b })
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 10, polls)
}

func TestNewNormalizesConfig(t *testing.T) {
	d := New(Config{SlowInterval: time.Second})
	assert.Equal(t, 1, d.cfg.SettleCount)
	assert.Equal(t, time.Second, d.cfg.FastInterval)
}
