// Package stabilize decides when an asynchronous UI change has finished
// rendering when the page gives no completion signal.
//
// A Detector polls a probe on a two-phase cadence: the first FastCount sleeps
// use FastInterval (roughly one display frame), later sleeps use SlowInterval.
// Two waits are built on it:
//
//   - WaitChange succeeds once a marker captured before navigation differs
//     from the current one and the completion control is present.
//   - WaitStable succeeds once the same handle was observed SettleCount times
//     in a row.
//
// Only one poll is ever in flight and the caller blocks for the whole wait.
package stabilize

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrTimeout is wrapped by every TimeoutError.
var ErrTimeout = errors.New("page load timeout")

// TimeoutError is returned when a bounded wait exceeds Config.Timeout.
type TimeoutError struct {
	Elapsed time.Duration
	Limit   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("page load timeout: no transition after %s (limit %s)", e.Elapsed, e.Limit)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// Config controls one detector.
type Config struct {
	FastInterval time.Duration // sleep used for the first FastCount polls
	FastCount    int
	SlowInterval time.Duration // sleep used afterwards
	SettleCount  int           // identical observations needed by WaitStable
	Timeout      time.Duration // zero waits forever
}

// PageChange is the preset used for listing page transitions.
var PageChange = Config{
	SlowInterval: 150 * time.Millisecond,
	Timeout:      3 * time.Second,
}

// DetailSettle is the preset used for the detail pane. It has no timeout.
var DetailSettle = Config{
	FastInterval: 16 * time.Millisecond,
	FastCount:    15,
	SlowInterval: 150 * time.Millisecond,
	SettleCount:  3,
}

// Clock abstracts time for the poll loop.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Detector runs poll loops for a Config.
type Detector struct {
	cfg    Config
	clock  Clock
	logger *zap.Logger
}

// Option customizes a Detector.
type Option func(*Detector)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(d *Detector) { d.clock = c }
}

// WithLogger sets the logger used for per-poll debug output.
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns a Detector. A SettleCount below 1 is treated as 1 and a missing
// FastInterval falls back to SlowInterval.
func New(cfg Config, opts ...Option) *Detector {
	if cfg.SettleCount < 1 {
		cfg.SettleCount = 1
	}
	if cfg.FastInterval <= 0 {
		cfg.FastInterval = cfg.SlowInterval
	}
	d := &Detector{cfg: cfg, clock: wallClock{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Detector) interval(attempt int) time.Duration {
	if attempt < d.cfg.FastCount {
		return d.cfg.FastInterval
	}
	return d.cfg.SlowInterval
}

// Poll calls step until it reports done, sleeping between attempts.
// attempt starts at zero. Step errors end the loop unchanged.
func (d *Detector) Poll(ctx context.Context, step func(ctx context.Context, attempt int) (bool, error)) error {
	start := d.clock.Now()
	for attempt := 0; ; attempt++ {
		if d.cfg.Timeout > 0 {
			if elapsed := d.clock.Now().Sub(start); elapsed >= d.cfg.Timeout {
				return &TimeoutError{Elapsed: elapsed, Limit: d.cfg.Timeout}
			}
		}

		done, err := step(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if err := d.clock.Sleep(ctx, d.interval(attempt)); err != nil {
			return errors.Wrapf(err, "interrupted after %d polls", attempt+1)
		}
	}
}

// Probe reads the current observation. ok is false when the target is absent.
type Probe[T any] func(ctx context.Context) (value T, ok bool, err error)

// WaitChange blocks until the marker read by probe is no longer baseline and
// ready reports the completion control as present. An absent marker counts as
// changed. A nil ready is treated as always present.
func WaitChange[M comparable](ctx context.Context, d *Detector, baseline M, probe Probe[M], ready func(ctx context.Context) (bool, error)) error {
	return d.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		cur, ok, err := probe(ctx)
		if err != nil {
			return false, errors.Wrap(err, "read page marker")
		}
		if ok && cur == baseline {
			d.logger.Debug("still on same page", zap.Any("marker", baseline), zap.Int("poll", attempt))
			return false, nil
		}
		if ready == nil {
			return true, nil
		}
		present, err := ready(ctx)
		if err != nil {
			return false, errors.Wrap(err, "check completion control")
		}
		if !present {
			d.logger.Debug("completion control not rendered yet", zap.Int("poll", attempt))
		}
		return present, nil
	})
}

// WaitStable blocks until probe returns a handle equal to the previous poll's
// handle on SettleCount consecutive polls, and returns that handle. An absent
// target or a different handle resets the count.
func WaitStable[H any](ctx context.Context, d *Detector, probe Probe[H], equal func(a, b H) bool) (H, error) {
	var (
		prev     H
		havePrev bool
		same     int
		settled  H
	)
	err := d.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		cur, ok, err := probe(ctx)
		if err != nil {
			return false, errors.Wrap(err, "read target")
		}
		if ok && havePrev && equal(cur, prev) {
			same++
			if same >= d.cfg.SettleCount {
				settled = cur
				return true, nil
			}
			return false, nil
		}

		d.logger.Debug("target changed", zap.Bool("present", ok), zap.Int("poll", attempt))
		same = 0
		prev, havePrev = cur, ok
		return false, nil
	})
	return settled, err
}
