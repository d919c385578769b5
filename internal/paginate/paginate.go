// Package paginate walks every page of a paginated listing and extracts the
// cards on each one.
package paginate

import (
	"context"
	"fmt"
	"net/url"

	"jobexport/internal/extract"
	"jobexport/internal/jobs"
	"jobexport/internal/stabilize"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultMaxPages bounds a listing that never stops offering a next page.
const DefaultMaxPages = 50

// ListingView is the live listing the driver reads from and navigates.
type ListingView interface {
	// URL is the address of the listing, used to resolve relative links.
	URL(ctx context.Context) (*url.URL, error)
	// Cards returns the outer HTML of every card on the current page, in document order.
	Cards(ctx context.Context) ([]string, error)
	// NextEnabled reports whether an enabled "next page" control exists.
	NextEnabled(ctx context.Context) (bool, error)
	// NextPresent reports whether the "next page" control is rendered at all.
	NextPresent(ctx context.Context) (bool, error)
	// Advance activates the "next page" control.
	Advance(ctx context.Context) error
	// PageMarker returns the token identifying the displayed page.
	PageMarker(ctx context.Context) (string, bool, error)
}

// State is the driver's position in its state machine.
type State int

const (
	Extracting State = iota
	AwaitingTransition
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Extracting:
		return "extracting"
	case AwaitingTransition:
		return "awaiting-transition"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// TransitionTimeoutError reports a page that did not advance in time.
type TransitionTimeoutError struct {
	Page int // page the driver was leaving
	Err  error
}

func (e *TransitionTimeoutError) Error() string {
	return fmt.Sprintf("waiting for page %d: %v", e.Page+1, e.Err)
}

func (e *TransitionTimeoutError) Unwrap() error { return e.Err }

// Result is the outcome of a driver run.
type Result struct {
	Records    []jobs.Record // nil unless State is Done
	Pages      int           // pages extracted
	State      State
	HitCeiling bool // stopped by MaxPages rather than by the listing
}

// Driver runs extraction across pages.
type Driver struct {
	view     ListingView
	detector *stabilize.Detector
	maxPages int
	logger   *zap.Logger
}

// NewDriver returns a driver. maxPages <= 0 selects DefaultMaxPages.
func NewDriver(view ListingView, detector *stabilize.Detector, maxPages int, logger *zap.Logger) *Driver {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		view:     view,
		detector: detector,
		maxPages: maxPages,
		logger:   logger.Named("paginate"),
	}
}

// Run extracts every page into run. On failure nothing is returned but the
// error; the records already in run must be discarded by the caller.
func (d *Driver) Run(ctx context.Context, run *jobs.Run) (Result, error) {
	var res Result

	base, err := d.view.URL(ctx)
	if err != nil {
		return d.fail(res, errors.Wrap(err, "read listing url"))
	}

	state := Extracting
	for {
		switch state {
		case Extracting:
			res.Pages++
			d.logger.Debug("processing page", zap.Int("page", res.Pages))
			if err := d.extractPage(ctx, run, res.Pages, base); err != nil {
				return d.fail(res, err)
			}

			enabled, err := d.view.NextEnabled(ctx)
			if err != nil {
				return d.fail(res, errors.Wrap(err, "look up next page control"))
			}
			switch {
			case !enabled:
				d.logger.Debug("no enabled next control, ending pagination", zap.Int("page", res.Pages))
				state = Done
			case res.Pages >= d.maxPages:
				d.logger.Warn("reached page safety limit", zap.Int("max_pages", d.maxPages))
				res.HitCeiling = true
				state = Done
			default:
				state = AwaitingTransition
			}

		case AwaitingTransition:
			if err := d.advance(ctx, res.Pages); err != nil {
				return d.fail(res, err)
			}
			state = Extracting

		case Done:
			res.State = Done
			res.Records = run.Records()
			d.logger.Debug("extract done", zap.Int("pages", res.Pages), zap.Int("jobs", len(res.Records)))
			return res, nil
		}
	}
}

func (d *Driver) fail(res Result, err error) (Result, error) {
	res.State = Failed
	res.Records = nil
	return res, err
}

// extractPage parses the whole page before touching the run, so a bad card
// never leaves a partial page behind.
func (d *Driver) extractPage(ctx context.Context, run *jobs.Run, page int, base *url.URL) error {
	cards, err := d.view.Cards(ctx)
	if err != nil {
		return errors.Wrapf(err, "read cards on page %d", page)
	}
	d.logger.Debug("found saved job cards", zap.Int("page", page), zap.Int("cards", len(cards)))

	staged := make([]jobs.Record, 0, len(cards))
	for i, card := range cards {
		rec, err := extract.ParseCard(i+1, card, base)
		if err != nil {
			return errors.Wrapf(err, "extracting jobs on page %d", page)
		}
		if rec.Title == "" {
			d.logger.Debug("dropping card without title", zap.Int("page", page), zap.Int("card", i+1))
			continue
		}
		staged = append(staged, rec)
	}

	for _, rec := range run.Append(staged...) {
		d.logger.Debug("extracted job", zap.Int("index", rec.Index), zap.String("title", rec.Title))
	}
	return nil
}

func (d *Driver) advance(ctx context.Context, page int) error {
	marker, _, err := d.view.PageMarker(ctx)
	if err != nil {
		return errors.Wrap(err, "read page marker")
	}
	if err := d.view.Advance(ctx); err != nil {
		return errors.Wrapf(err, "advance from page %d", page)
	}

	err = stabilize.WaitChange(ctx, d.detector, marker, d.view.PageMarker, d.view.NextPresent)
	if err != nil {
		if errors.Is(err, stabilize.ErrTimeout) {
			return &TransitionTimeoutError{Page: page, Err: err}
		}
		return errors.Wrapf(err, "waiting for page %d", page+1)
	}
	d.logger.Debug("page changed", zap.Int("page", page+1))
	return nil
}
