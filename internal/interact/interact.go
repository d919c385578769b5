// Package interact opens each job card of a list in turn and waits for the
// shared detail pane to finish rendering before moving on.
package interact

import (
	"context"

	"jobexport/internal/extract"
	"jobexport/internal/jobs"
	"jobexport/internal/stabilize"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handle identifies one rendering of the detail region. A re-render yields a
// new handle even when the content is the same.
type Handle int64

// Item is one card captured when the run starts.
type Item struct {
	Position   int // 0-based position in the snapshot
	Paragraphs []string
	URL        string // empty when the card carries no job link
}

// DetailView is the live page holding the card list and its detail pane.
type DetailView interface {
	// Items snapshots the cards. Later DOM changes do not alter the snapshot.
	Items(ctx context.Context) ([]Item, error)
	// Activate opens the detail pane for item.
	Activate(ctx context.Context, item Item) error
	// DetailHandle returns the handle of the detail region, if rendered.
	DetailHandle(ctx context.Context) (Handle, bool, error)
	// DetailHTML returns the inner HTML of the detail region.
	DetailHTML(ctx context.Context) (string, error)
}

// Visit is the result of opening one card.
type Visit struct {
	Record     jobs.Record
	DetailText string
}

// Driver visits items strictly one after another: opening a card replaces
// the pane used by the previous one.
type Driver struct {
	view     DetailView
	detector *stabilize.Detector
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewDriver returns a driver. A nil limiter means activations are not paced.
func NewDriver(view DetailView, detector *stabilize.Detector, limiter *rate.Limiter, logger *zap.Logger) *Driver {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		view:     view,
		detector: detector,
		limiter:  limiter,
		logger:   logger.Named("interact"),
	}
}

func sameHandle(a, b Handle) bool { return a == b }

// Run visits every item captured at the start. The wait for the detail pane
// has no deadline of its own unless the detector was configured with one.
func (d *Driver) Run(ctx context.Context, run *jobs.Run) ([]Visit, error) {
	items, err := d.view.Items(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot job cards")
	}
	d.logger.Debug("captured job cards", zap.Int("cards", len(items)))

	visits := make([]Visit, 0, len(items))
	for _, item := range items {
		rec := extract.ParseDetail(item.Paragraphs)
		rec.URL = item.URL
		stored := run.Append(rec)[0]
		d.logger.Debug("extracted job card",
			zap.Int("index", stored.Index),
			zap.String("title", stored.Title),
			zap.String("status", string(stored.Status)))

		if err := d.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "pace activation")
		}
		if err := d.view.Activate(ctx, item); err != nil {
			return nil, errors.Wrapf(err, "activate card %d", item.Position+1)
		}
		d.logger.Debug("job card click dispatched", zap.Int("card", item.Position+1))

		h, err := stabilize.WaitStable(ctx, d.detector, d.view.DetailHandle, sameHandle)
		if err != nil {
			return nil, errors.Wrapf(err, "wait for details of card %d", item.Position+1)
		}

		html, err := d.view.DetailHTML(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "read details of card %d", item.Position+1)
		}
		text, err := extract.DetailText(html)
		if err != nil {
			return nil, errors.Wrapf(err, "card %d", item.Position+1)
		}
		head, tail := preview(text, 100)
		d.logger.Debug("detail settled", zap.Int64("handle", int64(h)), zap.String("head", head), zap.String("tail", tail))

		visits = append(visits, Visit{Record: stored, DetailText: text})
	}
	return visits, nil
}

func preview(s string, n int) (head, tail string) {
	r := []rune(s)
	if len(r) <= n {
		return s, s
	}
	return string(r[:n]), string(r[len(r)-n:])
}
