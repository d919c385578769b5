package paginate

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"jobexport/internal/extract"
	"jobexport/internal/jobs"
	"jobexport/internal/stabilize"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	return ctx.Err()
}

// fakeListing simulates a paginated listing. Advancing into stuckAt leaves
// the marker unchanged forever.
type fakeListing struct {
	pages        [][]string
	current      int
	neverDisable bool
	stuckAt      int

	cardReads int
	advances  int
}

func (f *fakeListing) URL(context.Context) (*url.URL, error) {
	return url.Parse("https://www.linkedin.com/my-items/saved-jobs/")
}

func (f *fakeListing) Cards(context.Context) ([]string, error) {
	f.cardReads++
	return f.pages[f.current%len(f.pages)], nil
}

func (f *fakeListing) NextEnabled(context.Context) (bool, error) {
	return f.neverDisable || f.current < len(f.pages)-1, nil
}

func (f *fakeListing) NextPresent(context.Context) (bool, error) { return true, nil }

func (f *fakeListing) Advance(context.Context) error {
	f.advances++
	if f.stuckAt > 0 && f.current+1 == f.stuckAt {
		return nil
	}
	f.current++
	return nil
}

func (f *fakeListing) PageMarker(context.Context) (string, bool, error) {
	return fmt.Sprintf("Page %d", f.current+1), true, nil
}

func card(id int, title, company, location string) string {
	return fmt.Sprintf(`<li>
		<a href="/jobs/view/%d/"><img></a>
		<a href="/jobs/view/%d/">%s</a>
		<div class="t-14 t-black t-normal">%s</div>
		<div class="t-14 t-normal">%s</div>
	</li>`, id, id, title, company, location)
}

func threePages() [][]string {
	return [][]string{
		{card(1, "Go Engineer", "Acme", "Berlin"), card(2, "SRE", "Globex", "Remote")},
		{card(3, "Data Engineer", "Initech", "Austin"), card(4, "Platform Engineer", "Hooli", "Palo Alto")},
		{card(5, "Backend Engineer", "Umbrella", "London"), card(6, "Staff Engineer", "Stark", "New York")},
	}
}

func newDriver(t *testing.T, view ListingView, maxPages int) *Driver {
	detector := stabilize.New(stabilize.PageChange, stabilize.WithClock(&fakeClock{now: time.Unix(0, 0)}))
	return NewDriver(view, detector, maxPages, zaptest.NewLogger(t))
}

func TestRunThreePages(t *testing.T) {
	view := &fakeListing{pages: threePages()}

	res, err := newDriver(t, view, DefaultMaxPages).Run(context.Background(), jobs.NewRun())
	require.NoError(t, err)

	assert.Equal(t, Done, res.State)
	assert.Equal(t, 3, res.Pages)
	assert.False(t, res.HitCeiling)
	require.Len(t, res.Records, 6)
	for i, rec := range res.Records {
		assert.Equal(t, i+1, rec.Index, "indices are contiguous across pages")
	}
	assert.Equal(t, "Go Engineer", res.Records[0].Title)
	assert.Equal(t, "Initech", res.Records[2].Company)
	assert.Equal(t, "New York", res.Records[5].Location)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/6/", res.Records[5].URL)
	assert.Equal(t, 2, view.advances)
}

func TestRunTransitionTimeout(t *testing.T) {
	view := &fakeListing{pages: threePages(), stuckAt: 1}

	res, err := newDriver(t, view, DefaultMaxPages).Run(context.Background(), jobs.NewRun())
	require.Error(t, err)

	assert.Equal(t, Failed, res.State)
	assert.Nil(t, res.Records)

	var te *TransitionTimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.Page)
	assert.True(t, errors.Is(err, stabilize.ErrTimeout))
	assert.Contains(t, err.Error(), "waiting for page 2")
}

func TestRunStopsAtPageCeiling(t *testing.T) {
	view := &fakeListing{pages: threePages(), neverDisable: true}

	res, err := newDriver(t, view, 50).Run(context.Background(), jobs.NewRun())
	require.NoError(t, err)

	assert.Equal(t, Done, res.State)
	assert.True(t, res.HitCeiling)
	assert.Equal(t, 50, res.Pages)
	assert.Equal(t, 50, view.cardReads)
	assert.Equal(t, 49, view.advances)
	assert.Len(t, res.Records, 100)
	assert.Equal(t, 100, res.Records[99].Index)
}

func TestRunDefaultsMaxPages(t *testing.T) {
	view := &fakeListing{pages: threePages(), neverDisable: true}

	res, err := newDriver(t, view, 0).Run(context.Background(), jobs.NewRun())
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPages, res.Pages)
}

func TestRunExtractionErrorAbortsRun(t *testing.T) {
	pages := threePages()
	pages[1] = []string{card(3, "Fine", "Acme", "Berlin"), `<li><span>no link</span></li>`}
	view := &fakeListing{pages: pages}

	res, err := newDriver(t, view, DefaultMaxPages).Run(context.Background(), jobs.NewRun())
	require.Error(t, err)

	assert.Equal(t, Failed, res.State)
	assert.Nil(t, res.Records)
	assert.Equal(t, 2, res.Pages)

	var ee *extract.ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.Card)
	assert.True(t, errors.Is(err, extract.ErrMissingLink))
}

func TestRunDropsUntitledCardsWithoutGaps(t *testing.T) {
	pages := [][]string{
		{card(1, "First", "A", "X"), card(2, "   ", "B", "Y")},
		{card(3, "Second", "C", "Z")},
	}
	view := &fakeListing{pages: pages}

	res, err := newDriver(t, view, DefaultMaxPages).Run(context.Background(), jobs.NewRun())
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "First", res.Records[0].Title)
	assert.Equal(t, 1, res.Records[0].Index)
	assert.Equal(t, "Second", res.Records[1].Title)
	assert.Equal(t, 2, res.Records[1].Index)
}

func TestRunEmptyListingIsDone(t *testing.T) {
	view := &fakeListing{pages: [][]string{{}}}

	res, err := newDriver(t, view, DefaultMaxPages).Run(context.Background(), jobs.NewRun())
	require.NoError(t, err)
	assert.Equal(t, Done, res.State)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Pages)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "extracting", Extracting.String())
	assert.Equal(t, "awaiting-transition", AwaitingTransition.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
