package linkedin

import (
	"context"
	"net/url"
	"strings"
	"time"

	"jobexport/internal/browser"
	"jobexport/internal/interact"

	"github.com/cockroachdb/errors"
	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

const (
	SavedJobsURL = "https://www.linkedin.com/my-items/saved-jobs/"

	cardSelector   = `ul[role="list"] > li`
	nextSelector   = `button.artdeco-pagination__button--next`
	markerSelector = `.artdeco-pagination__page-state`
	itemSelector   = `div[data-view-name="job-search-job-card"] [role="button"] > div > div`
	detailSelector = `span[data-testid="expandable-text-box"]`
	itemAttr       = "data-jobexport-item"
)

// ErrNotSavedJobs is returned when the saved-jobs export is pointed elsewhere.
var ErrNotSavedJobs = errors.New("not a LinkedIn Saved Jobs page")

// Client owns the tab used for one run.
type Client struct {
	browser *browser.Browser
	page    *rod.Page
	log     *zap.Logger
}

func NewClient(b *browser.Browser, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{browser: b, log: log.Named("linkedin")}
}

// Close closes the tab.
func (c *Client) Close() {
	if c.page != nil {
		_ = c.page.Close()
	}
}

// Open navigates a new tab to target and waits for the document to load.
func (c *Client) Open(ctx context.Context, target string, timeout time.Duration) error {
	page, err := c.browser.NewPage(ctx)
	if err != nil {
		return err
	}
	c.page = page

	c.log.Debug("navigating", zap.String("url", target))
	if err := page.Timeout(timeout).Navigate(target); err != nil {
		return errors.Wrapf(err, "navigate to %s", target)
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return errors.Wrapf(err, "load %s", target)
	}

	cur, err := c.currentURL(ctx)
	if err != nil {
		return err
	}
	if strings.Contains(cur, "/login") || strings.Contains(cur, "/authwall") || strings.Contains(cur, "/checkpoint") {
		return errors.WithHint(
			errors.Newf("redirected to %s", cur),
			"log in once with --show-ui; the session is kept in the profile directory")
	}
	return nil
}

// WaitFor blocks until selector matches or timeout passes.
func (c *Client) WaitFor(selector string, timeout time.Duration) error {
	if _, err := c.page.Timeout(timeout).Element(selector); err != nil {
		return errors.Wrapf(err, "wait for %s", selector)
	}
	return nil
}

func (c *Client) currentURL(ctx context.Context) (string, error) {
	res, err := c.page.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return "", errors.Wrap(err, "read location")
	}
	return res.Value.Str(), nil
}

// CheckSavedJobs reports ErrNotSavedJobs unless the tab shows the Saved Jobs list.
func (c *Client) CheckSavedJobs(ctx context.Context) error {
	cur, err := c.currentURL(ctx)
	if err != nil {
		return err
	}
	if !IsSavedJobsURL(cur) {
		return errors.WithHint(errors.Wrapf(ErrNotSavedJobs, "%s", cur),
			"open "+SavedJobsURL+" or omit the URL argument")
	}
	return nil
}

// IsSavedJobsURL reports whether raw points at the Saved Jobs list.
func IsSavedJobsURL(raw string) bool {
	return strings.HasPrefix(raw, SavedJobsURL)
}

// Listing returns the saved-jobs listing view of the tab.
func (c *Client) Listing() *ListingPage {
	return &ListingPage{page: c.page}
}

// Details returns the recommended-jobs view of the tab.
func (c *Client) Details() *DetailPage {
	return &DetailPage{page: c.page}
}

// ListingPage reads and navigates a paginated list of saved jobs.
type ListingPage struct {
	page *rod.Page
}

func (l *ListingPage) URL(ctx context.Context) (*url.URL, error) {
	res, err := l.page.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return nil, errors.Wrap(err, "read location")
	}
	u, err := url.Parse(res.Value.Str())
	if err != nil {
		return nil, errors.Wrap(err, "parse location")
	}
	return u, nil
}

func (l *ListingPage) Cards(ctx context.Context) ([]string, error) {
	res, err := l.page.Context(ctx).Eval(`(sel) =>
		Array.from(document.querySelectorAll(sel)).map(li => li.outerHTML)`, cardSelector)
	if err != nil {
		return nil, errors.Wrap(err, "read cards")
	}
	var cards []string
	if err := res.Value.Unmarshal(&cards); err != nil {
		return nil, errors.Wrap(err, "decode cards")
	}
	return cards, nil
}

func (l *ListingPage) NextEnabled(ctx context.Context) (bool, error) {
	return l.exists(ctx, nextSelector+`:not([disabled])`)
}

func (l *ListingPage) NextPresent(ctx context.Context) (bool, error) {
	return l.exists(ctx, nextSelector)
}

func (l *ListingPage) exists(ctx context.Context, selector string) (bool, error) {
	res, err := l.page.Context(ctx).Eval(`(sel) => !!document.querySelector(sel)`, selector)
	if err != nil {
		return false, errors.Wrapf(err, "query %s", selector)
	}
	return res.Value.Bool(), nil
}

func (l *ListingPage) Advance(ctx context.Context) error {
	res, err := l.page.Context(ctx).Eval(`(sel) => {
		const btn = document.querySelector(sel);
		if (!btn) return false;
		btn.click();
		return true;
	}`, nextSelector+`:not([disabled])`)
	if err != nil {
		return errors.Wrap(err, "click next page")
	}
	if !res.Value.Bool() {
		return errors.New("next page control disappeared")
	}
	return nil
}

func (l *ListingPage) PageMarker(ctx context.Context) (string, bool, error) {
	res, err := l.page.Context(ctx).Eval(`(sel) => {
		const el = document.querySelector(sel);
		return el ? {text: el.textContent.trim(), ok: true} : {text: "", ok: false};
	}`, markerSelector)
	if err != nil {
		return "", false, errors.Wrap(err, "read page state")
	}
	var m struct {
		Text string `json:"text"`
		OK   bool   `json:"ok"`
	}
	if err := res.Value.Unmarshal(&m); err != nil {
		return "", false, errors.Wrap(err, "decode page state")
	}
	// an empty marker carries no page identity
	return m.Text, m.OK && m.Text != "", nil
}

// DetailPage is the recommended-jobs list with its shared detail pane.
type DetailPage struct {
	page *rod.Page
}

func (d *DetailPage) Items(ctx context.Context) ([]interact.Item, error) {
	res, err := d.page.Context(ctx).Eval(`(sel, attr) =>
		Array.from(document.querySelectorAll(sel)).map((el, i) => {
			el.setAttribute(attr, String(i));
			const card = el.closest('div[data-view-name="job-search-job-card"]');
			const link = card ? card.querySelector('a[href*="/jobs/view/"]') : null;
			return {
				paragraphs: Array.from(el.querySelectorAll('p')).map(p => p.textContent.trim()),
				url: link ? link.href : "",
			};
		})`, itemSelector, itemAttr)
	if err != nil {
		return nil, errors.Wrap(err, "read job cards")
	}

	var raw []struct {
		Paragraphs []string `json:"paragraphs"`
		URL        string   `json:"url"`
	}
	if err := res.Value.Unmarshal(&raw); err != nil {
		return nil, errors.Wrap(err, "decode job cards")
	}

	items := make([]interact.Item, len(raw))
	for i, r := range raw {
		items[i] = interact.Item{Position: i, Paragraphs: r.Paragraphs, URL: r.URL}
	}
	return items, nil
}

func (d *DetailPage) Activate(ctx context.Context, item interact.Item) error {
	res, err := d.page.Context(ctx).Eval(`(attr, pos) => {
		const el = document.querySelector('[' + attr + '="' + pos + '"]');
		if (!el) return false;
		el.dispatchEvent(new PointerEvent("click", {bubbles: true}));
		return true;
	}`, itemAttr, item.Position)
	if err != nil {
		return errors.Wrap(err, "dispatch click")
	}
	if !res.Value.Bool() {
		return errors.Newf("job card %d is no longer on the page", item.Position+1)
	}
	return nil
}

// DetailHandle stamps each detail node with a sequence number the first time
// it is seen, so a replaced node reads as a new handle.
func (d *DetailPage) DetailHandle(ctx context.Context) (interact.Handle, bool, error) {
	res, err := d.page.Context(ctx).Eval(`(sel) => {
		const span = document.querySelector(sel);
		if (!span) return 0;
		if (!span.__jobexportID) {
			window.__jobexportSeq = (window.__jobexportSeq || 0) + 1;
			span.__jobexportID = window.__jobexportSeq;
		}
		return span.__jobexportID;
	}`, detailSelector)
	if err != nil {
		return 0, false, errors.Wrap(err, "probe detail region")
	}
	id := res.Value.Int()
	return interact.Handle(id), id != 0, nil
}

func (d *DetailPage) DetailHTML(ctx context.Context) (string, error) {
	res, err := d.page.Context(ctx).Eval(`(sel) => {
		const span = document.querySelector(sel);
		return span ? span.innerHTML : "";
	}`, detailSelector)
	if err != nil {
		return "", errors.Wrap(err, "read detail region")
	}
	return res.Value.Str(), nil
}
