package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"jobexport/internal/jobs"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
)

const (
	// detailLinkSelector matches every anchor pointing at a job posting.
	// The first one on a card wraps the company logo, the second is the title.
	detailLinkSelector = `a[href*="/jobs/view/"]`
	titleLinkPosition  = 1

	textBlockSelector = `div[class*="t-14"]`
)

// companyClasses is the bold/neutral-weight style convention LinkedIn
// uses for the company line of a saved job card.
var companyClasses = []string{"t-black", "t-normal"}

var verifiedBadge = regexp.MustCompile(`\s*, Verified`)

// ErrMissingLink is wrapped by ExtractionError when a card has no title link.
var ErrMissingLink = errors.New("invalid saved job link")

// ExtractionError reports a card that lacks a mandatory field.
type ExtractionError struct {
	Card   int // 1-based position on the page
	Reason error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("card %d: %v", e.Card, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Reason }

// ParseCard extracts a record from the outer HTML of one saved job card.
// position is the 1-based card position, used only for error reporting.
// Relative links are resolved against base when it is non-nil.
//
// The returned record has no index; the run assigns it. An empty title is not
// an error here, callers decide what to do with it.
func ParseCard(position int, fragment string, base *url.URL) (jobs.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return jobs.Record{}, errors.Wrapf(err, "card %d: parse html", position)
	}

	links := doc.Find(detailLinkSelector)
	if links.Length() <= titleLinkPosition {
		return jobs.Record{}, &ExtractionError{Card: position, Reason: ErrMissingLink}
	}
	link := links.Eq(titleLinkPosition)

	href, err := resolveHref(link.AttrOr("href", ""), base)
	if err != nil {
		return jobs.Record{}, &ExtractionError{Card: position, Reason: errors.Wrap(err, "bad job link")}
	}

	company, location := companyAndLocation(doc.Selection)

	return jobs.Record{
		Title:    CleanTitle(link.Text()),
		Company:  company,
		Location: location,
		URL:      href,
	}, nil
}

// CleanTitle strips the verification badge text and collapses whitespace.
func CleanTitle(s string) string {
	return CleanText(verifiedBadge.ReplaceAllString(s, ""))
}

// companyAndLocation walks the small text blocks once, in document order.
// The first block styled like a company line is the company; the first
// non-empty block after that is the location.
func companyAndLocation(card *goquery.Selection) (company, location string) {
	card.Find(textBlockSelector).EachWithBreak(func(_ int, div *goquery.Selection) bool {
		text := CleanText(div.Text())
		if company == "" && hasClasses(div.AttrOr("class", ""), companyClasses) {
			company = text
		} else if text != "" && location == "" && company != "" {
			location = text
			return false
		}
		return true
	})
	return company, location
}

func hasClasses(class string, want []string) bool {
	for _, w := range want {
		if !strings.Contains(class, w) {
			return false
		}
	}
	return true
}

func resolveHref(href string, base *url.URL) (string, error) {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	return u.String(), nil
}
