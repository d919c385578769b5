package scraper

import (
	"context"
	"time"

	"jobexport/internal/jobs"
	"jobexport/internal/notify"
	"jobexport/internal/stabilize"

	"go.uber.org/zap"
)

type Scraper interface {
	Name() string
	Scrape(ctx context.Context, target string, opts Options) (Content, error)
}

type Content interface {
	Records() []jobs.Record
	ToHTML() (string, error)
	ToText() (string, error)
	ToMarkdown() (string, error)
	ToJSON() ([]byte, error)
	ToCSV() (string, error)
	ToXLSX() ([]byte, error)
}

type Options struct {
	ShowUI     bool
	ProxyURL   string // --proxy flag or JOBEXPORT_PROXY env var
	ProfileDir string
	BrowserBin string
	Timeout    time.Duration // navigation timeout

	MaxPages   int
	PageWait   stabilize.Config
	DetailWait stabilize.Config
	ItemRate   float64 // activations per second, 0 for no limit

	Logger   *zap.Logger
	Notifier notify.Notifier
}
