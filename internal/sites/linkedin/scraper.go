package linkedin

import (
	"context"
	"time"

	"jobexport/internal/browser"
	"jobexport/internal/interact"
	"jobexport/internal/jobs"
	"jobexport/internal/notify"
	"jobexport/internal/paginate"
	"jobexport/internal/scraper"
	"jobexport/internal/stabilize"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	RecommendedJobsURL = "https://www.linkedin.com/jobs/collections/recommended/"

	defaultTimeout = 30 * time.Second
)

func init() {
	scraper.Register(&SavedScraper{})
	scraper.Register(&RecommendedScraper{})
}

// SavedScraper exports every page of the Saved Jobs list.
type SavedScraper struct{}

func (s *SavedScraper) Name() string {
	return "linkedin.saved"
}

func (s *SavedScraper) Scrape(ctx context.Context, target string, opts scraper.Options) (scraper.Content, error) {
	if target == "" {
		target = SavedJobsURL
	}
	if !IsSavedJobsURL(target) {
		return nil, errors.WithHint(errors.Wrapf(ErrNotSavedJobs, "%s", target),
			"open "+SavedJobsURL+" or omit the URL argument")
	}

	log := logger(opts)
	client, closeAll, err := openClient(ctx, target, opts, log)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	if err := client.CheckSavedJobs(ctx); err != nil {
		return nil, err
	}
	if err := client.WaitFor("main", timeout(opts)); err != nil {
		return nil, err
	}

	send(opts, notify.Message{Text: "Gathering Saved Jobs from all pages..."})

	run := jobs.NewRun()
	det := stabilize.New(orDefault(opts.PageWait, stabilize.PageChange), stabilize.WithLogger(log))
	res, err := paginate.NewDriver(client.Listing(), det, opts.MaxPages, log).Run(ctx, run)
	if err != nil {
		return nil, err
	}
	log.Debug("saved jobs run finished",
		zap.Int("pages", res.Pages),
		zap.Int("jobs", len(res.Records)),
		zap.Bool("hit_ceiling", res.HitCeiling),
		zap.Duration("elapsed", run.Elapsed()))

	if len(res.Records) == 0 {
		return nil, jobs.ErrNoResults
	}
	return NewJobsContent("Saved Jobs", res.Records, nil), nil
}

// RecommendedScraper opens every card of the recommended jobs collection.
type RecommendedScraper struct{}

func (s *RecommendedScraper) Name() string {
	return "linkedin.recommended"
}

func (s *RecommendedScraper) Scrape(ctx context.Context, target string, opts scraper.Options) (scraper.Content, error) {
	if target == "" {
		target = RecommendedJobsURL
	}

	log := logger(opts)
	client, closeAll, err := openClient(ctx, target, opts, log)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	if err := client.WaitFor(itemSelector, timeout(opts)); err != nil {
		return nil, errors.WithHint(err, "the page shows no job cards; is this a jobs search or collection page?")
	}

	var limiter *rate.Limiter
	if opts.ItemRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.ItemRate), 1)
	}

	run := jobs.NewRun()
	det := stabilize.New(orDefault(opts.DetailWait, stabilize.DetailSettle), stabilize.WithLogger(log))
	visits, err := interact.NewDriver(client.Details(), det, limiter, log).Run(ctx, run)
	if err != nil {
		return nil, err
	}
	log.Debug("recommended jobs run finished",
		zap.Int("jobs", len(visits)),
		zap.Duration("elapsed", run.Elapsed()))

	if len(visits) == 0 {
		return nil, jobs.ErrNoResults
	}
	records := make([]jobs.Record, len(visits))
	details := make([]string, len(visits))
	for i, v := range visits {
		records[i] = v.Record
		details[i] = v.DetailText
	}
	return NewJobsContent("Recommended Jobs", records, details), nil
}

func openClient(ctx context.Context, target string, opts scraper.Options, log *zap.Logger) (*Client, func(), error) {
	b, err := browser.New(browser.Config{
		ProxyURL:   opts.ProxyURL,
		Headless:   !opts.ShowUI,
		ProfileDir: opts.ProfileDir,
		Bin:        opts.BrowserBin,
		Logger:     log,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create browser")
	}

	client := NewClient(b, log)
	closeAll := func() {
		client.Close()
		if err := b.Close(); err != nil {
			log.Debug("close browser", zap.Error(err))
		}
	}
	if err := client.Open(ctx, target, timeout(opts)); err != nil {
		closeAll()
		return nil, nil, err
	}
	return client, closeAll, nil
}

func logger(opts scraper.Options) *zap.Logger {
	if opts.Logger == nil {
		return zap.NewNop()
	}
	return opts.Logger
}

func timeout(opts scraper.Options) time.Duration {
	if opts.Timeout <= 0 {
		return defaultTimeout
	}
	return opts.Timeout
}

func send(opts scraper.Options, m notify.Message) {
	if opts.Notifier != nil {
		opts.Notifier.Notify(m)
	}
}

// orDefault keeps zero-valued options usable by library callers.
func orDefault(cfg, def stabilize.Config) stabilize.Config {
	if cfg == (stabilize.Config{}) {
		return def
	}
	return cfg
}
