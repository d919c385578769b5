package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"jobexport/internal/config"
	"jobexport/internal/export"
	"jobexport/internal/formatter"
	"jobexport/internal/jobs"
	"jobexport/internal/notify"
	"jobexport/internal/scraper"
	_ "jobexport/internal/sites/linkedin"
	"jobexport/internal/store"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// stdout receives "-o -" output.
var stdout io.Writer = os.Stdout

var (
	configFile   string
	outputFormat string
	outputFile   string
	outputDir    string
	maxPages     int
	pageTimeout  time.Duration
	detailWait   time.Duration
	itemRate     float64
	navTimeout   time.Duration
	showUI       bool
	profileDir   string
	browserBin   string
	proxyURL     string
	archivePath  string
	debug        bool
)

// flagKeys maps flags onto config keys so flags, JOBEXPORT_* and the config
// file resolve through one viper instance.
var flagKeys = map[string]string{
	"timeout":        "browser.nav_timeout",
	"format":         "output.format",
	"output":         "output.file",
	"out-dir":        "output.dir",
	"max-pages":      "paginate.max_pages",
	"page-timeout":   "paginate.page_timeout",
	"detail-timeout": "detail.timeout",
	"item-rate":      "detail.item_rate",
	"profile-dir":    "browser.profile_dir",
	"browser-bin":    "browser.bin",
	"proxy":          "browser.proxy",
	"archive":        "archive.path",
	"debug":          "debug",
}

func main() {
	notifier := notify.NewTerminal(nil)

	rootCmd := &cobra.Command{
		Use:     "jobexport",
		Short:   "Export LinkedIn job lists to CSV, XLSX and friends",
		Version: version,
		Long: `jobexport drives a Chrome session logged in to LinkedIn, walks the
asynchronously rendered job lists and writes what it finds to a file.`,
		Example: `  # First run: log in by hand, the session is kept in the profile directory
  jobexport saved --show-ui

  # Export every page of Saved Jobs to "Saved Jobs YYYY-MM-DD HHmm.csv"
  jobexport saved

  # Excel workbook, inferred from the extension
  jobexport saved -o saved.xlsx

  # Open every recommended job card and print JSON
  jobexport recommended -f json -o -`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default $HOME/.config/jobexport/config.yaml)")
	pf.StringVarP(&outputFormat, "format", "f", "", "Output format (csv, xlsx, json, markdown, text, html); inferred from -o, else csv")
	pf.StringVarP(&outputFile, "output", "o", "", `Output file path, "-" for stdout (default "Saved Jobs YYYY-MM-DD HHmm.<ext>")`)
	pf.StringVar(&outputDir, "out-dir", ".", "Directory for the default output file")
	pf.IntVar(&maxPages, "max-pages", 50, "Safety limit on listing pages")
	pf.DurationVar(&pageTimeout, "page-timeout", 3*time.Second, "How long to wait for a listing page to change")
	pf.DurationVar(&detailWait, "detail-timeout", 0, "Give up on a detail pane after this long (0 waits forever)")
	pf.Float64Var(&itemRate, "item-rate", 0, "Max job cards opened per second (0 for no limit)")
	pf.DurationVarP(&navTimeout, "timeout", "t", 30*time.Second, "Navigation timeout")
	pf.BoolVar(&showUI, "show-ui", false, "Show browser UI (disable headless mode)")
	pf.StringVar(&profileDir, "profile-dir", config.DefaultProfileDir(), "Browser profile directory holding the LinkedIn session")
	pf.StringVar(&browserBin, "browser-bin", "", "Chrome executable (default: let rod find or download one)")
	pf.StringVarP(&proxyURL, "proxy", "p", "", "Proxy URL (e.g. http://127.0.0.1:7890), defaults to JOBEXPORT_PROXY env var")
	pf.StringVar(&archivePath, "archive", "", "Also upsert exported jobs into this sqlite database")
	pf.BoolVar(&debug, "debug", false, "Verbose logging to stderr")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "saved [URL]",
			Short: "Export every page of Saved Jobs",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSite(cmd, "linkedin.saved", notify.TagExportDone, args, notifier)
			},
		},
		&cobra.Command{
			Use:   "recommended [URL]",
			Short: "Open every recommended job card and export the list",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSite(cmd, "linkedin.recommended", notify.TagRecommendDone, args, notifier)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errNotified) {
			_ = report(notifier, err)
		}
		os.Exit(1)
	}
}

// errNotified marks failures the user has already been told about.
var errNotified = errors.New("already reported")

func runSite(cmd *cobra.Command, site, tag string, args []string, notifier notify.Notifier) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	s, ok := scraper.Get(site)
	if !ok {
		return errors.WithHintf(errors.Newf("unknown site: %s", site),
			"registered sites: %s", strings.Join(scraper.Names(), ", "))
	}

	format := resolveFormat(cfg.Output.Format, cfg.Output.File)

	target := ""
	if len(args) > 0 {
		target = normalizeURL(args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := scraper.Options{
		ShowUI:     !cfg.Browser.Headless,
		ProxyURL:   cfg.Browser.Proxy,
		ProfileDir: cfg.Browser.ProfileDir,
		BrowserBin: cfg.Browser.Bin,
		Timeout:    cfg.Browser.NavTimeout,
		MaxPages:   cfg.Paginate.MaxPages,
		PageWait:   cfg.PageChange(),
		DetailWait: cfg.DetailSettle(),
		ItemRate:   cfg.Detail.ItemRate,
		Logger:     log,
		Notifier:   notifier,
	}

	started := time.Now()
	content, err := s.Scrape(ctx, target, opts)
	if errors.Is(err, jobs.ErrNoResults) {
		notifier.Notify(notify.Message{Text: "No jobs found", Severity: notify.Warning, Tag: tag})
		return nil
	}
	if err != nil {
		return report(notifier, err)
	}

	data, err := formatter.Format(content, format)
	if err != nil {
		return report(notifier, errors.Wrap(err, "failed to format output"))
	}

	if err := writeOutput(cfg, format, started, data, notifier); err != nil {
		return report(notifier, err)
	}

	if cfg.Archive.Path != "" {
		if err := archive(ctx, cfg.Archive.Path, site, started, content.Records(), notifier); err != nil {
			return report(notifier, err)
		}
	}

	log.Debug("run finished", zap.String("site", site), zap.Duration("elapsed", time.Since(started)))
	notifier.Notify(notify.Message{
		Text: fmt.Sprintf("Done. Exported %d jobs", len(content.Records())),
		Tag:  tag,
	})
	return nil
}

func report(n notify.Notifier, err error) error {
	text := err.Error()
	if hints := errors.FlattenHints(err); hints != "" {
		text += "\nhint: " + hints
	}
	n.Notify(notify.Message{Text: text, Severity: notify.Error})
	return errors.Mark(err, errNotified)
}

func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if flags.Changed("show-ui") {
		cfg.Browser.Headless = !showUI
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind --%s", name)
		}
	}
	return nil
}

func resolveFormat(format, file string) string {
	if format == "" && file != "" && file != "-" {
		format = formatter.InferFromExtension(file)
	}
	if format == "" {
		format = "csv"
	}
	return formatter.Normalize(format)
}

func writeOutput(cfg *config.Config, format string, started time.Time, data []byte, n notify.Notifier) error {
	switch cfg.Output.File {
	case "-":
		if formatter.Binary(format) {
			return errors.WithHint(errors.Newf("refusing to print %s to stdout", format), "use -o with a file name")
		}
		// the CSV document has no trailing newline; text formats get one for the terminal
		if format != "csv" && !bytes.HasSuffix(data, []byte("\n")) {
			data = append(data, '\n')
		}
		_, err := stdout.Write(data)
		return errors.Wrap(err, "write stdout")
	case "":
		path, err := export.WriteFile(cfg.Output.Dir, export.FileName(started, formatter.Extension(format)), data)
		if err != nil {
			return err
		}
		n.Notify(notify.Message{Text: "Output written to: " + path})
	default:
		path, err := export.WriteFile(filepath.Dir(cfg.Output.File), filepath.Base(cfg.Output.File), data)
		if err != nil {
			return err
		}
		n.Notify(notify.Message{Text: "Output written to: " + path})
	}
	return nil
}

func archive(ctx context.Context, path, site string, started time.Time, records []jobs.Record, n notify.Notifier) error {
	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	added, err := db.SaveRun(ctx, site, started, records)
	if err != nil {
		return err
	}
	total, err := db.Count(ctx)
	if err != nil {
		return err
	}
	n.Notify(notify.Message{Text: fmt.Sprintf("Archived %d new jobs (%d total) in %s", added, total, path)})
	return nil
}

// newLogger logs to stderr so stdout stays free for "-o -".
func newLogger(debug bool) (*zap.Logger, error) {
	level := zap.WarnLevel
	if debug {
		level = zap.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	return zap.New(core), nil
}

// normalizeURL adds https:// when the argument has no scheme
func normalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "https://" + rawURL
	}
	return rawURL
}
