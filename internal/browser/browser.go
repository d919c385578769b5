package browser

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// UserAgent is sent by every page so LinkedIn serves the regular desktop UI.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Config describes how to launch Chrome.
type Config struct {
	ProxyURL string
	Headless bool
	// ProfileDir keeps cookies between runs; empty uses a throwaway profile.
	ProfileDir string
	// Bin overrides the browser executable; empty lets rod find or download one.
	Bin    string
	Logger *zap.Logger
}

// Browser wraps a launched rod.Browser
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	log      *zap.Logger
}

// New launches a browser and connects to it.
func New(cfg Config) (*Browser, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("browser")

	l := launcher.New().Headless(cfg.Headless)
	if cfg.ProxyURL != "" {
		l = l.Proxy(cfg.ProxyURL)
	}
	if cfg.ProfileDir != "" {
		l = l.UserDataDir(cfg.ProfileDir)
	}
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "launch browser")
	}
	log.Debug("launched",
		zap.Bool("headless", cfg.Headless),
		zap.String("profile", cfg.ProfileDir),
		zap.Bool("proxy", cfg.ProxyURL != ""))

	rb := rod.New().ControlURL(controlURL)
	if err := rb.Connect(); err != nil {
		l.Kill()
		return nil, errors.Wrap(err, "connect to browser")
	}

	return &Browser{browser: rb, launcher: l, log: log}, nil
}

// NewPage opens a blank tab bound to ctx with the desktop user agent.
func (b *Browser) NewPage(ctx context.Context) (*rod.Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, errors.Wrap(err, "open page")
	}
	page = page.Context(ctx)

	_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: UserAgent})
	_, _ = page.EvalOnNewDocument(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`)
	return page, nil
}

// Close closes the browser and kills the launched process.
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
	}
	b.log.Debug("closed", zap.Error(err))
	if err != nil {
		return errors.Wrap(err, "close browser")
	}
	return nil
}
