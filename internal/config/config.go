// Package config loads jobexport settings from flags, JOBEXPORT_* environment
// variables and an optional YAML file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"jobexport/internal/stabilize"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const EnvPrefix = "JOBEXPORT"

type Config struct {
	Debug    bool           `mapstructure:"debug"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Paginate PaginateConfig `mapstructure:"paginate"`
	Detail   DetailConfig   `mapstructure:"detail"`
	Output   OutputConfig   `mapstructure:"output"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
}

type BrowserConfig struct {
	Headless   bool   `mapstructure:"headless"`
	Proxy      string `mapstructure:"proxy"`
	ProfileDir string `mapstructure:"profile_dir"`
	Bin        string `mapstructure:"bin"`

	// NavTimeout bounds navigation and the wait for the first list to render.
	NavTimeout time.Duration `mapstructure:"nav_timeout"`
}

type PaginateConfig struct {
	MaxPages     int           `mapstructure:"max_pages"`
	PageTimeout  time.Duration `mapstructure:"page_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type DetailConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	SettleCount  int           `mapstructure:"settle_count"`
	FastInterval time.Duration `mapstructure:"fast_interval"`
	FastCount    int           `mapstructure:"fast_count"`
	SlowInterval time.Duration `mapstructure:"slow_interval"`

	// ItemRate caps item activations per second; 0 means no cap.
	ItemRate float64 `mapstructure:"item_rate"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
	Dir    string `mapstructure:"dir"`
}

type ArchiveConfig struct {
	Path string `mapstructure:"path"`
}

var formats = map[string]bool{
	"": true, "csv": true, "xlsx": true, "json": true,
	"markdown": true, "md": true, "text": true, "txt": true, "html": true,
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.profile_dir", DefaultProfileDir())
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.nav_timeout", 30*time.Second)

	v.SetDefault("paginate.max_pages", 50)
	v.SetDefault("paginate.page_timeout", stabilize.PageChange.Timeout)
	v.SetDefault("paginate.poll_interval", stabilize.PageChange.SlowInterval)

	v.SetDefault("detail.timeout", time.Duration(0)) // wait forever
	v.SetDefault("detail.settle_count", stabilize.DetailSettle.SettleCount)
	v.SetDefault("detail.fast_interval", stabilize.DetailSettle.FastInterval)
	v.SetDefault("detail.fast_count", stabilize.DetailSettle.FastCount)
	v.SetDefault("detail.slow_interval", stabilize.DetailSettle.SlowInterval)
	v.SetDefault("detail.item_rate", 0.0)

	v.SetDefault("output.format", "")
	v.SetDefault("output.file", "")
	v.SetDefault("output.dir", ".")

	v.SetDefault("archive.path", "")
}

// BindEnv adds short aliases for the settings people set most often.
func BindEnv(v *viper.Viper) {
	_ = v.BindEnv("browser.proxy", EnvPrefix+"_PROXY", EnvPrefix+"_BROWSER_PROXY")
	_ = v.BindEnv("browser.profile_dir", EnvPrefix+"_PROFILE_DIR", EnvPrefix+"_BROWSER_PROFILE_DIR")
	_ = v.BindEnv("archive.path", EnvPrefix+"_ARCHIVE", EnvPrefix+"_ARCHIVE_PATH")
}

// NewViper builds a viper instance with defaults and env binding, then merges
// configFile, or the default config file when configFile is empty and one exists.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindEnv(v)
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configFile)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "jobexport"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}
	return v, nil
}

// Load unmarshals and validates v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Browser.NavTimeout <= 0:
		return errors.Newf("browser.nav_timeout must be positive, got %s", c.Browser.NavTimeout)
	case c.Paginate.MaxPages < 1:
		return errors.Newf("paginate.max_pages must be at least 1, got %d", c.Paginate.MaxPages)
	case c.Paginate.PageTimeout <= 0:
		return errors.Newf("paginate.page_timeout must be positive, got %s", c.Paginate.PageTimeout)
	case c.Paginate.PollInterval <= 0:
		return errors.Newf("paginate.poll_interval must be positive, got %s", c.Paginate.PollInterval)
	case c.Detail.Timeout < 0:
		return errors.Newf("detail.timeout must not be negative, got %s", c.Detail.Timeout)
	case c.Detail.SettleCount < 1:
		return errors.Newf("detail.settle_count must be at least 1, got %d", c.Detail.SettleCount)
	case c.Detail.SlowInterval <= 0:
		return errors.Newf("detail.slow_interval must be positive, got %s", c.Detail.SlowInterval)
	case c.Detail.FastCount < 0 || c.Detail.FastInterval < 0:
		return errors.New("detail fast polling settings must not be negative")
	case c.Detail.ItemRate < 0:
		return errors.Newf("detail.item_rate must not be negative, got %g", c.Detail.ItemRate)
	}
	if !formats[strings.ToLower(c.Output.Format)] {
		return errors.WithHint(
			errors.Newf("unknown output format %q", c.Output.Format),
			"use one of csv, xlsx, json, markdown, text, html")
	}
	return nil
}

// PageChange returns the detector settings for waiting on a listing page turn.
func (c *Config) PageChange() stabilize.Config {
	return stabilize.Config{
		SlowInterval: c.Paginate.PollInterval,
		Timeout:      c.Paginate.PageTimeout,
	}
}

// DetailSettle returns the detector settings for waiting on a detail region.
func (c *Config) DetailSettle() stabilize.Config {
	return stabilize.Config{
		FastInterval: c.Detail.FastInterval,
		FastCount:    c.Detail.FastCount,
		SlowInterval: c.Detail.SlowInterval,
		SettleCount:  c.Detail.SettleCount,
		Timeout:      c.Detail.Timeout,
	}
}

// DefaultProfileDir is where the browser profile (and its login session) lives.
func DefaultProfileDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "jobexport", "profile")
	}
	return filepath.Join(dir, "jobexport", "profile")
}
