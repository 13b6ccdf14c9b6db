package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/sociusfit/internal/logging"
)

// Config holds runtime settings for the SociusFit client.
//
// Fields:
//   - APIBaseURL: absolute base URL of the backend, e.g. https://api.sociusfit.app.
//   - RequestTimeout: bound for one HTTP exchange, retries included.
//   - RefreshTimeout: bound for a single token refresh call.
//   - DatabasePath: SQLite file holding the session.
//   - EncryptionSecret: when set, stored tokens are sealed with a key derived from it.
//   - LogLevel, LogFormat: see logging.New.
type Config struct {
	APIBaseURL       string
	RequestTimeout   time.Duration
	RefreshTimeout   time.Duration
	DatabasePath     string
	EncryptionSecret string
	LogLevel         string
	LogFormat        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 15 * time.Second
	c.RefreshTimeout = 10 * time.Second
	c.DatabasePath = defaultDatabasePath()
	c.EncryptionSecret = ""
	c.LogLevel = "info"
	c.LogFormat = logging.FormatConsole
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sociusfit.db"
	}
	return filepath.Join(dir, "sociusfit", "session.db")
}

// Load builds a Config from defaults, then the JSON file at path (skipped
// when path is empty), then the environment, then flags. Later sources take
// precedence. lookupEnv may be nil to use the process environment.
func Load(path string, flags Flags, lookupEnv func(string) (string, bool)) (*Config, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, path); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}
	flags.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api url %q must be an absolute URL", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 || c.RefreshTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive (request %s, refresh %s)", c.RequestTimeout, c.RefreshTimeout)
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database path must not be empty")
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
