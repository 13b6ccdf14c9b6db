package config

import (
	"fmt"
	"time"
)

// Environment variables read by Load.
const (
	EnvAPIURL           = "SOCIUSFIT_API_URL"
	EnvDatabasePath     = "SOCIUSFIT_DB_PATH"
	EnvEncryptionSecret = "SOCIUSFIT_ENCRYPTION_SECRET"
	EnvLogLevel         = "SOCIUSFIT_LOG_LEVEL"
	EnvLogFormat        = "SOCIUSFIT_LOG_FORMAT"
	EnvRequestTimeout   = "SOCIUSFIT_REQUEST_TIMEOUT"
	EnvRefreshTimeout   = "SOCIUSFIT_REFRESH_TIMEOUT"
)

func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	setString(&cfg.APIBaseURL, get(EnvAPIURL))
	setString(&cfg.DatabasePath, get(EnvDatabasePath))
	setString(&cfg.EncryptionSecret, get(EnvEncryptionSecret))
	setString(&cfg.LogLevel, get(EnvLogLevel))
	setString(&cfg.LogFormat, get(EnvLogFormat))

	for key, dst := range map[string]*time.Duration{
		EnvRequestTimeout: &cfg.RequestTimeout,
		EnvRefreshTimeout: &cfg.RefreshTimeout,
	} {
		v := get(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}
