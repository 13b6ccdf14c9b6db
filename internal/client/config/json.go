package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/sociusfit/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept "3s" or integer nanoseconds. Absent keys keep earlier values.
type jsonConfig struct {
	APIBaseURL       string         `json:"api_url"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	RefreshTimeout   timex.Duration `json:"refresh_timeout"`
	DatabasePath     string         `json:"db_path"`
	EncryptionSecret string         `json:"encryption_secret"`
	LogLevel         string         `json:"log_level"`
	LogFormat        string         `json:"log_format"`
}

func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.EncryptionSecret, jc.EncryptionSecret)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RefreshTimeout.Duration != 0 {
		cfg.RefreshTimeout = jc.RefreshTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
