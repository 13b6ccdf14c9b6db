package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.APIBaseURL)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, 10*time.Second, c.RefreshTimeout)
	assert.NotEmpty(t, c.DatabasePath)
	assert.Empty(t, c.EncryptionSecret)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "console", c.LogFormat)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("", Flags{}, noEnv)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	if diff := cmp.Diff(&want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"api_url":         "https://json.example",
		"request_timeout": "20s",
		"refresh_timeout": 5000000000,
		"db_path":         "/json/session.db",
		"log_level":       "debug",
	})
	env := envOf(map[string]string{
		EnvAPIURL:           "https://env.example",
		EnvEncryptionSecret: "s3cret",
		EnvLogLevel:         "warn",
		EnvRequestTimeout:   "30s",
	})
	flags := Flags{APIBaseURL: "https://flag.example", LogFormat: "json"}

	cfg, err := Load(path, flags, env)
	require.NoError(t, err)

	want := &Config{
		APIBaseURL:       "https://flag.example",
		RequestTimeout:   30 * time.Second,
		RefreshTimeout:   5 * time.Second,
		DatabasePath:     "/json/session.db",
		EncryptionSecret: "s3cret",
		LogLevel:         "warn",
		LogFormat:        "json",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		flags Flags
		env   map[string]string
	}{
		{name: "missing file", path: "/does/not/exist.json"},
		{name: "relative api url", flags: Flags{APIBaseURL: "api.example"}},
		{name: "bad duration", env: map[string]string{EnvRefreshTimeout: "soon"}},
		{name: "negative duration", env: map[string]string{EnvRequestTimeout: "-1s"}},
		{name: "unknown log format", flags: Flags{LogFormat: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path, tt.flags, envOf(tt.env))
			assert.Error(t, err)
		})
	}
}
