// Package config loads runtime configuration for the SociusFit client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file, selected with --config.
//  3. Environment variables (SOCIUSFIT_*).
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "10s" or
// integer nanoseconds:
//
//	{
//	  "api_url": "https://api.sociusfit.app",
//	  "request_timeout": "15s",
//	  "refresh_timeout": "10s",
//	  "db_path": "/home/ada/.config/sociusfit/session.db",
//	  "encryption_secret": "",
//	  "log_level": "info",
//	  "log_format": "console"
//	}
//
// # Environment
//
//	SOCIUSFIT_API_URL, SOCIUSFIT_DB_PATH, SOCIUSFIT_ENCRYPTION_SECRET,
//	SOCIUSFIT_LOG_LEVEL, SOCIUSFIT_LOG_FORMAT,
//	SOCIUSFIT_REQUEST_TIMEOUT, SOCIUSFIT_REFRESH_TIMEOUT
package config
