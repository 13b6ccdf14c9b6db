package config

// Flags carries values given on the command line. Empty fields are unset
// and keep the value from earlier sources.
type Flags struct {
	APIBaseURL   string
	DatabasePath string
	LogLevel     string
	LogFormat    string
}

func (f Flags) apply(cfg *Config) {
	setString(&cfg.APIBaseURL, f.APIBaseURL)
	setString(&cfg.DatabasePath, f.DatabasePath)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogFormat, f.LogFormat)
}
