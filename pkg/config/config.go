// Package config loads the mk10pro binary's environment-derived settings.
// Only the cmd/mk10pro boundary reads these; every other package receives
// its inputs as explicit function arguments, never by reading the
// environment itself.
package config

import (
	"log/slog"
	"os"
	"strconv"
)

// Config holds the settings cmd/mk10pro reads from its process environment.
type Config struct {
	RulesFile      string
	LogLevel       string
	MetricsEnabled bool
	AuditCache     bool
	SignerKeyFile  string
}

// Load reads configuration from environment variables, applying defaults:
// rules file "rules.yaml", log level INFO, metrics on, audit cache off.
func Load() *Config {
	rulesFile := os.Getenv("MK10PRO_RULES_FILE")
	if rulesFile == "" {
		rulesFile = "rules.yaml"
	}

	logLevel := os.Getenv("MK10PRO_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	metricsEnabled := true
	if v := os.Getenv("MK10PRO_METRICS_ENABLED"); v != "" {
		metricsEnabled, _ = strconv.ParseBool(v)
	}

	auditCache := false
	if v := os.Getenv("MK10PRO_AUDIT_CACHE"); v != "" {
		auditCache, _ = strconv.ParseBool(v)
	}

	return &Config{
		RulesFile:      rulesFile,
		LogLevel:       logLevel,
		MetricsEnabled: metricsEnabled,
		AuditCache:     auditCache,
		SignerKeyFile:  os.Getenv("MK10PRO_SIGNER_KEY_FILE"),
	}
}

// SlogLevel parses LogLevel into a slog.Level, defaulting to Info on any
// unrecognized value.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
