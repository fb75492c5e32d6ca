// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the portal server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the public HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory stores.
//   - SessionTokenTTL / ResetTokenTTL: token lifetimes.
//   - SweepSchedule: cron spec for the expired-token sweep.
//   - ResetBaseURL: external base URL reset links are built from.
//   - SMTPServer / SMTPPort / SMTPFrom / SMTPUser / SMTPPassword: mail relay
//     settings. Empty SMTPServer selects the log-only mailer.
type Config struct {
	EndpointAddrHTTP string
	DatabaseDSN      string
	SessionTokenTTL  time.Duration
	ResetTokenTTL    time.Duration
	SweepSchedule    string
	ResetBaseURL     string
	SMTPServer       string
	SMTPPort         int
	SMTPFrom         string
	SMTPUser         string
	SMTPPassword     string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.SessionTokenTTL = 8 * time.Hour
	c.ResetTokenTTL = 1 * time.Hour
	c.SweepSchedule = "@every 15m"
	c.ResetBaseURL = "http://localhost:8080"
	c.SMTPServer = ""
	c.SMTPPort = 25
	c.SMTPFrom = "noreply@helioview.local"
	c.SMTPUser = ""
	c.SMTPPassword = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
