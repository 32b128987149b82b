// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the PhantomChat server.
//
// Fields:
//   - EndpointAddr: bind address for the TCP listener.
//   - UsersFile: path to the credential file (used when DatabaseDSN is empty).
//   - DatabaseDSN: PostgreSQL DSN (pgx); when set, credentials live in the
//     database instead of the file.
//   - MaxAuthAttempts: failed authentication budget per connection.
//   - ReadTimeout: idle expiry for established sessions; zero disables it.
type Config struct {
	EndpointAddr    string
	UsersFile       string
	DatabaseDSN     string
	MaxAuthAttempts int
	ReadTimeout     time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":12345"
	c.UsersFile = "users.txt"
	c.DatabaseDSN = ""
	c.MaxAuthAttempts = 3
	c.ReadTimeout = 0
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
