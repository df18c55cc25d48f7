package config

import "time"

// Config holds runtime settings for the Clarifio CLI.
//
// Fields:
//   - ServerBaseURL: base URL of the backend HTTP API.
//   - RequestTimeout: per-request timeout for collaborator calls.
//   - DatabaseDSN: sqlite DSN of the local metadata store.
type Config struct {
	ServerBaseURL  string
	RequestTimeout time.Duration
	DatabaseDSN    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 30 * time.Second
	c.DatabaseDSN = "clarifio.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
