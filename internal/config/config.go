// Package config assembles runtime settings for the recall data layer from
// defaults, an optional JSON file, and command-line flags. Later sources
// take precedence over earlier ones.
package config

import "time"

// Config holds runtime settings for the recall process.
type Config struct {
	// LocalDSN is the path of the embedded SQLite database.
	LocalDSN string

	// RemoteDSN points at the managed cloud store. Empty disables remote
	// mode entirely (the selector then never leaves local).
	RemoteDSN string

	// OnlineCheckInterval is how often the connectivity watcher probes the
	// remote store.
	OnlineCheckInterval time.Duration

	// TransitionWait bounds how long dispatches queue behind a mode
	// transition before timing out.
	TransitionWait time.Duration

	// CallerTokenSecret verifies dashboard caller tokens at the gateway.
	CallerTokenSecret string

	// Object-storage settings for artifact offload. An empty bucket
	// disables offload and keeps artifacts inline.
	S3Region    string
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDSN = "recall.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.TransitionWait = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
