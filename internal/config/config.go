// Package config holds runtime settings for the Reflecta backend.
package config

import "path/filepath"

// Config holds runtime settings.
//
// Fields:
//   - DataDir: root directory for the journal database, received pictures
//     and the persisted activity state.
//   - ListenAddr: host:port served when this participant initiates sharing.
//   - JoinURL: ws:// URL of an initiator's channel; empty means local-only
//     or initiator mode.
//   - Nick, Color: the local participant's display identity, stamped onto
//     outbound comments.
//   - LogLevel: minimum log level (DEBUG, INFO, WARN, ERROR).
type Config struct {
	DataDir    string
	ListenAddr string
	JoinURL    string
	Nick       string
	Color      string
	LogLevel   string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "./data"
	c.ListenAddr = "127.0.0.1:8090"
	c.JoinURL = ""
	c.Nick = "student"
	c.Color = "#FFD700"
	c.LogLevel = "INFO"
}

// StatePath returns the activity-state blob path under the data dir.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "activity_state.json")
}

// PicturesDir returns the received-pictures directory under the data dir.
func (c *Config) PicturesDir() string {
	return filepath.Join(c.DataDir, "pictures")
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from a JSON file (if given) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
