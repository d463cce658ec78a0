package config

import "time"

// Config holds runtime settings for the gophdrive CLI.
type Config struct {
	// DatabaseDSN is passed to the sqlite driver; a bare path works.
	DatabaseDSN string
	// HandleAddr is the host:port the handle server binds. Handle locators
	// are built from it, so it should be a loopback address.
	HandleAddr string
	// HandleTTL bounds how long an unreleased handle stays dereferenceable.
	HandleTTL   time.Duration
	DownloadDir string
	LogLevel    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "drive.db"
	c.HandleAddr = "127.0.0.1:8787"
	c.HandleTTL = 15 * time.Minute
	c.DownloadDir = "downloads"
	c.LogLevel = "info"
}

// BaseURL is the prefix used for handle locators.
func (c *Config) BaseURL() string {
	return "http://" + c.HandleAddr
}

// LoadConfig constructs a Config from defaults, then the JSON file named by
// -c/-config (if any), then flags. args are the process arguments without the
// program name, usually os.Args[1:].
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
