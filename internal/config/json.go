package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophdrive/internal/flagx"
	"github.com/dmitrijs2005/gophdrive/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Only fields
// present in the file override the current values.
type JsonConfig struct {
	DatabaseDSN *string         `json:"database_dsn"`
	HandleAddr  *string         `json:"handle_addr"`
	HandleTTL   *timex.Duration `json:"handle_ttl"`
	DownloadDir *string         `json:"download_dir"`
	LogLevel    *string         `json:"log_level"`
}

// parseJson overlays cfg with values from the file named by -c/-config.
// No flag means nothing to do.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.DatabaseDSN != nil {
		cfg.DatabaseDSN = *jc.DatabaseDSN
	}
	if jc.HandleAddr != nil {
		cfg.HandleAddr = *jc.HandleAddr
	}
	if jc.HandleTTL != nil {
		cfg.HandleTTL = jc.HandleTTL.Duration
	}
	if jc.DownloadDir != nil {
		cfg.DownloadDir = *jc.DownloadDir
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	return nil
}
