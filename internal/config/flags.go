package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Arguments that
// belong to other parsers (-c/-config) are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-a", "-t", "-o", "-l"})

	fs := flag.NewFlagSet("gophdrive", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "sqlite DSN or file path")
	fs.StringVar(&cfg.HandleAddr, "a", cfg.HandleAddr, "handle server address")
	ttl := fs.Int("t", int(cfg.HandleTTL.Seconds()), "handle lifetime (in seconds)")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *ttl <= 0 {
		return fmt.Errorf("parse flags: handle lifetime must be positive, got %d", *ttl)
	}

	cfg.HandleTTL = time.Duration(*ttl) * time.Second
	return nil
}
