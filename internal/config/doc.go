// Package config loads runtime configuration for the gophdrive CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string   SQLite DSN or file path of the local store
//	-a string   loopback address the handle server listens on
//	-t int      handle lifetime (seconds)
//	-o string   directory downloads are written to
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations use timex.Duration, so "15m" and integer nanoseconds both work:
//
//	{
//	  "database_dsn": "drive.db",
//	  "handle_addr": "127.0.0.1:8787",
//	  "handle_ttl": "15m",
//	  "download_dir": "downloads",
//	  "log_level": "info"
//	}
//
// Environment variables are not read.
package config
