// Package config holds application configuration, layered as
// defaults < environment < explicitly-set flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Host         string
	Port         int
	ArchiveRoot  string
	LogLevel     string
	WriteTimeout time.Duration
}

// Default returns a Config with default values. The archive lives
// under ~/.logvault/archive unless overridden.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	return Config{
		Host:         "127.0.0.1",
		Port:         8080,
		ArchiveRoot:  filepath.Join(home, ".logvault", "archive"),
		LogLevel:     "info",
		WriteTimeout: 30 * time.Second,
	}, nil
}

// Load builds a Config by layering: defaults < env < flags. The
// provided FlagSet must already be parsed by the caller; only flags
// that were explicitly set override the lower layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	cfg.loadEnv()
	applyFlags(&cfg, fs)
	return cfg, nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("LOGVAULT_ARCHIVE_ROOT"); v != "" {
		c.ArchiveRoot = v
	}
	if v := os.Getenv("LOGVAULT_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("LOGVAULT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("LOGVAULT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// RegisterServeFlags registers serve-command flags on fs. The caller
// must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8080, "Port to listen on")
	fs.String("root", "", "Archive root directory")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			// flag already validated the int; ignore parse error
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "root":
			cfg.ArchiveRoot = f.Value.String()
		case "log-level":
			cfg.LogLevel = f.Value.String()
		}
	})
}
