package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkessler/logvault/internal/archive"
	"github.com/mkessler/logvault/internal/config"
	"github.com/mkessler/logvault/internal/logging"
	"github.com/mkessler/logvault/internal/server"
	"github.com/mkessler/logvault/internal/update"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const watcherDebounce = 500 * time.Millisecond

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "update":
			runUpdate(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("logvault %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runServe(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`logvault %s - local web server for JSONL conversation archives

Serves a sandboxed archive of JSONL log files over a REST API:
a hierarchical index with one session per non-blank line, on-demand
session retrieval normalized to a canonical conversation shape,
multi-file upload, and recursive delete.

Usage:
  logvault [flags]          Start the server (default command)
  logvault serve [flags]    Start the server (explicit)
  logvault update           Check for a newer release
  logvault version          Show version information
  logvault help             Show this help

Server flags:
  -host string        Host to bind to (default "127.0.0.1")
  -port int           Port to listen on (default 8080)
  -root string        Archive root directory
  -log-level string   Log level: debug, info, warn, error

Environment variables:
  LOGVAULT_ARCHIVE_ROOT   Archive root directory
  LOGVAULT_HOST           Host to bind to
  LOGVAULT_PORT           Port to listen on
  LOGVAULT_LOG_LEVEL      Log level

The archive lives in ~/.logvault/archive by default.
`, version)
}

func runServe(args []string) {
	cfg := mustLoadConfig(args)
	logger := logging.New(cfg.LogLevel)

	svc, err := archive.NewService(cfg.ArchiveRoot, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initializing archive")
	}

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		fmt.Printf("Port %d in use, using %d\n", cfg.Port, port)
	}
	cfg.Port = port

	srv := server.New(cfg, svc, logger,
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
	)

	stopWatcher := startWatcher(svc, srv, logger)
	defer stopWatcher()

	fmt.Printf("logvault %s serving %s at http://%s:%d\n",
		version, svc.Root(), cfg.Host, cfg.Port)

	if err := srv.ListenAndServe(); err != nil &&
		err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func mustLoadConfig(args []string) config.Config {
	fs := flag.NewFlagSet("logvault", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"Usage: logvault [serve] [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "parsing flags: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// startWatcher wires the debounced archive watcher to the server's
// SSE change stream. A missing watcher backend only disables live
// updates; the server still runs.
func startWatcher(
	svc *archive.Service,
	srv *server.Server,
	logger zerolog.Logger,
) func() {
	watcher, err := archive.NewWatcher(
		svc.Root(), watcherDebounce, srv.NotifyChange, logger,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("file watcher unavailable")
		return func() {}
	}
	if err := watcher.Start(); err != nil {
		logger.Warn().Err(err).Msg("file watcher failed to start")
		return func() {}
	}
	return watcher.Stop
}

func runUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "parsing flags: %v\n", err)
		os.Exit(1)
	}

	info, err := update.Check(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "update check failed: %v\n", err)
		os.Exit(1)
	}
	if info == nil {
		fmt.Printf("logvault %s is up to date\n", version)
		return
	}
	if info.IsDevBuild {
		fmt.Printf("running dev build %s; latest release is %s\n",
			info.CurrentVersion, info.LatestVersion)
	} else {
		fmt.Printf("update available: %s -> %s\n",
			info.CurrentVersion, info.LatestVersion)
	}
	if info.ReleaseURL != "" {
		fmt.Printf("release notes: %s\n", info.ReleaseURL)
	}
}
