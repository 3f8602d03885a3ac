// Package main is the sidekick host entry point: it loads settings, builds
// the assist client, and keeps the agent session alive until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/sidekick/internal/assist"
	"github.com/dshills/sidekick/internal/config"
	"github.com/dshills/sidekick/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		logLevel    string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("sidekick %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		return 0
	}

	if configPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot resolve config path: %v\n", err)
			return 1
		}
		configPath = path
	}

	settings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if logLevel != "" {
		settings.Logging.Level = logLevel
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(settings.Logging.Level)
	log := logging.New(logCfg)

	client := assist.NewClient(
		assist.WithLogger(log),
		assist.WithInstallConfig(assist.InstallConfig{
			BinaryPath: settings.Assist.AgentPath,
			CacheDir:   settings.Assist.CacheDir,
		}),
		assist.WithAgentConfig(assist.AgentConfig{
			RequestTimeout: settings.Assist.RequestTimeout(),
		}),
	)
	defer client.Shutdown()

	removeObserver := client.OnStatusChange(func(s assist.Status) {
		switch s.Kind {
		case assist.StatusError:
			log.Error("assist: %s", s.Error)
		case assist.StatusSigningIn:
			if s.Prompt != nil {
				log.Info("sign in: enter code %s at %s", s.Prompt.UserCode, s.Prompt.VerificationURI)
			}
		case assist.StatusAuthorized:
			log.Info("assist authorized as %s", s.User)
		default:
			log.Info("assist status: %s", s.Kind)
		}
	})
	defer removeObserver()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applySettings := func(s config.Settings) {
		if s.Assist.Enabled {
			enableCtx, done := context.WithTimeout(ctx, time.Minute)
			defer done()
			if err := client.Enable(enableCtx); err != nil {
				log.Error("enable failed: %v", err)
			}
		} else {
			client.Disable()
		}
	}
	applySettings(settings)

	watcher, err := config.Watch(configPath, applySettings, log)
	if err != nil {
		log.Warn("config watching unavailable: %v", err)
	} else {
		defer watcher.Close()
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	log.Info("shutting down")
	return 0
}
