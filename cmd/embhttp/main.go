// Package main is the entry point for the embedded HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/embhttp/internal/config"
	"github.com/vyrodovalexey/embhttp/internal/observability"
	"github.com/vyrodovalexey/embhttp/internal/router"
	"github.com/vyrodovalexey/embhttp/internal/server"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	cfg := loadConfig(flags)

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("embhttp")
	}

	rtr := router.New().WithMetrics(metrics)
	registerRoutes(rtr, metrics, cfg)

	srv := server.New(cfg.Server, rtr, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("failed to start server", observability.Error(err))
	}

	logger.Info("server started",
		observability.String("version", version),
		observability.Strings("addresses", srv.Addrs()),
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("shutdown incomplete", observability.Error(err))
	}
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("EMBHTTP_CONFIG_PATH", ""),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("EMBHTTP_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("EMBHTTP_LOG_FORMAT", ""),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// loadConfig loads and validates configuration, applying flag overrides.
func loadConfig(flags cliFlags) *config.Config {
	cfg := config.DefaultConfig()

	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// printVersion prints build information.
func printVersion() {
	fmt.Printf("embhttp %s (built %s)\n", version, buildTime)
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
