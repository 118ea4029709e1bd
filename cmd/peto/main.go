package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/app"
	"github.com/ternarybob/peto/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	mode         = flag.String("mode", app.ModeAll, "Run mode: crawl, analyze, visualize, or all")
	keywords     = flag.String("keywords", "", "Comma-separated search keywords (overrides config)")
	locations    = flag.String("locations", "", "Comma-separated search locations (overrides config)")
	pages        = flag.Int("pages", 0, "Pages per keyword/location combination (overrides config)")
	headless     = flag.Bool("headless", false, "Run the browser headless (overrides config)")
	inputFile    = flag.String("input", "", "Jobs xlsx to analyze/visualize (default: newest processed export)")
	schedule     = flag.String("schedule", "", "Cron expression for repeated runs (e.g. \"0 6 * * *\")")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	common.LoadVersionFromFile()

	if *showVersion || *showVersionV {
		fmt.Printf("Peto version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("peto.toml"); err == nil {
			configFiles = append(configFiles, "peto.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *keywords, *locations, *pages, *headless)

	logger = common.InitLogger(config)
	logger.Debug().Str("log_file", common.GetLogFilePath(logger)).Msg("Logger initialized")

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("mode", *mode).
		Strs("keywords", config.Search.Keywords).
		Strs("locations", config.Search.Locations).
		Int("pages_per_search", config.Search.PagesPerSearch).
		Msg("Configuration loaded")

	application := app.New(config, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *schedule != "" {
		runScheduled(ctx, application, *mode, *schedule)
		return
	}

	if err := application.Run(ctx, *mode, *inputFile); err != nil {
		logger.Fatal().Err(err).Str("mode", *mode).Msg("Run failed")
	}

	logger.Info().Msg("Done")
}

// runScheduled repeats the pipeline on a cron schedule until interrupted.
// Runs never overlap; a tick that fires while the previous run is still
// going is skipped.
func runScheduled(ctx context.Context, application *app.App, mode, spec string) {
	running := make(chan struct{}, 1)

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		select {
		case running <- struct{}{}:
		default:
			logger.Warn().Msg("Previous scheduled run still in progress, skipping tick")
			return
		}
		defer func() { <-running }()

		logger.Info().Str("schedule", spec).Msg("Scheduled run starting")
		if err := application.Run(ctx, mode, ""); err != nil {
			logger.Error().Err(err).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Str("schedule", spec).Msg("Invalid cron expression")
	}

	c.Start()
	logger.Info().Str("schedule", spec).Msg("Scheduler started - Press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("Stopping scheduler")
	<-c.Stop().Done()
	logger.Info().Msg("Scheduler stopped")
}
