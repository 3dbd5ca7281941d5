package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/scmtools/textveil/internal/config"
	"github.com/scmtools/textveil/internal/logger"
	"github.com/scmtools/textveil/internal/prompt"
	"github.com/scmtools/textveil/internal/runner"
	"github.com/scmtools/textveil/internal/server"
	"github.com/scmtools/textveil/internal/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		serve       = flag.Bool("serve", false, "Run the HTTP service instead of the CLI")
		healthCheck = flag.Bool("health-check", false, "Perform health check against the running server and exit")
		inputPath   = flag.String("input", "", "File or directory to anonymize (non-interactive mode)")
		targetsRaw  = flag.String("targets", "", "Comma-separated keywords to anonymize")
		numbers     = flag.Bool("numbers", true, "Also anonymize numbers (time values are kept)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("textveil %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *healthCheck {
		performHealthCheck(cfg.Server.Port)
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *serve {
		runServer(cfg, log)
		return
	}

	runCLI(cfg, log, *inputPath, *targetsRaw, *numbers)
}

// runServer starts the HTTP service with graceful shutdown
func runServer(cfg *config.Config, log *logger.Logger) {
	log.Info("Starting textveil",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("port", cfg.Server.Port),
	)

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Apply engine-default changes from config file edits without restart
	if err := config.Watch(cfg, func(updated *config.Config) {
		srv.UpdateEngineDefaults(updated.Engine)
	}); err != nil {
		log.Warn("Config watch unavailable", zap.Error(err))
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// runCLI executes one batch run, interactively unless -input was given.
// A panic anywhere below is reported generically instead of crashing with
// a stack trace in the user's face.
func runCLI(cfg *config.Config, log *logger.Logger, inputPath, targetsRaw string, numbers bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "An unexpected error occurred: %v\n", r)
			os.Exit(1)
		}
	}()

	var mappingStore runner.MappingStore
	if cfg.Store.Enabled {
		st, err := store.NewStore(&store.Config{
			DatabaseURL:     cfg.Store.DatabaseURL,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		}, log.WithComponent("store").Logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to mapping store: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()
		mappingStore = st
	}

	r := runner.New(cfg.Engine, cfg.Output, mappingStore, log)
	ctx := context.Background()

	if inputPath == "" {
		session := prompt.New(os.Stdin, os.Stdout, r)
		if err := session.Run(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	summary, err := r.Run(ctx, runner.Options{
		InputPath:        inputPath,
		Targets:          prompt.ParseTargets(targetsRaw),
		AnonymizeNumbers: numbers,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		os.Exit(1)
	}
	prompt.PrintSummary(os.Stdout, summary)
}

// performHealthCheck performs a health check against the running server
func performHealthCheck(port int) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
