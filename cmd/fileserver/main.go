package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/fileserver/internal/logger"
	"github.com/marmos91/fileserver/pkg/config"
	"github.com/marmos91/fileserver/pkg/server"
)

const usage = `fileserver - concurrent HTTP/1.0 file server

Usage:
  fileserver <command> [flags]

Commands:
  init     Write a default configuration file
  start    Start the server

Run 'fileserver <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runInit writes a commented default configuration file.
func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing configuration file")
	configPath := fs.String("config", "", "Path to write (default "+config.GetDefaultConfigPath()+")")
	_ = fs.Parse(args)

	path := *configPath
	if path == "" {
		written, err := config.InitConfig(*force)
		if err != nil {
			return err
		}
		path = written
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

// runStart loads the configuration and serves until SIGINT or SIGTERM.
func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default "+config.GetDefaultConfigPath()+")")
	_ = fs.Parse(args)

	// ========================================================================
	// Step 1: Load configuration and configure logging
	// ========================================================================

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	fmt.Println("fileserver - HTTP/1.0 file server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Content provider: %s", cfg.Content.Type)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Step 2: Create the content provider
	// ========================================================================

	provider, err := config.CreateProvider(ctx, &cfg.Content)
	if err != nil {
		return fmt.Errorf("failed to create content provider: %w", err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Error("Failed to close content provider: %v", err)
		}
	}()

	// ========================================================================
	// Step 3: Metrics
	// ========================================================================

	metricsResult, err := config.InitializeMetrics(cfg, provider)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	// ========================================================================
	// Step 4: Adapters and server
	// ========================================================================

	adapters, err := config.CreateAdapters(cfg, metricsResult.HTTPMetrics)
	if err != nil {
		return fmt.Errorf("failed to create adapters: %w", err)
	}

	srv := server.New(provider.Provider)
	srv.SetStopTimeout(cfg.Server.ShutdownTimeout)

	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return fmt.Errorf("failed to add %s adapter: %w", a.Protocol(), err)
		}
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
