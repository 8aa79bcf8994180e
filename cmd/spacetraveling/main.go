package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/logger"
	"github.com/eringen/spacetraveling/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	// Until the config is loaded, log at the level from the environment.
	logger.InitFromEnv("LOG_LEVEL")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			logger.Error("serve failed", logger.Fields{"error": err.Error()})
			os.Exit(1)
		}
	case "build":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: spacetraveling build <output-dir>")
			os.Exit(1)
		}
		if err := runBuild(os.Args[2]); err != nil {
			logger.Error("build failed", logger.Fields{"error": err.Error()})
			os.Exit(1)
		}
	case "version":
		fmt.Printf("spacetraveling %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func newApp() (*spacetraveling.App, error) {
	cfg, err := spacetraveling.LoadConfig(spacetraveling.EnvOr("SPACETRAVELING_CONFIG", "config.yaml"))
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)
	return spacetraveling.New(cfg, views.Funcs(cfg)), nil
}

func runServe() error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Echo.Shutdown(shutdownCtx)
}

func runBuild(dir string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Build(ctx, dir)
}

func printUsage() {
	fmt.Println(`spacetraveling - A blog front-end for Prismic built with Go, Echo, and templ

Usage:
  spacetraveling <command> [arguments]

Commands:
  serve            Start the web server
  build <dir>      Render the whole site as static files into dir
  version          Print the spacetraveling version
  help             Show this help message

Configuration is read from .env, config.yaml (or $SPACETRAVELING_CONFIG)
and environment variables such as PRISMIC_API_ENDPOINT and SITE_URL.

Examples:
  PRISMIC_API_ENDPOINT=https://myrepo.cdn.prismic.io/api/v2 spacetraveling serve
  spacetraveling build dist`)
}
