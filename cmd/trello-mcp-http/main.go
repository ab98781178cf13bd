// Command trello-mcp-http serves the Trello tool catalog over MCP/HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"trello-mcp/internal/config"
	"trello-mcp/internal/server"
	"trello-mcp/internal/trello"
)

// version is set at build time via -ldflags.
var version = "dev"

const banner = `
  _            _ _
 | |_ _ __ ___| | | ___    _ __ ___   ___ _ __
 | __| '__/ _ \ | |/ _ \  | '_ ' _ \ / __| '_ \
 | |_| | |  __/ | | (_) | | | | | | | (__| |_) |
  \__|_|  \___|_|_|\___/  |_| |_| |_|\___| .__/
                                         |_|
`

const shutdownTimeout = 10 * time.Second

type options struct {
	configPath string
	addr       string
	catalog    string
	logLevel   string
	showVer    bool
}

func main() {
	flagSet := pflag.NewFlagSet("trello-mcp-http", pflag.ContinueOnError)
	var opts options
	flagSet.StringVarP(&opts.configPath, "config", "c", os.Getenv(config.EnvConfigPath), "path to the YAML config file")
	flagSet.StringVar(&opts.addr, "addr", "", "listen address, overrides server.addr")
	flagSet.StringVar(&opts.catalog, "catalog", "", "tool catalog to expose: full or public")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flagSet.BoolVar(&opts.showVer, "version", false, "print the version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if opts.showVer {
		fmt.Println(version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.catalog != "" {
		cfg.Server.Catalog = opts.catalog
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating flags: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	printBanner(cfg, opts.configPath)

	if cfg.Server.AuthToken == "" {
		logger.Warn("auth token not set; MCP endpoints are open", "env", config.EnvAuthToken)
	}

	client := trello.New(cfg.Trello.BaseURL, cfg.Trello.APIKey, cfg.Trello.Token,
		&http.Client{Timeout: cfg.Trello.HTTPTimeout})

	srv, err := server.New(server.Config{
		AuthToken:          cfg.Server.AuthToken,
		Upstream:           client,
		Catalog:            cfg.Server.Catalog,
		ListTimeout:        cfg.Tools.ListTimeout,
		CallTimeout:        cfg.Tools.CallTimeout,
		RequestTimeout:     cfg.Server.RequestTimeout,
		KeepaliveInterval:  cfg.Server.KeepaliveInterval,
		BoardCacheTTL:      cfg.Tools.BoardCacheTTL,
		LegacyListFallback: cfg.Tools.LegacyListFallback,
		Version:            version,
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// No WriteTimeout: /sse responses stay open indefinitely.
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting trello-mcp",
			"addr", cfg.Server.Addr,
			"catalog", cfg.Server.Catalog,
			"tls", cfg.Server.TLS.Enabled(),
			"version", version,
		)
		var err error
		if cfg.Server.TLS.Enabled() {
			err = httpServer.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func printBanner(cfg *config.Config, configPath string) {
	if color.NoColor {
		return
	}
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(os.Stderr, banner)
	gray.Fprintf(os.Stderr, "    version: %s\n\n", version)

	if configPath == "" {
		configPath = "(defaults + environment)"
	}
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Config:  %s\n", configPath)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Listen:  %s", cfg.Server.Addr)
	if cfg.Server.TLS.Enabled() {
		yellow.Fprint(os.Stderr, " [tls]")
	}
	fmt.Fprintln(os.Stderr)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Catalog: %s\n\n", cfg.Server.Catalog)
}
