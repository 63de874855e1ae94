// Package zinehttp parses HTTP runner flags and serves one instance over
// a standalone HTTP server.
package zinehttp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/zineproject/zine/internal/cmd/runner"
	entrypoint "github.com/zineproject/zine/internal/platform/cmd"
	"github.com/zineproject/zine/internal/platform/timeouts"
)

// DefaultAddr is the listen address when neither env nor flag sets one.
const DefaultAddr = "localhost:8965"

// Config holds HTTP runner configuration.
type Config struct {
	Instance string `env:"ZINE_INSTANCE"`
	Addr     string `env:"ZINE_HTTP_ADDR" envDefault:"localhost:8965"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Instance, "instance", cfg.Instance, "The instance directory to serve")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The HTTP listen address")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves the instance until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceHTTP, func(ctx context.Context) error {
		return Serve(ctx, cfg)
	})
}

// Serve runs the HTTP server without the telemetry wrapper. The CLI's
// serve command reuses it under its own lifecycle.
func Serve(ctx context.Context, cfg Config) error {
	d, err := runner.Open(cfg.Instance)
	if err != nil {
		return err
	}
	defer d.Close()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           runner.Handler(d),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	log.Printf("serving instance=%s addr=%s", d.Instance().Root(), cfg.Addr)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := server.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
