// Package zinefcgi parses FastCGI runner flags and serves one instance
// behind a front web server speaking FastCGI.
package zinefcgi

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http/fcgi"
	"strings"

	"github.com/zineproject/zine/internal/cmd/runner"
	entrypoint "github.com/zineproject/zine/internal/platform/cmd"
)

// Config holds FastCGI runner configuration.
type Config struct {
	Instance string `env:"ZINE_INSTANCE"`
	// Addr is the listen address. Empty means the socket inherited on
	// stdin, the classic spawn-fcgi arrangement.
	Addr string `env:"ZINE_FCGI_ADDR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Instance, "instance", cfg.Instance, "The instance directory to serve")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The FastCGI listen address; a path means a unix socket, empty means the inherited stdin socket")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves the instance until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceFCGI, func(ctx context.Context) error {
		return Serve(ctx, cfg)
	})
}

// Serve runs the FastCGI accept loop.
func Serve(ctx context.Context, cfg Config) error {
	d, err := runner.Open(cfg.Instance)
	if err != nil {
		return err
	}
	defer d.Close()

	var listener net.Listener
	if cfg.Addr != "" {
		network := "tcp"
		if strings.HasPrefix(cfg.Addr, "/") {
			// Paths mean a unix socket, the usual arrangement behind nginx.
			network = "unix"
		}
		listener, err = net.Listen(network, cfg.Addr)
		if err != nil {
			return fmt.Errorf("listen fcgi: %w", err)
		}
		defer listener.Close()
		log.Printf("serving fcgi instance=%s addr=%s", d.Instance().Root(), cfg.Addr)
	} else {
		log.Printf("serving fcgi instance=%s addr=stdin", d.Instance().Root())
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- fcgi.Serve(listener, runner.Handler(d))
	}()

	select {
	case <-ctx.Done():
		// fcgi.Serve has no shutdown hook. Closing the listener stops the
		// accept loop; on the inherited stdin socket the process exit does.
		if listener != nil {
			listener.Close()
		}
		return nil
	case err := <-serveErr:
		if err == nil || errors.Is(err, net.ErrClosed) {
			return nil
		}
		return fmt.Errorf("serve fcgi: %w", err)
	}
}
