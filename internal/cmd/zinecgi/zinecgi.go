// Package zinecgi parses CGI runner flags and answers the single request
// a web server hands the process.
package zinecgi

import (
	"context"
	"flag"
	"fmt"
	"net/http/cgi"

	"github.com/zineproject/zine/internal/cmd/runner"
	entrypoint "github.com/zineproject/zine/internal/platform/cmd"
)

// Config holds CGI runner configuration.
type Config struct {
	Instance string `env:"ZINE_INSTANCE"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Instance, "instance", cfg.Instance, "The instance directory to serve")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run answers the request described by the CGI environment and exits.
// The application is built and torn down per invocation; that is the
// cost of the CGI model, not something to optimize here.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCGI, func(context.Context) error {
		return Serve(cfg)
	})
}

// Serve handles the single CGI request on stdin/stdout.
func Serve(cfg Config) error {
	d, err := runner.Open(cfg.Instance)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := cgi.Serve(runner.Handler(d)); err != nil {
		return fmt.Errorf("serve cgi: %w", err)
	}
	return nil
}
