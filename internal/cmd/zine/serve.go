package zine

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zineproject/zine/internal/cmd/zinehttp"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the instance over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveInstancePath(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return zinehttp.Serve(ctx, zinehttp.Config{Instance: path, Addr: addr})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", zinehttp.DefaultAddr, "HTTP listen address")
	return cmd
}
