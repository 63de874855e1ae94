// Package zine implements the management command tree: instance
// provisioning, serving, and configuration maintenance.
package zine

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zineproject/zine/internal/instance"
)

// New builds the command tree. Every invocation returns a fresh tree so
// command state never leaks between runs.
func New() *cobra.Command {
	root := &cobra.Command{
		Use:   "zine",
		Short: "Manage zine blog instances",
		Long: `Zine is a file-configured blog engine. Every command operates on one
instance directory, given with --instance or the ZINE_INSTANCE
environment variable.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("instance", "i", "", "instance directory (defaults to $ZINE_INSTANCE)")

	root.AddCommand(
		newInitCmd(),
		newResetCmd(),
		newServeCmd(),
		newPluginsCmd(),
		newConfigCmd(),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return New().Execute()
}

// resolveInstancePath reads the instance directory from the persistent
// flag or the environment.
func resolveInstancePath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("instance")
	if err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("ZINE_INSTANCE"))
	}
	if path == "" {
		return "", fmt.Errorf("no instance path: set ZINE_INSTANCE or pass --instance")
	}
	return path, nil
}

// openInstance resolves and opens an existing instance directory.
func openInstance(cmd *cobra.Command) (*instance.Instance, error) {
	path, err := resolveInstancePath(cmd)
	if err != nil {
		return nil, err
	}
	return instance.Open(path)
}
