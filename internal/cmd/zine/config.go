package zine

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zineproject/zine/internal/config"
	"github.com/zineproject/zine/internal/instance"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and modify instance configuration",
	}
	cmd.AddCommand(newConfigListCmd(), newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

// openConfig opens the configuration store of an initialized instance.
// Refusing uninitialized instances keeps config set from conjuring a
// half-provisioned zine.ini.
func openConfig(cmd *cobra.Command) (*config.Config, *instance.Instance, error) {
	inst, err := openInstance(cmd)
	if err != nil {
		return nil, nil, err
	}
	if !inst.Initialized() {
		return nil, nil, fmt.Errorf("instance %s is not initialized, run zine init first", inst.Root())
	}
	cfg, err := config.Open(inst.ConfigPath(), config.DefaultVars())
	if err != nil {
		return nil, nil, err
	}
	return cfg, inst, nil
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration keys with effective values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := openConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range cfg.PublicItems(true) {
				marker := ""
				if item.Value == item.Default {
					marker = "  (default)"
				}
				fmt.Fprintf(out, "%-24s %s%s\n", item.Key, item.Value, marker)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print one effective configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := openConfig(cmd)
			if err != nil {
				return err
			}
			key := args[0]
			// Explicitly asked for, so hidden keys are not cloaked here.
			for _, item := range cfg.PublicItems(false) {
				if item.Key == key {
					fmt.Fprintln(cmd.OutOrStdout(), item.Value)
					return nil
				}
			}
			// Plugin variables are not registered outside a running
			// application, but their committed values are still in the file.
			if raw, ok := cfg.Raw(key); ok {
				fmt.Fprintln(cmd.OutOrStdout(), raw)
				return nil
			}
			return fmt.Errorf("unknown configuration key %q", key)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Commit one configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := openConfig(cmd)
			if err != nil {
				return err
			}
			key := args[0]
			// Plugin variables carry their typed registration only inside a
			// running application; at the store level they are strings, so
			// registering on the fly keeps them editable offline.
			if strings.Contains(key, "/") && !cfg.Known(key) {
				if err := cfg.RegisterVar(config.StringVar(key, "")); err != nil {
					return err
				}
			}
			tx := cfg.Edit()
			if err := tx.SetString(key, args[1]); err != nil {
				tx.Rollback()
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "%s committed", key)
			return nil
		},
	}
}
