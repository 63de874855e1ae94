package zine

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zineproject/zine/internal/app"
	"github.com/zineproject/zine/internal/i18n"
	"github.com/zineproject/zine/internal/platform/errors"
)

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List discovered plugins with their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := openInstance(cmd)
			if err != nil {
				return err
			}
			a, err := app.New(inst, app.Options{})
			if err != nil {
				if errors.IsCode(err, errors.CodeNotInitialized) {
					return fmt.Errorf("instance %s is not initialized, run zine init first", inst.Root())
				}
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			locale := i18n.LocaleKey(a.Locale())
			fmt.Fprintf(out, "%-20s %-10s %-10s %s\n", "NAME", "STATE", "VERSION", "DISPLAY NAME")
			for _, reg := range a.Plugins().Registrations() {
				fmt.Fprintf(out, "%-20s %-10s %-10s %s\n",
					reg.Descriptor.Name,
					reg.State,
					reg.Descriptor.Meta.Version,
					reg.Descriptor.Meta.DisplayNameIn(locale),
				)
				if reg.Err != nil {
					fmt.Fprintf(out, "%20s error: %v\n", "", reg.Err)
				}
			}
			for _, name := range a.Plugins().Missing() {
				warn(out, "plugin %s is enabled but has no descriptor", name)
			}
			return nil
		},
	}
}
