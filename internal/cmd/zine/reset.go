package zine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zineproject/zine/internal/instance"
)

func newResetCmd() *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe an instance and re-create the empty layout",
		Long: `Reset deletes everything inside the instance directory, including the
configuration, the database, and uploads, then re-creates the empty
layout. There is no undo.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := openInstance(cmd)
			if err != nil {
				return err
			}
			if !confirmed {
				return fmt.Errorf("refusing to wipe %s without --yes", inst.Root())
			}

			entries, err := os.ReadDir(inst.Root())
			if err != nil {
				return fmt.Errorf("read instance directory: %w", err)
			}
			for _, entry := range entries {
				if err := os.RemoveAll(filepath.Join(inst.Root(), entry.Name())); err != nil {
					return fmt.Errorf("remove %s: %w", entry.Name(), err)
				}
			}
			if _, err := instance.Scaffold(inst.Root()); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "instance %s wiped, run zine init to provision it again", inst.Root())
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the wipe")
	return cmd
}
