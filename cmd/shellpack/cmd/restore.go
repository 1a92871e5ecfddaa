package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/moxforge/shellpack/pkg/engine"
)

var restoreName string

var restoreCmd = &cobra.Command{
	Use:   "restore <repository-url>",
	Short: "Restore a backup onto this machine",
	Long: `Fetch a backup from the given repository, verify its manifest checksum,
and restore its components. Files about to be overwritten are put back
if the run fails partway.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := newConfig(args[0])
		exitOn(err)

		// Passed through unsanitized: the name must match the catalog
		// exactly, and the engine rejects one that does not.
		cfg.BackupName = restoreName

		exitOn(runPipeline(cfg, func(ctx context.Context, e *engine.Engine) error {
			return e.RunRestore(ctx)
		}))
	},
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreName, "name", "n", "", "backup to restore (default: pick from the catalog)")
	rootCmd.AddCommand(restoreCmd)
}
