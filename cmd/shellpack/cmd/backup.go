package cmd

import (
	"context"

	"github.com/spf13/cobra"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/engine"
)

var (
	backupName      string
	backupShareable bool
)

var backupCmd = &cobra.Command{
	Use:   "backup <repository-url>",
	Short: "Back up this machine's shell environment",
	Long: `Collect shell configs, installed package lists, conda environments and
related dotfiles, seal them under a checksummed manifest and push them
to the given repository.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := newConfig(args[0])
		exitOn(err)

		if backupName != "" {
			cfg.BackupName = shellpack.SanitizeName(backupName)
		}
		cfg.Mode = shellpack.ModeFull
		if backupShareable {
			cfg.Mode = shellpack.ModeShareable
		}

		exitOn(runPipeline(cfg, func(ctx context.Context, e *engine.Engine) error {
			return e.RunBackup(ctx)
		}))
	},
}

func init() {
	backupCmd.Flags().StringVarP(&backupName, "name", "n", "", "backup name (default: <shell>-<hostname>-<date>)")
	backupCmd.Flags().BoolVar(&backupShareable, "shareable", false, "exclude private payloads (ssh keys, git config, cloud credentials, history)")
	rootCmd.AddCommand(backupCmd)
}
