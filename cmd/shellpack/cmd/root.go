package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagVerbose bool
	flagDryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "shellpack",
	Short: "Back up and restore a shell environment through a git repository",
	Long: `shellpack packs shell configs, installed package lists, conda
environments and related dotfiles into a git repository, and restores
them onto another machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "mirror the log to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "report intended actions without performing them")
}
