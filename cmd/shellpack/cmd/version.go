package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show shellpack version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()

		fmt.Printf("shellpack %s\n", info.Release)
		fmt.Printf("Git: %s\n", info.Git.Commit)
		fmt.Printf("Dirty: %t\n", info.Git.Dirty)
		if !info.Built.IsZero() {
			fmt.Printf("Built: %s\n", info.Built.Format(time.RFC3339))
		}
		fmt.Println(shellpack.ProjectURL)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
