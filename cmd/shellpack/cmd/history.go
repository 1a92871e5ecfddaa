package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moxforge/shellpack/pkg/ledger"
)

var (
	historyLimit int
	historyKind  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent backup and restore runs",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := ledger.DefaultPath()
		exitOn(err)

		l, err := ledger.Open(path)
		exitOn(err)
		defer l.Close()

		var recs []ledger.RunRecord
		switch historyKind {
		case "":
			recs, err = l.Recent(historyLimit)
		case string(ledger.RunBackup), string(ledger.RunRestore):
			recs, err = l.ByKind(ledger.RunKind(historyKind), historyLimit)
		default:
			exitOn(fmt.Errorf("unknown kind %q (want backup or restore)", historyKind))
		}
		exitOn(err)

		if len(recs) == 0 {
			fmt.Println("No runs recorded yet.")
			return
		}

		fmt.Printf("%-19s %-8s %-10s %-28s %s\n", "STARTED", "KIND", "STATUS", "NAME", "DETAIL")
		for _, rec := range recs {
			detail := rec.RemoteURL
			if rec.Status == ledger.RunStatusFailed && rec.ErrorMessage != "" {
				detail = rec.ErrorMessage
			}
			fmt.Printf("%-19s %-8s %-10s %-28s %s\n",
				rec.Started.Local().Format("2006-01-02 15:04:05"),
				rec.Kind, rec.Status, rec.BackupName, detail)
		}
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum runs to show")
	historyCmd.Flags().StringVarP(&historyKind, "kind", "k", "", "show only backup or restore runs")
	rootCmd.AddCommand(historyCmd)
}
