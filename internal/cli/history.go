package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [<file>]",
	Short: "List change reports, newest first",
	Long: `List change reports, newest first.

With a file argument only that file's changes are shown. Uses the
relational mirror when enabled, otherwise scans report documents.

Examples:
  selfgate history                 # all changes
  selfgate history src/worker.go   # one file's changes
  selfgate history -n 10           # last 10 changes`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := openClient()
		defer c.Close()

		file := ""
		if len(args) == 1 {
			file = args[0]
		}
		ids, err := c.History(file, historyLimit)
		if err != nil {
			fmtErr("history: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			if ids == nil {
				ids = []string{}
			}
			outputJSON(ids)
			return
		}
		if len(ids) == 0 {
			fmt.Println("No changes recorded.")
			return
		}
		for _, id := range ids {
			r, err := c.Report(id)
			if err != nil {
				fmt.Printf("%s  (unreadable: %v)\n", id, err)
				continue
			}
			fmt.Printf("%s  %s  %s  %q\n", id, r.File, r.Author, r.Intent)
		}
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "limit number of reports shown (0 = all)")
	rootCmd.AddCommand(historyCmd)
}
