package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/selfgate-project/selfgate/pkg/errclass"
	"github.com/selfgate-project/selfgate/pkg/model"
)

var (
	applyContentFile string
	applyAuthor      string
	applyIntent      string
	applyWhy         string
	applyRisk        string
	applyBackout     string
	applyTests       string
	applyTouched     []string
)

var applyCmd = &cobra.Command{
	Use:   "apply <path>",
	Short: "Apply a mediated change to a file under the allowed root",
	Long: `Apply a mediated change to a file under the allowed root.

The new content is read from --content-file, or from stdin when the flag
is omitted. Path is relative to the allowed root.

An explanation is assembled from the --why/--risk/--backout/--tests flags;
when none are given the deterministic explainer synthesizes one. With
auto-explain enabled the synthesized explanation wins even over the flags.

Examples:
  selfgate apply src/worker.go --content-file /tmp/worker.go \
      --intent "bound the retry loop" --why "..." --risk "..." \
      --backout "..." --tests "..." --touched Retry
  cat new.go | selfgate apply src/new.go --intent "add new module"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content, err := readContent()
		if err != nil {
			fmtErr("read content: %v", err)
			os.Exit(1)
		}

		req := model.ChangeRequest{
			Path:        args[0],
			NewContent:  content,
			Author:      applyAuthor,
			Intent:      applyIntent,
			Explanation: explanationFromFlags(),
		}

		c := openClient()
		defer c.Close()

		res, err := c.Apply(cmd.Context(), req)
		if err != nil {
			var gerr *errclass.GateError
			if errors.As(err, &gerr) {
				fmtErr("%s", gerr.Error())
			} else {
				fmtErr("apply: %v", err)
			}
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(res)
			return
		}
		fmt.Printf("applied %s\n", args[0])
		fmt.Printf("  report:   %s\n", res.ReportID)
		if res.SnapshotPath != "" {
			fmt.Printf("  snapshot: %s\n", res.SnapshotPath)
		}
		fmt.Printf("  sha256:   %s\n", res.NewSHA256)
	},
}

func readContent() (string, error) {
	if applyContentFile != "" {
		data, err := os.ReadFile(applyContentFile)
		return string(data), err
	}
	data, err := io.ReadAll(os.Stdin)
	return string(data), err
}

// explanationFromFlags returns nil when no explanation flag was given, so
// auto-explain can kick in.
func explanationFromFlags() *model.Explanation {
	if applyWhy == "" && applyRisk == "" && applyBackout == "" && applyTests == "" && len(applyTouched) == 0 {
		return nil
	}
	touched := applyTouched
	if touched == nil {
		touched = []string{}
	}
	return &model.Explanation{
		Why:            applyWhy,
		Risk:           applyRisk,
		Backout:        applyBackout,
		Tests:          applyTests,
		TouchedSymbols: touched,
	}
}

func init() {
	applyCmd.Flags().StringVar(&applyContentFile, "content-file", "", "file holding the full new content (default: stdin)")
	applyCmd.Flags().StringVar(&applyAuthor, "author", "cli", "author recorded on the report")
	applyCmd.Flags().StringVar(&applyIntent, "intent", "", "one-line intent of the change")
	applyCmd.Flags().StringVar(&applyWhy, "why", "", "explanation: why the change is needed")
	applyCmd.Flags().StringVar(&applyRisk, "risk", "", "explanation: what could go wrong")
	applyCmd.Flags().StringVar(&applyBackout, "backout", "", "explanation: how to undo the change")
	applyCmd.Flags().StringVar(&applyTests, "tests", "", "explanation: how the change is tested")
	applyCmd.Flags().StringSliceVar(&applyTouched, "touched", nil, "explanation: touched symbol names")
	rootCmd.AddCommand(applyCmd)
}
