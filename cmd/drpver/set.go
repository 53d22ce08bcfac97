// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"drpver/internal/issue"
	"drpver/internal/patch"
	"drpver/pkg/drp"

	"github.com/spf13/cobra"
)

var (
	setVersion    string
	assertVersion string
	appVersion    string
)

// setCmd rewrites an archive with new version markers.
var setCmd = &cobra.Command{
	Use:   "set <input.drp> <output.drp>",
	Short: "Write a new project version into a copy of an archive",
	Long: `Copy a project archive, rewriting its version markers.

The input archive is never modified; all entries are copied to the output
archive in stored order. The <ProjectVersion> tag of the main project
descriptor gets the value of --set-version. With --app-version, the
DbAppVer/DbPrjVer annotation comments in XML entries are updated as well.

When --assert-version is given and the archive carries a different version,
the modification is skipped with a diagnostic and the entry is copied
unchanged; this is not a fatal condition.

Examples:
  drpver set edit.drp edit-v6.drp -s 6
  drpver set edit.drp edit-v6.drp -s 6 -a 5
  drpver set edit.drp out.drp -s 6 --app-version 18.5`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVarP(&setVersion, "set-version", "s", "", "version string to write into the project file")
	setCmd.Flags().StringVarP(&assertVersion, "assert-version", "a", "", "require the existing project version to match before patching")
	setCmd.Flags().StringVar(&appVersion, "app-version", "", "also write this application version into annotation comments")
	_ = setCmd.MarkFlagRequired("set-version")
}

func runSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	input, output := args[0], args[1]

	rw := drp.NewRewriter()
	rw.Logger = logger
	rw.Diag = cmd.OutOrStdout()
	rw.Rules = drp.Rules{
		ProjectSuffix: cfg.Rules.ProjectSuffix,
		AuxSuffix:     cfg.Rules.AuxSuffix,
	}

	report, err := rw.Rewrite(input, output, patch.Directive{
		SetVersion:    setVersion,
		AssertVersion: assertVersion,
		SetAppVersion: appVersion,
	})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("rewrite project archive").
			WithResource(input).
			WithSuggestion("Check that the input path points at a .drp file").
			WithSuggestion("Check that the output directory exists and is writable").
			Wrap(err).
			BuildError()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Patched %d of %d entries, wrote %s\n",
		SuccessStyle.Render("✓"), report.Patched, report.Entries, EntryStyle.Render(output))
	if n := len(report.Mismatches); n > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render(fmt.Sprintf("%d modification(s) skipped on version mismatch", n)))
	}

	return nil
}
