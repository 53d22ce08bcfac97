// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"drpver/internal/issue"
	"drpver/pkg/drp"

	"github.com/spf13/cobra"
)

// showCmd lists the version markers an archive carries, without modifying it.
var showCmd = &cobra.Command{
	Use:   "show <input.drp>",
	Short: "List the version markers an archive carries",
	Long: `Scan a project archive and print the version markers found in its
XML entries: the <ProjectVersion> tag of the project descriptor and any
DbAppVer/DbPrjVer annotation comments. The archive is not modified.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	input := args[0]

	rw := drp.NewRewriter()
	rw.Logger = logger
	rw.Rules = drp.Rules{
		ProjectSuffix: cfg.Rules.ProjectSuffix,
		AuxSuffix:     cfg.Rules.AuxSuffix,
	}

	results, err := rw.Inspect(input)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("inspect project archive").
			WithResource(input).
			WithSuggestion("Check that the path points at a .drp file").
			Wrap(err).
			BuildError()
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("no version markers found"))
		return nil
	}

	for _, ev := range results {
		line := EntryStyle.Render(ev.Entry)
		if ev.ProjectVersion != "" {
			line += fmt.Sprintf("  ProjectVersion=%s", ev.ProjectVersion)
		}
		if ev.AnnotationProjectVersion != "" {
			line += fmt.Sprintf("  DbAppVer=%s DbPrjVer=%s", ev.AnnotationAppVersion, ev.AnnotationProjectVersion)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}

	return nil
}
