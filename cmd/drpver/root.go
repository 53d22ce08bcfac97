// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"drpver/internal/config"
	"drpver/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables per-entry debug logging
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// cfg and cfgErr hold the result of config loading; command handlers
	// read them through loadedConfig.
	cfg    *config.Config
	cfgErr error

	// logger is shared by all commands; initRootConfig raises it to debug
	// level in verbose mode.
	logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "drpver",
	})

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "drpver",
		Short: "Set the version recorded in DaVinci Resolve project archives",
		Long: TitleStyle.Render("drpver") + SubtitleStyle.Render(" - version patcher for Resolve project archives") + `

A .drp project file is a zip container. drpver copies it entry by entry
into a new archive, rewriting the <ProjectVersion> tag of the main project
descriptor and, on request, the DbAppVer/DbPrjVer annotation comments in
auxiliary XML entries. Every other byte is preserved.

` + SubtitleStyle.Render("Examples:") + `
  drpver set edit.drp edit-v6.drp -s 6          Write project version 6
  drpver set edit.drp edit-v6.drp -s 6 -a 5     Patch only if the current version is 5
  drpver set edit.drp out.drp -s 6 --app-version 18.5
                                                Also update app version annotations
  drpver show edit.drp                          List the versions an archive carries`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/drpver/config.toml)")

	// Add subcommands
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(showCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// fang.Execute for enhanced Cobra styling; version goes through
	// fang.WithVersion since fang overrides rootCmd.Version.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// initRootConfig reads the config file and environment. A broken default
// config degrades to a warning plus built-in defaults; a broken --config
// path is kept for the command handlers, which report it as fatal.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}

	cfg, cfgErr = config.Load()
	if cfgErr != nil && cfgFile == "" {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(cfgErr, verbose))
		cfg, cfgErr = config.DefaultConfig(), nil
	}

	if cfg != nil && !verbose {
		verbose = cfg.UI.Verbose
	}
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg != nil && !cfg.UI.Color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// loadedConfig returns the configuration loaded during command
// initialization, or the actionable error that kept it from loading.
func loadedConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	if cfg == nil {
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// render with their suggestions; verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
