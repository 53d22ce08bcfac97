// SPDX-License-Identifier: MPL-2.0

// Package config loads drpver configuration from file, environment, and
// defaults, in that order of increasing weakness. CLI flags always win over
// everything here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"drpver/internal/issue"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "drpver"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"

	// EnvPrefix is the prefix for environment overrides
	// (DRPVER_UI_VERBOSE, DRPVER_RULES_PROJECT_SUFFIX, ...).
	EnvPrefix = "DRPVER"
)

// UIConfig controls terminal output behavior.
type UIConfig struct {
	// Verbose enables per-entry debug logging.
	Verbose bool `mapstructure:"verbose"`
	// Color enables styled terminal output.
	Color bool `mapstructure:"color"`
}

// RulesConfig selects which archive entries the patch rules apply to.
type RulesConfig struct {
	// ProjectSuffix is the case-sensitive literal suffix of the main project
	// descriptor entry.
	ProjectSuffix string `mapstructure:"project_suffix"`
	// AuxSuffix is the suffix of auxiliary entries that may carry app
	// version annotations.
	AuxSuffix string `mapstructure:"aux_suffix"`
}

// Config is the root configuration.
type Config struct {
	UI    UIConfig    `mapstructure:"ui"`
	Rules RulesConfig `mapstructure:"rules"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		UI: UIConfig{
			Verbose: false,
			Color:   true,
		},
		Rules: RulesConfig{
			ProjectSuffix: "roject.xml",
			AuxSuffix:     ".xml",
		},
	}
}

// Test override hooks.
var (
	configDirOverride      string
	configFilePathOverride string
)

// SetConfigDirOverride overrides the config directory. Pass "" to reset.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// SetConfigFilePathOverride sets an explicit config file path, as given by
// the --config flag. Pass "" to reset.
func SetConfigFilePathOverride(path string) {
	configFilePathOverride = path
}

// ConfigDir returns the drpver configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the configuration. A missing config file is not an error (the
// defaults apply); an explicit --config path that does not exist is.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color", defaults.UI.Color)
	v.SetDefault("rules.project_suffix", defaults.Rules.ProjectSuffix)
	v.SetDefault("rules.aux_suffix", defaults.Rules.AuxSuffix)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFilePathOverride != "" {
		if _, err := os.Stat(configFilePathOverride); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(configFilePathOverride).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Omit --config to use the default location").
				Wrap(err).
				BuildError()
		}
		v.SetConfigFile(configFilePathOverride)
		v.SetConfigType(ConfigFileExt)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.WrapWithContext(err, "parse configuration", configFilePathOverride)
		}
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, issue.WrapWithContext(err, "parse configuration", filepath.Join(dir, ConfigFileName+"."+ConfigFileExt))
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, issue.WrapWithContext(err, "decode configuration", v.ConfigFileUsed())
	}

	return &cfg, nil
}
