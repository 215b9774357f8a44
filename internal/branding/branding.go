// Package branding provides compile-time identity values for the launcher.
//
// Values come from branding.yaml, embedded at build time. Forks that rename the
// product or point the updater at a different release repository edit that
// file only.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName       string `yaml:"cli_name"`
	DisplayName   string `yaml:"display_name"`
	Description   string `yaml:"description"`
	HomeDir       string `yaml:"home_dir"`
	EnvPrefix     string `yaml:"env_prefix"`
	GitHubRepo    string `yaml:"github_repo"`
	StartupBanner string `yaml:"startup_banner"`
	ReadyBanner   string `yaml:"ready_banner"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or partial.
		defaults = brand{
			CLIName:       "divineos",
			DisplayName:   "GFL Divine OS",
			Description:   "Launch point and update supervisor for GFL Divine OS",
			HomeDir:       ".divineos",
			EnvPrefix:     "DIVINEOS",
			GitHubRepo:    "gfl-labs/divineos",
			StartupBanner: "GFL Divine OS: Initializing...",
			ReadyBanner:   "System core is live.",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "divineos").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".divineos").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "DIVINEOS").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GitHubRepo returns the "owner/repo" releases are published under.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// StartupBanner is printed once, before the first update runs.
func StartupBanner() string { load(); return defaults.StartupBanner }

// ReadyBanner is printed once, after the first update succeeds.
func ReadyBanner() string { load(); return defaults.ReadyBanner }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("MIRROR") → "DIVINEOS_MIRROR".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
