// Package branding provides compile-time identity values for the app.
//
// branding.yaml is embedded with //go:embed and overlaid on hard defaults.
// The release feed credential for packaged builds is injected with
// -ldflags "-X github.com/moodysaroha/postboy/internal/branding.EmbeddedToken=..."
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

// EmbeddedToken is the release feed credential baked into packaged builds.
// It is empty in development builds.
var EmbeddedToken = ""

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	FeedOwner   string `yaml:"feed_owner"`
	FeedRepo    string `yaml:"feed_repo"`
	BinaryName  string `yaml:"binary_name"`
}

func load() {
	once.Do(func() {
		defaults = brand{
			CLIName:     "postboy",
			DisplayName: "PostBoy",
			Description: "Desktop HTTP request client",
			HomeDir:     ".postboy",
			EnvPrefix:   "POSTBOY",
			FeedOwner:   "moodysaroha",
			FeedRepo:    "postboy-releases",
			BinaryName:  "postboy",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "postboy").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "PostBoy").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".postboy").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "POSTBOY").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// FeedOwner returns the owner of the release feed repository.
func FeedOwner() string { load(); return defaults.FeedOwner }

// FeedRepo returns the name of the release feed repository.
func FeedRepo() string { load(); return defaults.FeedRepo }

// BinaryName returns the executable name looked up inside release archives.
func BinaryName() string { load(); return defaults.BinaryName }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("FEED_TOKEN") → "POSTBOY_FEED_TOKEN".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
