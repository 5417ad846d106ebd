package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moodysaroha/postboy/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config keys.
const (
	KeyFeedOwner       = "feed.owner"
	KeyFeedRepo        = "feed.repo"
	KeyFeedPrivate     = "feed.private"
	KeyFeedToken       = "feed.token"
	KeyMirror          = "mirror"
	KeyInterval        = "update.interval"
	KeyInitialDelay    = "update.initial_delay"
	KeyManualTimeout   = "update.manual_timeout"
	KeyDecisionTimeout = "update.decision_timeout"
	KeyMode            = "update.mode"
	KeyBridgeAddr      = "bridge.addr"
	KeyLogLevel        = "log.level"
	KeyLogFile         = "log.file"
)

// Update modes accepted by the update.mode key.
const (
	ModeAuto        = "auto"
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

// Dir returns the path to the PostBoy config directory (~/.postboy/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.postboy/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// StagingDir returns the directory holding a downloaded update awaiting install.
func StagingDir() string {
	return filepath.Join(Dir(), "update")
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	setDefaults()

	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

func setDefaults() {
	viper.SetDefault(KeyFeedOwner, branding.FeedOwner())
	viper.SetDefault(KeyFeedRepo, branding.FeedRepo())
	viper.SetDefault(KeyFeedPrivate, true)
	viper.SetDefault(KeyInterval, time.Hour)
	viper.SetDefault(KeyInitialDelay, 10*time.Second)
	viper.SetDefault(KeyManualTimeout, 30*time.Second)
	viper.SetDefault(KeyDecisionTimeout, time.Duration(0))
	viper.SetDefault(KeyMode, ModeAuto)
	viper.SetDefault(KeyBridgeAddr, "127.0.0.1:47615")
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyLogFile, "console")
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
