package config

import (
	"os"
	"strings"
	"time"

	"github.com/moodysaroha/postboy/internal/branding"
	"github.com/spf13/viper"
)

// Feed describes where releases are published and how to authenticate.
type Feed struct {
	Owner   string
	Repo    string
	Private bool
	Token   string
	Mirror  string
}

// HasToken reports whether a credential was resolved for the feed.
func (f Feed) HasToken() bool {
	return f.Token != ""
}

// Update holds the timing knobs of the update coordinator.
type Update struct {
	Interval        time.Duration
	InitialDelay    time.Duration
	ManualTimeout   time.Duration
	DecisionTimeout time.Duration
	Packaged        bool
}

// tokenEnvFallbacks are consulted after POSTBOY_FEED_TOKEN / feed.token.
var tokenEnvFallbacks = []string{"GH_TOKEN", "GITHUB_TOKEN"}

// FeedSettings resolves the release feed from config and environment.
// Packaged builds without any configured credential fall back to the
// token embedded at build time.
func FeedSettings(packaged bool) Feed {
	f := Feed{
		Owner:   viper.GetString(KeyFeedOwner),
		Repo:    viper.GetString(KeyFeedRepo),
		Private: viper.GetBool(KeyFeedPrivate),
		Token:   strings.TrimSpace(viper.GetString(KeyFeedToken)),
		Mirror:  viper.GetString(KeyMirror),
	}
	if envMirror := os.Getenv(branding.EnvVar("MIRROR")); envMirror != "" {
		f.Mirror = envMirror
	}
	for _, name := range tokenEnvFallbacks {
		if f.Token != "" {
			break
		}
		f.Token = strings.TrimSpace(os.Getenv(name))
	}
	if f.Token == "" && packaged {
		f.Token = branding.EmbeddedToken
	}
	return f
}

// UpdateSettings resolves coordinator timings and the packaged flag.
// buildVersion is the version injected via ldflags.
func UpdateSettings(buildVersion string) Update {
	return Update{
		Interval:        viper.GetDuration(KeyInterval),
		InitialDelay:    viper.GetDuration(KeyInitialDelay),
		ManualTimeout:   viper.GetDuration(KeyManualTimeout),
		DecisionTimeout: viper.GetDuration(KeyDecisionTimeout),
		Packaged:        IsPackaged(viper.GetString(KeyMode), buildVersion),
	}
}

// IsPackaged decides whether updates are enabled. In auto mode a build is
// packaged unless it carries the "dev" version.
func IsPackaged(mode, buildVersion string) bool {
	switch strings.ToLower(mode) {
	case ModeProduction:
		return true
	case ModeDevelopment:
		return false
	default:
		return buildVersion != "" && buildVersion != "dev"
	}
}

// sensitivePatterns are substrings that indicate a value should be redacted.
var sensitivePatterns = []string{"TOKEN", "SECRET", "PASSWORD", "KEY", "CREDENTIAL"}

// RedactValue returns a redacted version of value if the key name contains
// a sensitive pattern (case-insensitive substring match).
// Values with 4+ chars show the first 4 chars + "***".
// Values with fewer than 4 chars are fully redacted as "***".
func RedactValue(key, value string) string {
	upper := strings.ToUpper(key)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(upper, pattern) {
			if value == "" {
				return ""
			}
			if len(value) < 4 {
				return "***"
			}
			return value[:4] + "***"
		}
	}
	return value
}
