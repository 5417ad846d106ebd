package updater

import (
	"fmt"
	"io"

	"github.com/moodysaroha/postboy/internal/branding"
)

// PrintBanner prints a one-line update notice from the version cache. It
// never touches the network; the daemon and `update` refresh the cache.
func PrintBanner(w io.Writer, configDir, runningVersion string) {
	cache, err := LoadCache(configDir)
	if err != nil || cache == nil || !cache.UpdateAvailable {
		return
	}
	// The cache may predate the last self-update.
	if newer, err := IsUpdateAvailable(runningVersion, cache.LatestVersion); err != nil || !newer {
		return
	}
	PrintUpdateBanner(w, runningVersion, cache.LatestVersion)
}

// PrintUpdateBanner prints the update notification to w.
func PrintUpdateBanner(w io.Writer, current, latest string) {
	fmt.Fprintf(w, "\nUpdate available: %s -> %s\n", current, latest)
	fmt.Fprintf(w, "    Run `%s update` to upgrade\n\n", branding.CLIName())
}
