package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/moodysaroha/postboy/internal/branding"
	"github.com/moodysaroha/postboy/internal/bridge"
	"github.com/moodysaroha/postboy/internal/config"
	"github.com/moodysaroha/postboy/internal/updater"
)

var (
	updateCheck   bool
	updateVersion string
)

func init() {
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "Only check for updates, don't prompt or install")
	updateCmd.Flags().StringVar(&updateVersion, "version", "", "Check a specific release (e.g., 1.2.0) instead of the latest")
	updateCmd.AddCommand(updateStatusCmd)
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"self-update"},
	Short:   "Check for updates now",
	Long: fmt.Sprintf(`Runs a manual update check and walks through the download and restart
prompts on the console.

  %[1]s update              # check, then offer to download and restart
  %[1]s update --check      # report only
  %[1]s update --version 1.2.0
  %[1]s update status       # show the last recorded check`, branding.CLIName()),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.UpdateSettings(buildVersion)
		var opts []updater.Option
		if updateVersion != "" {
			opts = append(opts, updater.WithVersion(updateVersion))
		}
		if updateCheck {
			return reportUpdate(cmd, settings, opts...)
		}
		return newCoordinator(settings, bridge.NewConsole(), opts...).CheckOnce(cmd.Context())
	},
}

func reportUpdate(cmd *cobra.Command, settings config.Update, opts ...updater.Option) error {
	out := cmd.OutOrStdout()
	if !settings.Packaged {
		fmt.Fprintln(out, "Updates are disabled in development mode.")
		return nil
	}

	u := newUpdater(settings, opts...)
	res, err := u.Check(cmd.Context())
	if err != nil {
		return errors.New(updater.Classify(err, u.HasCredential()).Message)
	}
	if updateVersion == "" {
		_ = updater.SaveCache(config.Dir(), updater.CacheFromResult(res, time.Now()))
	}

	switch {
	case res.Available:
		fmt.Fprintf(out, "Update available: %s -> %s\n", buildVersion, updater.DisplayVersion(res.Release.Version))
	case updateVersion != "":
		fmt.Fprintf(out, "Version %s is not newer than %s\n", updater.DisplayVersion(res.Release.Version), buildVersion)
	default:
		fmt.Fprintf(out, "You are on the latest version (%s)\n", buildVersion)
	}
	return nil
}

var updateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last recorded update check",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cache, err := updater.LoadCache(config.Dir())
		if err != nil {
			return err
		}
		if cache == nil {
			fmt.Fprintf(out, "No update check recorded yet. Run `%s update --check`.\n", branding.CLIName())
		} else {
			fmt.Fprintf(out, "Running:    %s\n", buildVersion)
			fmt.Fprintf(out, "Latest:     %s\n", cache.LatestVersion)
			fmt.Fprintf(out, "Checked at: %s\n", cache.CheckedAt.Local().Format(time.RFC1123))
			if updater.IsCacheStale(cache, updater.DefaultCacheMaxAge) {
				fmt.Fprintln(out, "            (more than a day ago)")
			}
			if newer, err := updater.IsUpdateAvailable(buildVersion, cache.LatestVersion); err == nil && newer {
				fmt.Fprintln(out, "An update is available.")
			}
		}

		staged, err := updater.NewInstaller(config.StagingDir()).Staged()
		if err != nil {
			return err
		}
		if staged != nil {
			fmt.Fprintf(out, "Version %s is downloaded and installs on next launch.\n", staged.Version)
		}
		return nil
	},
}
