package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moodysaroha/postboy/internal/branding"
	"github.com/moodysaroha/postboy/internal/config"
	"github.com/moodysaroha/postboy/internal/logging"
	"github.com/moodysaroha/postboy/internal/updater"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	logLevel string
	logFile  string
)

// Commands that must not touch a staged update. `version` is run by the
// installer to verify a fresh binary.
var skipStaged = map[string]bool{
	"version": true,
}

// Commands that report update state themselves.
var skipBanner = map[string]bool{
	"version": true,
	"update":  true,
	"status":  true,
	"daemon":  true,
	"ui":      true,
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps itself up to date from its release feed. The daemon checks
for updates in the background and hands prompts to an attached UI, or to
the console when no UI is attached.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()

		level, file := logLevel, logFile
		if !cmd.Flags().Changed("log-level") {
			level = config.Get(config.KeyLogLevel)
		}
		if !cmd.Flags().Changed("log-file") {
			file = config.Get(config.KeyLogFile)
		}
		if err := logging.InitLog(level, file); err != nil {
			return err
		}

		name := cmd.Name()
		if !skipStaged[name] {
			applyStagedUpdate(cmd)
		}
		if !skipBanner[name] {
			// Cache only, no network.
			updater.PrintBanner(cmd.ErrOrStderr(), config.Dir(), buildVersion)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", logging.ConsoleTarget, "Log file path, or \"console\"")
}

// applyStagedUpdate installs an update deferred by an earlier session and
// restarts into it.
func applyStagedUpdate(cmd *cobra.Command) {
	artifact, err := updater.NewInstaller(config.StagingDir()).ApplyStaged()
	if err != nil {
		log.Warnf("applying staged update: %v", err)
		return
	}
	if artifact == nil {
		return
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Installed %s %s.\n", branding.DisplayName(), artifact.Version)
	exe, err := updater.CurrentExecutable()
	if err != nil {
		log.Warnf("restarting after update: %v", err)
		return
	}
	if err := updater.Restart(exe); err != nil {
		log.Warnf("restarting after update: %v", err)
	}
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
