package cli

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/moodysaroha/postboy/internal/bridge"
	"github.com/moodysaroha/postboy/internal/config"
	"github.com/moodysaroha/postboy/internal/coordinator"
)

var daemonAddr string

func init() {
	daemonCmd.Flags().StringVar(&daemonAddr, "addr", "", "UI bridge listen address (default from bridge.addr)")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background update service",
	Long: `Checks for updates on a schedule and serves the UI bridge. Prompts go to
the attached UI; without one they are shown on this console.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := daemonAddr
		if addr == "" {
			addr = config.Get(config.KeyBridgeAddr)
		}

		settings := config.UpdateSettings(buildVersion)
		if !settings.Packaged {
			log.Info("development mode, automatic update checks are disabled")
		}

		channel := bridge.NewChannel()
		c := newCoordinator(settings, &bridge.Fallback{
			Primary:   channel,
			Secondary: bridge.NewConsole(),
		})
		server := bridge.NewServer(channel, c.CheckNow)
		schedule := coordinator.NewSchedule(c, settings.Interval, settings.InitialDelay)

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error { return c.Run(ctx) })
		g.Go(func() error { return schedule.Run(ctx) })
		g.Go(func() error { return server.ListenAndServe(ctx, addr) })
		return g.Wait()
	},
}
