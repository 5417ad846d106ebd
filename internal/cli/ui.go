package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moodysaroha/postboy/internal/branding"
	"github.com/moodysaroha/postboy/internal/bridge"
	"github.com/moodysaroha/postboy/internal/config"
	"github.com/moodysaroha/postboy/internal/tui"
)

var uiAddr string

func init() {
	uiCmd.Flags().StringVar(&uiAddr, "addr", "", "Update service address (default from bridge.addr)")
	rootCmd.AddCommand(uiCmd)
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Attach the update UI to a running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := uiAddr
		if addr == "" {
			addr = config.Get(config.KeyBridgeAddr)
		}

		client, err := bridge.Dial(cmd.Context(), addr)
		if errors.Is(err, bridge.ErrConsumerAttached) {
			return fmt.Errorf("another UI is already attached to the update service at %s", addr)
		}
		if err != nil {
			return fmt.Errorf("%w (is `%s daemon` running?)", err, branding.CLIName())
		}
		defer client.Close()

		if err := tui.Run(cmd.Context(), client); err != nil {
			return err
		}
		if err := client.Err(); err != nil {
			return fmt.Errorf("lost connection to the update service: %w", err)
		}
		return nil
	},
}
