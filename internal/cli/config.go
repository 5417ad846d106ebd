package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moodysaroha/postboy/internal/branding"
	"github.com/moodysaroha/postboy/internal/config"
)

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: fmt.Sprintf(`Read and write %s configuration stored at ~/%s/config.yaml.
Every key can also be set through the environment, e.g. %s.`,
		branding.DisplayName(), branding.HomeDir(), branding.EnvVar("UPDATE_INTERVAL")),
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, config.RedactValue(key, value))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		fmt.Fprintln(cmd.OutOrStdout(), config.RedactValue(key, config.Get(key)))
		return nil
	},
}
