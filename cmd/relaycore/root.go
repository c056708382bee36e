package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relaymesh/relaycore/internal/xdg"
)

// NewRootCmd creates the root command for the relaycore CLI.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "relaycore",
		Short: "relaycore - identity and admission core for real-time chat networks",
		Long: `relaycore maintains the in-memory identity tables of an IRC-style
server: client nicknames and IDs, channels, presence subscriptions, and
per-address connection throttling.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (default: "+filepath.Join(xdg.ConfigDir(), "config.yaml")+")")

	cmd.AddCommand(newServeCmd(&configFile))
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// defaultConfigPath resolves the config file to load: the --config flag
// when set, otherwise the XDG location.
func defaultConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return filepath.Join(xdg.ConfigDir(), "config.yaml")
}
