// hived is the fleet core daemon: it owns the live device cache, the
// conversation router, and the durable record store behind them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "hived",
		Short:         "Fleet core daemon: device sessions and conversation routing",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: search ., etc/hivecore, /etc/hivecore)")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newImportCmd(&configPath),
	)
	return rootCmd
}
