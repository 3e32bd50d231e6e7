package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpDir    string
)

var rootCmd = &cobra.Command{
	Use:   "estateguru-notifier",
	Short: "estateguru-notifier scans the Estateguru primary market and sends alerts for interesting loans.",
	// errors are reported by ExecuteContext
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "Config file, searched for upwards from the working directory.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump-http", "", "Write every raw HTTP response to this directory (emptied first).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
