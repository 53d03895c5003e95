package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openwinecomponents/umu-launcher/internal/launcher"
	"github.com/openwinecomponents/umu-launcher/internal/logger"
	"github.com/openwinecomponents/umu-launcher/internal/version"
)

var (
	// configPath to the launcher TOML file.
	configPath string
	// exe is the game executable with optional launch arguments.
	exe string
	// verb is the Proton verb for the launch.
	verb string
	// emptyPrefix requests an empty prefix without launching a game.
	emptyPrefix bool
	// logLevel sets the logging verbosity.
	logLevel string

	// rootCmd represents the base command launching Windows games via Proton.
	rootCmd = &cobra.Command{
		Use:   "umu-launcher",
		Short: "Unified Linux Wine game launcher",
		Long: "Launch Windows games through Proton outside of Steam. " +
			"The latest compatible Proton build is acquired automatically and kept up to date.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// An interrupt mid-download must run the cleanup path, not kill the process.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &launcher.Options{
				ConfigPath:  configPath,
				Verb:        verb,
				EmptyPrefix: emptyPrefix,
			}

			// A quoted --exe value may carry launch arguments after the path.
			if fields := strings.Fields(exe); len(fields) > 0 {
				options.Exe = fields[0]
				options.LaunchArgs = fields[1:]
			}

			return launcher.Run(ctx, options)
		},
	}
)

// Execute runs the umu-launcher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the launcher TOML file")
	rootCmd.Flags().StringVar(&exe, "exe", "", "path to the game executable, optionally followed by launch arguments")
	rootCmd.Flags().StringVar(&verb, "verb", "", "Proton verb for the launch (default: waitforexitandrun)")
	rootCmd.Flags().BoolVar(&emptyPrefix, "empty", false, "create an empty Proton prefix without launching")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "logging level (debug, info, warn, error)")

	rootCmd.MarkFlagsMutuallyExclusive("config", "exe")
}
