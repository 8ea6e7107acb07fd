package command

import (
	"fmt"

	"github.com/cirruslabs/catcache/internal/command/run"
	"github.com/cirruslabs/catcache/internal/command/token"
	"github.com/cirruslabs/catcache/internal/logging"
	"github.com/cirruslabs/catcache/internal/logginglevel"
	"github.com/cirruslabs/catcache/internal/version"
	"github.com/google/gops/agent"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewRootCommand() *cobra.Command {
	var debug bool
	var logFile string
	var gops bool

	cmd := &cobra.Command{
		Use:           "catcache",
		Short:         "Caching server for HTTP status code images",
		Version:       version.FullVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if debug {
				logginglevel.Level.SetLevel(zapcore.DebugLevel)
			}

			zap.ReplaceGlobals(logging.New(logFile))

			if gops {
				if err := agent.Listen(agent.Options{}); err != nil {
					return fmt.Errorf("failed to start the gops agent: %w", err)
				}
			}

			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"also write logs to this file, rotating it when it grows too big")
	cmd.PersistentFlags().BoolVar(&gops, "gops", false,
		"start the gops diagnostics agent")

	cmd.AddCommand(
		run.NewCommand(),
		token.NewCommand(),
	)

	return cmd
}
