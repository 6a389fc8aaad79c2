package commands

import (
	"bookmeter-discounts/lib/telemetry"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string
)

var rootCmd = &cobra.Command{
	Use:   "bookmeter-discounts",
	Short: "bookmeter-discounts ranks the Kindle discounts of a bookmeter wishlist.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "The configuration file, environment variables override it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every HTTP exchange to files in this directory.")
}

// silentError was already shown to the user, it only sets the exit status.
type silentError struct {
	error
}

func (e silentError) Unwrap() error {
	return e.error
}

func ExecuteContext(ctx context.Context) {
	os.Exit(execute(ctx, rootCmd, os.Stderr))
}

// execute runs `cmd` and returns the process exit status.
func execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var silent silentError
	if !errors.As(err, &silent) {
		fmt.Fprintln(stderr, err)
	}
	return 1
}

// setupTelemetry starts OTLP export when a telemetry.json5 can be found,
// the returned func flushes it.
func setupTelemetry(ctx context.Context) func() {
	t, err := telemetry.SetupFromEnv(ctx, "bookmeter-discounts")
	if err != nil {
		slog.Warn("telemetry disabled", "err", err)
		return func() {}
	}
	return func() {
		err := t.Shutdown(context.Background())
		if err != nil {
			slog.Warn("flush telemetry", "err", err)
		}
	}
}
