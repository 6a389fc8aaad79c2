package commands

import (
	"bookmeter-discounts/internal/discounts"
	"bookmeter-discounts/internal/webhook"
	"bookmeter-discounts/lib/util/serviceutil"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var runLimit int

func init() {
	runCmd.Flags().IntVarP(&runLimit, "limit", "n", 0, "How many discounts to print, 0 means the catalog default.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--limit <n>]",
	Short: "Crawls the wishlist, refreshes prices and prints the discount ranking.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath, nil)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		err = cfg.Validate()
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}

		ctx := cmd.Context()
		defer setupTelemetry(ctx)()

		db, store, err := openCatalog(cfg)
		if err != nil {
			serviceutil.Fatal("failed to open catalog", err)
		}
		defer db.Close()

		pipeline, err := newPipeline(cfg, store)
		if err != nil {
			serviceutil.Fatal("failed to create pipeline", err)
		}

		err = runOnce(ctx, pipeline, newNotifier(cfg), runLimit, os.Stdout, os.Stderr)
		if err != nil {
			return silentError{err}
		}
		return nil
	},
}

// runOnce runs the pipeline, prints the ranking, then notifies the webhook.
// The webhook fires whether or not the run succeeded.
func runOnce(
	ctx context.Context,
	pipeline discounts.Pipeline,
	notifier *webhook.Notifier,
	limit int,
	stdout, stderr io.Writer,
) error {
	var payload webhook.Payload

	entries, err := pipeline.UpdateAndGetDiscounts(ctx, limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error\t%v\n", err)
		payload.Error = err.Error()
	} else {
		payload.Discounts = discounts.NewDiscounts(entries)
		err = writeReport(stdout, "tsv", payload.Discounts)
		if err != nil {
			fmt.Fprintf(stderr, "Error\t%v\n", err)
		}
	}

	if notifier != nil {
		status, notifyErr := notifier.Notify(ctx, payload)
		if notifyErr != nil {
			fmt.Fprintf(stderr, "Webhook\t%v\n", notifyErr)
		} else {
			fmt.Fprintf(stdout, "Webhook\t%s\n", status)
		}
	}
	return err
}
