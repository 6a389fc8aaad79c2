package commands

import (
	"bookmeter-discounts/internal/discounts"
	"bookmeter-discounts/lib/util/serviceutil"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	reportLimit  int
	reportFormat string
)

func init() {
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 0, "How many discounts to show, 0 means the catalog default.")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "tsv", "Output format, tsv or table.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--limit <n>] [--format tsv|table]",
	Short: "Prints the current discount ranking without touching the network.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath, nil)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		err = cfg.ValidateCatalog()
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}

		db, store, err := openCatalog(cfg)
		if err != nil {
			serviceutil.Fatal("failed to open catalog", err)
		}
		defer db.Close()

		entries, err := store.Discounts(cmd.Context(), reportLimit)
		if err != nil {
			serviceutil.Fatal("failed to query discounts", err)
		}
		err = writeReport(os.Stdout, reportFormat, discounts.NewDiscounts(entries))
		if err != nil {
			serviceutil.Fatal("failed to write report", err)
		}
	},
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

// writeReport renders the ranking as tab separated values or as a table.
func writeReport(w io.Writer, format string, ranking []discounts.Discount) error {
	switch format {
	case "", "tsv":
		_, err := fmt.Fprintln(w, "Title\tURL\tDiscount Rate")
		if err != nil {
			return err
		}
		for _, d := range ranking {
			_, err = fmt.Fprintf(w, "%s\t%s\t%s\n", d.Title, d.URL, formatRate(d.DiscountRate))
			if err != nil {
				return err
			}
		}
		return nil
	case "table":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Title", "URL", "List", "Current", "Discount"})
		for _, d := range ranking {
			t.AppendRow(table.Row{
				d.Title,
				d.URL,
				d.ListPrice,
				d.CurrentPrice,
				fmt.Sprintf("%.1f%%", d.DiscountRate*100),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
