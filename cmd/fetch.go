package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/climate-pipeline/internal/model"
)

var (
	fetchMode      string
	fetchStartDate string
	fetchEndDate   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Ingest daily weather into the landing zone",
	Long:  "Fetches daily weather history for every city in dim_city. Backfill mode covers a historical window and skips already-landed years; recent mode re-fetches the current year through yesterday.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cities, err := loadCityDimension(ctx)
		if err != nil {
			return err
		}
		ing := newIngestor()

		var summary model.IngestionSummary
		switch fetchMode {
		case "backfill":
			start, end := fetchStartDate, fetchEndDate
			if start == "" {
				start = cfg.Window.StartDate
			}
			if end == "" {
				end = cfg.Window.EndDate
			}
			startDate, err := parseDate(start)
			if err != nil {
				return err
			}
			endDate, err := parseDate(end)
			if err != nil {
				return err
			}
			summary, err = ing.Backfill(ctx, cities, startDate, endDate)
			if err != nil {
				return err
			}
		case "recent":
			summary, err = ing.Recent(ctx, cities)
			if err != nil {
				return err
			}
		default:
			return eris.Errorf("unknown mode %q, want backfill or recent", fetchMode)
		}

		fmt.Printf("Mode: %s  Cities: %d  Requests: %d  Successes: %d  Failures: %d\n",
			summary.Mode, summary.Cities, summary.TotalRequests, summary.Successes, summary.Failures)
		if len(summary.FailedCities) > 0 {
			fmt.Fprintf(os.Stderr, "Failed cities: %v\n", summary.FailedCities)
		}
		return summary.Err()
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchMode, "mode", "recent", "ingestion mode: backfill or recent")
	fetchCmd.Flags().StringVar(&fetchStartDate, "start-date", "", "backfill start date YYYY-MM-DD (default from config)")
	fetchCmd.Flags().StringVar(&fetchEndDate, "end-date", "", "backfill end date YYYY-MM-DD (default from config)")
	rootCmd.AddCommand(fetchCmd)
}
