package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/climate-pipeline/internal/health"
	"github.com/sells-group/climate-pipeline/internal/model"
)

var (
	healthMinAccuracy      float64
	healthMinROCAUC        float64
	healthMinPositiveRatio float64
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check pipeline health",
	Long:  "Operational checks over the warehouse, with exit codes suitable for CI gates.",
}

var healthIngestionCmd = &cobra.Command{
	Use:   "ingestion",
	Short: "Check per-city ingestion freshness",
	Long:  "Summarizes bronze_daily_weather coverage per city. Exit 0 when all cities are fresh, 1 on stale or unknown, 2 on very_stale, 3 on structural problems.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		report, err := health.CheckIngestion(cmd.Context(), cfg.Warehouse.Path, nil)
		if err != nil {
			return &exitError{code: health.CodeStructural, msg: fmt.Sprintf("ingestion health: %v", err)}
		}

		formatIngestionReport(os.Stdout, report)

		switch report.Code {
		case health.CodeOK:
			fmt.Println("\nAll cities are fresh (<= 1 day lag).")
			return nil
		case health.CodeCritical:
			return &exitError{code: report.Code, msg: fmt.Sprintf(
				"ingestion health: %d city/cities very_stale (> 7 days behind)",
				report.Counts[model.FreshnessVeryStale])}
		default:
			return &exitError{code: report.Code, msg: fmt.Sprintf(
				"ingestion health: %d stale, %d unknown",
				report.Counts[model.FreshnessStale], report.Counts[model.FreshnessUnknown])}
		}
	},
}

var healthMLCmd = &cobra.Command{
	Use:   "ml",
	Short: "Check the latest training metrics against thresholds",
	Long:  "Evaluates the newest pipeline_ml_metrics row. Exit 0 when all thresholds pass, 1 on threshold violations, 3 on structural problems.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		th := health.Thresholds{
			MinAccuracy:      cfg.Health.MinAccuracy,
			MinROCAUC:        cfg.Health.MinROCAUC,
			MinPositiveRatio: cfg.Health.MinPositiveRatio,
		}
		if cmd.Flags().Changed("min-accuracy") {
			th.MinAccuracy = healthMinAccuracy
		}
		if cmd.Flags().Changed("min-roc-auc") {
			th.MinROCAUC = healthMinROCAUC
		}
		if cmd.Flags().Changed("min-positive-ratio") {
			th.MinPositiveRatio = healthMinPositiveRatio
		}

		report, err := health.CheckML(cmd.Context(), cfg.Warehouse.Path, th)
		if err != nil {
			return &exitError{code: health.CodeStructural, msg: fmt.Sprintf("ml health: %v", err)}
		}

		latest := report.Latest
		fmt.Printf("Latest training run (%s, %s at %s):\n",
			latest.FlowName, latest.RunMode, latest.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("  model:      %s %s\n", latest.ModelName, latest.ModelVersion)
		fmt.Printf("  train/test: %d/%d\n", latest.TrainSize, latest.TestSize)
		fmt.Printf("  accuracy:   %.3f\n", latest.Accuracy)
		if latest.ROCAUC != nil {
			fmt.Printf("  roc_auc:    %.3f\n", *latest.ROCAUC)
		} else {
			fmt.Println("  roc_auc:    n/a")
		}
		fmt.Printf("  pos ratio:  %.4f\n", latest.PositiveClassRatio)

		if report.Code != health.CodeOK {
			for _, f := range report.Failures {
				fmt.Fprintf(os.Stderr, "  - %s\n", f)
			}
			return &exitError{code: report.Code, msg: "ml health: thresholds not met"}
		}
		fmt.Println("\nML metrics meet configured thresholds.")
		return nil
	},
}

func formatIngestionReport(w io.Writer, report *health.IngestionReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CITY_ID\tCITY\tCOUNTRY\tFIRST\tLAST\tDAYS\tFRESHNESS")
	for _, c := range report.Cities {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			c.CityID, c.CityName, c.CountryCode,
			c.FirstDate.Format("2006-01-02"), c.LastDate.Format("2006-01-02"),
			c.Days, c.Freshness)
	}
	tw.Flush()
}

func init() {
	healthMLCmd.Flags().Float64Var(&healthMinAccuracy, "min-accuracy", 0, "minimum acceptable accuracy (default from config)")
	healthMLCmd.Flags().Float64Var(&healthMinROCAUC, "min-roc-auc", 0, "minimum acceptable ROC-AUC (default from config)")
	healthMLCmd.Flags().Float64Var(&healthMinPositiveRatio, "min-positive-ratio", 0, "minimum acceptable positive class ratio (default from config)")
	healthCmd.AddCommand(healthIngestionCmd)
	healthCmd.AddCommand(healthMLCmd)
	rootCmd.AddCommand(healthCmd)
}
