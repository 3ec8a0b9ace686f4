package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/climate-pipeline/internal/mlmetrics"
	"github.com/sells-group/climate-pipeline/internal/pipeline"
	"github.com/sells-group/climate-pipeline/internal/runlog"
	"github.com/sells-group/climate-pipeline/internal/transform"
)

var (
	runStartDate string
	runEndDate   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a full pipeline flow",
	Long:  "Runs ingestion, the external transformation build, model training, and run logging as one flow.",
}

var runDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Run the incremental daily flow",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := buildPipeline(cmd)
		if err != nil {
			return err
		}
		return p.RunDaily(cmd.Context())
	},
}

var runBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Run the historical backfill flow",
	RunE: func(cmd *cobra.Command, _ []string) error {
		start, end := runStartDate, runEndDate
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

		p, err := buildPipeline(cmd)
		if err != nil {
			return err
		}
		return p.RunBackfill(cmd.Context(), startDate, endDate)
	},
}

func buildPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	cities, err := loadCityDimension(cmd.Context())
	if err != nil {
		return nil, err
	}

	trainer := &pipeline.MLTrainer{
		Config: trainConfig(),
		Sink:   mlmetrics.New(cfg.Warehouse.Path, nil),
	}
	return pipeline.New(
		newIngestor(),
		transform.NewCommand(cfg.Transform.Command, cfg.Transform.Dir),
		trainer,
		runlog.New(cfg.Warehouse.Path, nil),
		cities,
		nil,
	), nil
}

func init() {
	runBackfillCmd.Flags().StringVar(&runStartDate, "start-date", "", "backfill start date YYYY-MM-DD (default from config)")
	runBackfillCmd.Flags().StringVar(&runEndDate, "end-date", "", "backfill end date YYYY-MM-DD (default from config)")
	runCmd.AddCommand(runDailyCmd)
	runCmd.AddCommand(runBackfillCmd)
	rootCmd.AddCommand(runCmd)
}
