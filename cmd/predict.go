package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/climate-pipeline/internal/mlearn"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score feature rows with the trained model",
	Long:  "Loads the saved baseline model, scores every usable row of gold_ml_features, and replaces the gold_ml_predictions table and CSV export.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		clf, err := mlearn.LoadModel(cfg.ML.ModelPath)
		if err != nil {
			return err
		}

		res, err := mlearn.Predict(cmd.Context(), mlearn.PredictConfig{
			WarehousePath: cfg.Warehouse.Path,
			FeatureTable:  cfg.ML.FeatureTable,
			ModelPath:     cfg.ML.ModelPath,
			OutputTable:   cfg.ML.OutputTable,
			OutputCSV:     cfg.ML.OutputCSV,
		}, clf)
		if err != nil {
			return err
		}

		fmt.Printf("Scored %d rows, %d predicted events.\n", res.Rows, res.Events)
		fmt.Printf("Predictions written to table %s and %s\n", res.OutputTable, res.OutputCSV)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
}
