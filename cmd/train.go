package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/climate-pipeline/internal/mlearn"
	"github.com/sells-group/climate-pipeline/internal/mlmetrics"
	"github.com/sells-group/climate-pipeline/internal/model"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the baseline event classifier",
	Long:  "Fits the baseline model on gold_ml_features using a temporal split, saves the model and a metrics sidecar, and appends the evaluation to pipeline_ml_metrics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sink := mlmetrics.New(cfg.Warehouse.Path, nil)
		res, err := mlearn.Train(cmd.Context(), trainConfig(), sink, mlearn.RunMeta{
			FlowName: "standalone-train",
			RunMode:  model.RunModeDaily,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Trained on %d rows, tested on %d.\n", res.Eval.TrainSize, res.Eval.TestSize)
		fmt.Printf("Accuracy: %.3f  Positive ratio: %.4f\n", res.Eval.Accuracy, res.Eval.PositiveRatio)
		if res.Eval.ROCAUC != nil {
			fmt.Printf("ROC-AUC: %.3f\n", *res.Eval.ROCAUC)
		} else {
			fmt.Println("ROC-AUC: n/a (single-class test set)")
		}
		fmt.Printf("Model saved to %s\n", res.ModelPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
}
