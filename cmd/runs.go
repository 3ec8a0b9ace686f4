package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/runlog"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List pipeline run history",
	Long:  "Lists recorded pipeline executions with warehouse row counts, deltas, and freshness, newest first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := runlog.New(cfg.Warehouse.Path, nil)
		recs, err := store.List(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded.")
			return nil
		}

		formatRuns(os.Stdout, recs)
		return nil
	},
}

func formatRuns(w io.Writer, recs []model.PipelineRunRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFLOW\tMODE\tSTATUS\tSTARTED\tBRONZE\tGOLD\tFRESHNESS")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.FlowName,
			r.RunMode,
			r.Status,
			r.StartedAt.UTC().Format(time.RFC3339),
			countWithDelta(r.RowsBronze, r.RowsBronzeDelta),
			countWithDelta(r.RowsGoldML, r.RowsGoldMLDelta),
			r.FreshnessStatus,
		)
	}
	tw.Flush()
}

func countWithDelta(count, delta *int64) string {
	if count == nil {
		return "-"
	}
	if delta == nil {
		return fmt.Sprintf("%d", *count)
	}
	return fmt.Sprintf("%d (%+d)", *count, *delta)
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
