package pipeline

import (
	"context"

	"github.com/sells-group/climate-pipeline/internal/mlearn"
	"github.com/sells-group/climate-pipeline/internal/model"
)

// MLTrainer adapts baseline training to the pipeline Trainer interface.
type MLTrainer struct {
	Config mlearn.TrainConfig
	Sink   mlearn.MetricsSink
}

// Train fits the baseline model and records its metrics under the flow that
// requested it.
func (t *MLTrainer) Train(ctx context.Context, flowName string, mode model.RunMode) error {
	_, err := mlearn.Train(ctx, t.Config, t.Sink, mlearn.RunMeta{
		FlowName: flowName,
		RunMode:  mode,
	})
	return err
}
