// Package pipeline contains the message processors applied to a drained
// batch and the runner that fans a batch out to them.
package pipeline

import (
	"context"

	"github.com/spinscale/owntracks-pipeline/internal/observability"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// Processor handles one drained batch of messages. Implementations must not
// share mutable state; the runner hands every processor the same batch.
type Processor interface {
	Name() string
	Process(ctx context.Context, messages []types.Message) error
}

// Result records the outcome of one processor invocation.
type Result struct {
	Processor string
	Err       error
}

// Runner invokes each processor in order against the full batch. A failing
// processor is logged and skipped; it never prevents the remaining
// processors from running, and no error crosses the runner boundary.
type Runner struct {
	processors []Processor
	logger     *zap.Logger
	metrics    observability.MetricsCollector
}

func NewRunner(logger *zap.Logger, metrics observability.MetricsCollector, processors ...Processor) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewInMemoryMetrics()
	}
	return &Runner{
		processors: processors,
		logger:     logger,
		metrics:    metrics,
	}
}

func (r *Runner) Run(ctx context.Context, messages []types.Message) []Result {
	r.logger.Info("processing messages",
		zap.Int("messages", len(messages)),
		zap.Int("processors", len(r.processors)),
	)

	results := make([]Result, 0, len(r.processors))
	for _, p := range r.processors {
		err := p.Process(ctx, messages)
		if err != nil {
			r.metrics.IncProcessorFailed()
			r.logger.Error("processor failed, continuing",
				zap.String("processor", p.Name()),
				zap.Error(err),
			)
		}
		results = append(results, Result{Processor: p.Name(), Err: err})
	}
	return results
}
