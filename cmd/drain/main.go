// Command drain runs one drain cycle: fetch a bounded batch from the queue,
// fan it out to the configured processors and delete the batch. It is meant
// to be invoked by an external scheduler, e.g. every ten minutes.
package main

import (
	"context"
	"log"

	"github.com/spinscale/owntracks-pipeline/internal/config"
	"github.com/spinscale/owntracks-pipeline/internal/observability"
	"github.com/spinscale/owntracks-pipeline/internal/pipeline"
	"github.com/spinscale/owntracks-pipeline/internal/queue"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := observability.NewLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal("failed to load AWS config", zap.Error(err))
	}

	metrics := observability.NewInMemoryMetrics()
	drainer := queue.NewDrainer(queue.DrainerConfig{
		Client:   sqs.NewFromConfig(awsCfg),
		Queue:    cfg.AWS.Queue,
		MaxBatch: cfg.Drain.MaxBatch,
		TotalCap: cfg.Drain.TotalCap,
		Logger:   logger,
		Metrics:  metrics,
	})

	queueURL, err := drainer.URL(ctx)
	if err != nil {
		logger.Fatal("failed to resolve queue url", zap.Error(err))
	}

	messages, err := drainer.Drain(ctx, queueURL)
	if err != nil {
		logger.Fatal("failed to drain queue", zap.Error(err))
	}
	if len(messages) == 0 {
		logger.Info("no messages in queue, exiting")
		return
	}

	runner := pipeline.NewRunner(logger, metrics,
		pipeline.NewArchiveProcessor(pipeline.ArchiveProcessorConfig{
			Client:  s3.NewFromConfig(awsCfg),
			Bucket:  cfg.AWS.Bucket,
			Logger:  logger,
			Metrics: metrics,
		}),
		pipeline.NewElasticProcessor(pipeline.ElasticProcessorConfig{
			Host:    cfg.Elastic.Host,
			Auth:    cfg.Elastic.Auth,
			Logger:  logger,
			Metrics: metrics,
		}),
	)
	runner.Run(ctx, messages)

	// messages are deleted regardless of individual processor failures
	if err := drainer.Cleanup(ctx, queueURL, messages); err != nil {
		logger.Fatal("failed to delete processed messages", zap.Error(err))
	}
}
