// Command reduce consolidates the archived per-cycle objects into one
// compressed weekly object. The scheduler must ensure at most one reduce
// runs at a time.
package main

import (
	"context"
	"log"

	"github.com/spinscale/owntracks-pipeline/internal/config"
	"github.com/spinscale/owntracks-pipeline/internal/observability"
	"github.com/spinscale/owntracks-pipeline/internal/storage"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
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

	reducer := storage.NewReducer(storage.ReducerConfig{
		Client:   s3.NewFromConfig(awsCfg),
		Bucket:   cfg.AWS.Bucket,
		MaxFiles: cfg.Reduce.MaxFiles,
		Logger:   logger,
		Metrics:  observability.NewInMemoryMetrics(),
	})

	if err := reducer.Reduce(ctx); err != nil {
		logger.Fatal("failed to reduce archive objects", zap.Error(err))
	}
}
