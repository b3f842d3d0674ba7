// Command ingest serves the HTTP endpoint that owntracks clients post
// their location payloads to.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/spinscale/owntracks-pipeline/internal/config"
	"github.com/spinscale/owntracks-pipeline/internal/ingest"
	"github.com/spinscale/owntracks-pipeline/internal/observability"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
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

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Fatal("failed to load AWS config", zap.Error(err))
	}

	handler := ingest.NewHandler(ingest.HandlerConfig{
		Client:    sqs.NewFromConfig(awsCfg),
		Queue:     cfg.AWS.Queue,
		BasicAuth: cfg.HTTP.BasicAuth,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening for location payloads", zap.String("addr", cfg.HTTP.ListenAddr))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("http server stopped", zap.Error(err))
	}
}
