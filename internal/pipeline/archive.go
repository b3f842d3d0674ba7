package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spinscale/owntracks-pipeline/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// ObjectPutter is the single S3 operation the archival processor needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveProcessor stores the raw bodies of a batch as one newline-delimited
// object under a minute-granularity key.
type ArchiveProcessor struct {
	client  ObjectPutter
	bucket  string
	logger  *zap.Logger
	metrics observability.MetricsCollector
	now     func() time.Time
}

type ArchiveProcessorConfig struct {
	Client  ObjectPutter
	Bucket  string
	Logger  *zap.Logger
	Metrics observability.MetricsCollector

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func NewArchiveProcessor(cfg ArchiveProcessorConfig) *ArchiveProcessor {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ArchiveProcessor{
		client:  cfg.Client,
		bucket:  cfg.Bucket,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.Now,
	}
}

func (p *ArchiveProcessor) Name() string { return "s3-archive" }

func (p *ArchiveProcessor) Process(ctx context.Context, messages []sqstypes.Message) error {
	key := archiveKey(p.now())

	var data strings.Builder
	for _, msg := range messages {
		data.WriteString(aws.ToString(msg.Body))
		data.WriteString("\n")
	}

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(data.String()),
		ACL:         types.ObjectCannedACLPrivate,
		ContentType: aws.String("text/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to store messages under %q: %w", key, err)
	}

	p.metrics.IncArchived(len(messages))
	p.logger.Info("stored messages in archive object",
		zap.Int("messages", len(messages)),
		zap.String("key", key),
	)
	return nil
}

func archiveKey(t time.Time) string {
	return t.Format("/data/2006/01/02/15:04.json")
}
