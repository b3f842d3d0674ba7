package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spinscale/owntracks-pipeline/internal/observability"
	"github.com/spinscale/owntracks-pipeline/pkg/batch"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// deleteBatchSize is the SQS per-call limit for batch deletion entries.
const deleteBatchSize = 10

// SQSAPI defines the subset of SQS client operations used by the drainer
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// Drainer pulls bounded batches off a queue and deletes them after processing
type Drainer struct {
	client   SQSAPI
	queue    string
	maxBatch int
	totalCap int
	logger   *zap.Logger
	metrics  observability.MetricsCollector
}

type DrainerConfig struct {
	Client   SQSAPI
	Queue    string
	MaxBatch int
	TotalCap int
	Logger   *zap.Logger
	Metrics  observability.MetricsCollector
}

func NewDrainer(cfg DrainerConfig) *Drainer {
	if cfg.MaxBatch == 0 {
		cfg.MaxBatch = 10
	}
	if cfg.TotalCap == 0 {
		cfg.TotalCap = 250
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Drainer{
		client:   cfg.Client,
		queue:    cfg.Queue,
		maxBatch: cfg.MaxBatch,
		totalCap: cfg.TotalCap,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// URL resolves the configured queue name to its URL
func (d *Drainer) URL(ctx context.Context) (string, error) {
	out, err := d.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(d.queue),
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve queue url for %q: %w", d.queue, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

// Drain accumulates messages from the queue in pages of at most MaxBatch.
// It keeps fetching while a page comes back full and the accumulator is
// still below TotalCap. Messages are not deleted here.
func (d *Drainer) Drain(ctx context.Context, queueURL string) ([]types.Message, error) {
	var messages []types.Message
	for {
		page, err := d.receivePage(ctx, queueURL)
		if err != nil {
			return nil, err
		}
		messages = append(messages, page...)

		if len(page) != d.maxBatch || len(messages) >= d.totalCap {
			break
		}
	}

	d.metrics.IncReceived(len(messages))
	return messages, nil
}

func (d *Drainer) receivePage(ctx context.Context, queueURL string) ([]types.Message, error) {
	out, err := d.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: int32(d.maxBatch),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}
	return out.Messages, nil
}

// Cleanup deletes processed messages in chunks of the SQS batch limit.
// Entry ids are a running ordinal, unique within each request.
func (d *Drainer) Cleanup(ctx context.Context, queueURL string, messages []types.Message) error {
	chunks, err := batch.Partition(messages, deleteBatchSize)
	if err != nil {
		return err
	}

	id := 0
	for _, chunk := range chunks {
		entries := make([]types.DeleteMessageBatchRequestEntry, 0, len(chunk))
		for _, msg := range chunk {
			entries = append(entries, types.DeleteMessageBatchRequestEntry{
				Id:            aws.String(strconv.Itoa(id)),
				ReceiptHandle: msg.ReceiptHandle,
			})
			id++
		}

		out, err := d.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: aws.String(queueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("failed to delete message batch: %w", err)
		}
		if out == nil {
			d.logger.Warn("deletion of message batch returned no response")
			continue
		}

		d.metrics.IncDeleted(len(out.Successful))
		d.metrics.IncDeleteFailed(len(out.Failed))
		d.logger.Info("batch deletion of messages",
			zap.Int("successful", len(out.Successful)),
			zap.Int("failed", len(out.Failed)),
		)
	}
	return nil
}
