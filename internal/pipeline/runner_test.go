package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/spinscale/owntracks-pipeline/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessages(n int) []types.Message {
	messages := make([]types.Message, 0, n)
	for i := 0; i < n; i++ {
		messages = append(messages, types.Message{
			MessageId:     aws.String(fmt.Sprintf("id-%d", i)),
			Body:          aws.String(`{ "foo" : "bar" }`),
			ReceiptHandle: aws.String(fmt.Sprintf("rh-%d", i)),
		})
	}
	return messages
}

func TestRunner_AllProcessorsRun(t *testing.T) {
	first := NewMockProcessor("first")
	second := NewMockProcessor("second")
	runner := NewRunner(nil, nil, first, second)

	messages := testMessages(3)
	results := runner.Run(context.Background(), messages)

	require.Len(t, results, 2)
	assert.Equal(t, 1, first.Calls())
	assert.Equal(t, 1, second.Calls())
	assert.Equal(t, messages, first.Batches[0])
	assert.Equal(t, messages, second.Batches[0])
}

func TestRunner_FailureDoesNotStopSiblings(t *testing.T) {
	failing := NewMockProcessor("failing")
	failing.ProcessFunc = func(ctx context.Context, messages []types.Message) error {
		return fmt.Errorf("boom")
	}
	recording := NewMockProcessor("recording")

	metrics := observability.NewInMemoryMetrics()
	runner := NewRunner(nil, metrics, failing, recording)

	results := runner.Run(context.Background(), testMessages(1))

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, recording.Calls())
	assert.Equal(t, int64(1), metrics.GetProcessorFailed())
}

func TestRunner_NoProcessors(t *testing.T) {
	runner := NewRunner(nil, nil)
	assert.Empty(t, runner.Run(context.Background(), testMessages(2)))
}
