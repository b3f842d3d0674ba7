package queue

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// MockSQS is a mock implementation of SQSAPI for testing
type MockSQS struct {
	mu sync.Mutex

	// Pages are returned one per ReceiveMessage call; once exhausted,
	// further calls return an empty page.
	Pages        [][]types.Message
	QueueURL     string
	ReceiveCalls int
	DeleteCalls  []*sqs.DeleteMessageBatchInput

	GetQueueUrlFunc        func(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessageFunc     func(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatchFunc func(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

func NewMockSQS(pages ...[]types.Message) *MockSQS {
	return &MockSQS{
		Pages:    pages,
		QueueURL: "https://sqs.invalid/owntracks",
	}
}

func (m *MockSQS) GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	if m.GetQueueUrlFunc != nil {
		return m.GetQueueUrlFunc(ctx, params, optFns...)
	}
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String(m.QueueURL)}, nil
}

func (m *MockSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if m.ReceiveMessageFunc != nil {
		return m.ReceiveMessageFunc(ctx, params, optFns...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReceiveCalls++
	if len(m.Pages) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	page := m.Pages[0]
	m.Pages = m.Pages[1:]
	return &sqs.ReceiveMessageOutput{Messages: page}, nil
}

func (m *MockSQS) DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error) {
	if m.DeleteMessageBatchFunc != nil {
		return m.DeleteMessageBatchFunc(ctx, params, optFns...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, params)

	successful := make([]types.DeleteMessageBatchResultEntry, 0, len(params.Entries))
	for _, entry := range params.Entries {
		successful = append(successful, types.DeleteMessageBatchResultEntry{Id: entry.Id})
	}
	return &sqs.DeleteMessageBatchOutput{Successful: successful}, nil
}

// DeletedReceiptHandles collects the receipt handles across all delete calls
func (m *MockSQS) DeletedReceiptHandles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var handles []string
	for _, call := range m.DeleteCalls {
		for _, entry := range call.Entries {
			handles = append(handles, aws.ToString(entry.ReceiptHandle))
		}
	}
	return handles
}
