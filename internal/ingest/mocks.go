package ingest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// MockSQS is a mock implementation of SQSAPI for testing
type MockSQS struct {
	mu sync.Mutex

	QueueURL     string
	SentBodies   []string
	SendCallsErr error
}

func NewMockSQS() *MockSQS {
	return &MockSQS{QueueURL: "https://sqs.invalid/owntracks"}
}

func (m *MockSQS) GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String(m.QueueURL)}, nil
}

func (m *MockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.SendCallsErr != nil {
		return nil, m.SendCallsErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentBodies = append(m.SentBodies, aws.ToString(params.MessageBody))
	return &sqs.SendMessageOutput{MessageId: aws.String("sent-1")}, nil
}
