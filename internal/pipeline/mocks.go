package pipeline

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// MockProcessor is a mock implementation of Processor for testing
type MockProcessor struct {
	mu sync.Mutex

	ProcessorName string
	Batches       [][]types.Message
	ProcessFunc   func(ctx context.Context, messages []types.Message) error
}

func NewMockProcessor(name string) *MockProcessor {
	return &MockProcessor{ProcessorName: name}
}

func (m *MockProcessor) Name() string { return m.ProcessorName }

func (m *MockProcessor) Process(ctx context.Context, messages []types.Message) error {
	m.mu.Lock()
	m.Batches = append(m.Batches, messages)
	m.mu.Unlock()

	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, messages)
	}
	return nil
}

func (m *MockProcessor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Batches)
}
