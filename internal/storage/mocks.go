package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MockS3 is an in-memory mock implementation of S3API for testing
type MockS3 struct {
	mu sync.Mutex

	objects map[string][]byte

	// PageSize bounds each ListObjectsV2 page; 0 means everything in one page.
	PageSize int

	ListCalls   int
	GetKeys     []string
	PutKeys     []string
	DeletedKeys []string

	PutObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObjectFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func NewMockS3() *MockS3 {
	return &MockS3{objects: make(map[string][]byte)}
}

// Seed stores an object without recording the call
func (m *MockS3) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

// Object returns the stored bytes for key, if present
func (m *MockS3) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

func (m *MockS3) sortedKeys(prefix string) []string {
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *MockS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++

	keys := m.sortedKeys(aws.ToString(params.Prefix))

	start := 0
	if params.ContinuationToken != nil {
		offset, err := strconv.Atoi(aws.ToString(params.ContinuationToken))
		if err != nil {
			return nil, fmt.Errorf("bad continuation token: %w", err)
		}
		start = offset
	}

	end := len(keys)
	if m.PageSize > 0 && start+m.PageSize < end {
		end = start + m.PageSize
	}

	contents := make([]types.Object, 0, end-start)
	for _, key := range keys[start:end] {
		contents = append(contents, types.Object{Key: aws.String(key)})
	}

	out := &s3.ListObjectsV2Output{
		Contents:    contents,
		IsTruncated: aws.Bool(end < len(keys)),
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (m *MockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, params, optFns...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := aws.ToString(params.Key)
	m.GetKeys = append(m.GetKeys, key)

	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *MockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := aws.ToString(params.Key)
	m.PutKeys = append(m.PutKeys, key)
	m.objects[key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *MockS3) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := make([]types.DeletedObject, 0, len(params.Delete.Objects))
	for _, id := range params.Delete.Objects {
		key := aws.ToString(id.Key)
		delete(m.objects, key)
		m.DeletedKeys = append(m.DeletedKeys, key)
		deleted = append(deleted, types.DeletedObject{Key: id.Key})
	}
	return &s3.DeleteObjectsOutput{Deleted: deleted}, nil
}
