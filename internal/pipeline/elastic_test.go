package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var owntracksMessage = types.Message{
	MessageId:     aws.String("myID"),
	ReceiptHandle: aws.String("baz"),
	Body:          aws.String(`{ "foo" : "bar", "lat": 1234.56, "lon": 65.4321, "tst": 1501054876, "_type" : "underscores" }`),
}

var expectedDocument = map[string]any{
	"foo":       "bar",
	"type":      "underscores",
	"tst":       float64(1501054876),
	"timestamp": "2017-07-26T07:41:16Z",
	"location":  map[string]any{"lat": 1234.56, "lon": 65.4321},
}

type recordedRequest struct {
	method     string
	requestURI string
	auth       string
	body       string
}

func bulkServer(t *testing.T, response string, recorded *recordedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		*recorded = recordedRequest{
			method:     r.Method,
			requestURI: r.RequestURI,
			auth:       r.Header.Get("Authorization"),
			body:       string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
}

func TestElasticProcessor_SendsBulkRequest(t *testing.T) {
	response := `{ "took": 30, "errors": false, "items": [ { "index": { "_id": "myID", "status": 201 } } ] }`
	var recorded recordedRequest
	server := bulkServer(t, response, &recorded)
	defer server.Close()

	processor := NewElasticProcessor(ElasticProcessorConfig{Host: server.URL, Auth: "abc"})
	require.NoError(t, processor.Process(context.Background(), []types.Message{owntracksMessage}))

	assert.Equal(t, http.MethodPut, recorded.method)
	assert.Equal(t, "/%3Cowntracks-%7Bnow%2Fd%7BYYYY%7D%7D%3E/location/_bulk", recorded.requestURI)
	assert.Equal(t, "Basic abc", recorded.auth)

	lines := strings.Split(strings.TrimSuffix(recorded.body, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(recorded.body, "\n"))
	assert.Contains(t, lines[0], `"myID"`)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &doc))
	assert.Equal(t, expectedDocument, doc)
}

func TestElasticProcessor_PartialFailuresAreLoggedNotRaised(t *testing.T) {
	response := `{ "took": 30, "errors": true, "items": [ { "index": "anything" } ] }`
	var recorded recordedRequest
	server := bulkServer(t, response, &recorded)
	defer server.Close()

	core, logs := observer.New(zap.WarnLevel)
	processor := NewElasticProcessor(ElasticProcessorConfig{
		Host:   server.URL,
		Auth:   "abc",
		Logger: zap.New(core),
	})

	require.NoError(t, processor.Process(context.Background(), []types.Message{owntracksMessage}))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "logging whole response")
}

func TestElasticProcessor_DisabledWithoutConfig(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	for _, cfg := range []ElasticProcessorConfig{
		{Host: "", Auth: "abc"},
		{Host: server.URL, Auth: ""},
	} {
		processor := NewElasticProcessor(cfg)
		require.NoError(t, processor.Process(context.Background(), []types.Message{owntracksMessage}))
	}
	assert.False(t, called)
}

func TestElasticProcessor_TransportFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	processor := NewElasticProcessor(ElasticProcessorConfig{Host: server.URL, Auth: "abc"})
	err := processor.Process(context.Background(), []types.Message{owntracksMessage})
	assert.Error(t, err)
}

func TestElasticProcessor_ErrorStatusPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mapper_parsing_exception", http.StatusBadRequest)
	}))
	defer server.Close()

	processor := NewElasticProcessor(ElasticProcessorConfig{Host: server.URL, Auth: "abc"})
	err := processor.Process(context.Background(), []types.Message{owntracksMessage})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestTransformBody_InvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not json at all"},
		{name: "missing lon", body: `{ "lat": 1.0, "tst": 1501054876 }`},
		{name: "missing lat", body: `{ "lon": 1.0, "tst": 1501054876 }`},
		{name: "missing tst", body: `{ "lon": 1.0, "lat": 2.0 }`},
		{name: "non numeric tst", body: `{ "lon": 1.0, "lat": 2.0, "tst": "later" }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transformBody(tt.body)
			assert.Error(t, err)
		})
	}
}
