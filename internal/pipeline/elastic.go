package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spinscale/owntracks-pipeline/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// bulkPath targets the owntracks-<current year> index via a date math
// expression, percent-encoded as Elasticsearch requires.
const bulkPath = "/%3Cowntracks-%7Bnow%2Fd%7BYYYY%7D%7D%3E/location/_bulk"

const elasticTimeout = 10 * time.Second

// ElasticProcessor transforms a batch into one bulk-index request. It is
// disabled, and silently does nothing, when host or credential are not
// configured.
type ElasticProcessor struct {
	host    string
	auth    string
	enabled bool
	client  *http.Client
	logger  *zap.Logger
	metrics observability.MetricsCollector
}

type ElasticProcessorConfig struct {
	Host    string
	Auth    string
	Logger  *zap.Logger
	Metrics observability.MetricsCollector

	// HTTPClient overrides the default 10s-timeout client, for tests.
	HTTPClient *http.Client
}

func NewElasticProcessor(cfg ElasticProcessorConfig) *ElasticProcessor {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Timeout: elasticTimeout,
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: elasticTimeout}).DialContext,
				ResponseHeaderTimeout: elasticTimeout,
			},
		}
	}
	return &ElasticProcessor{
		host:    cfg.Host,
		auth:    cfg.Auth,
		enabled: cfg.Host != "" && cfg.Auth != "",
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

func (p *ElasticProcessor) Name() string { return "elasticsearch" }

func (p *ElasticProcessor) Process(ctx context.Context, messages []types.Message) error {
	if !p.enabled {
		return nil
	}

	body, err := bulkBody(messages)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.host+bulkPath, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build bulk request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+p.auth)
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send bulk request: %w", err)
	}
	defer resp.Body.Close()
	p.logger.Info("response from sending bulk to elastic cluster", zap.String("status", resp.Status))

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read bulk response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("bulk request failed with status %s: %s", resp.Status, responseBody)
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return fmt.Errorf("failed to parse bulk response: %w", err)
	}
	if result.Errors {
		// a partial per-document failure still counts as a handled batch
		p.logger.Warn("bulk response returned errors, logging whole response",
			zap.ByteString("response", responseBody),
		)
	}

	p.metrics.IncIndexed(len(messages))
	return nil
}

// bulkBody renders one action line plus one document line per message,
// terminated by a trailing newline. The action is keyed by the message id so
// reprocessing the same message overwrites instead of duplicating.
func bulkBody(messages []types.Message) (string, error) {
	var sb strings.Builder
	for _, msg := range messages {
		doc, err := transformBody(aws.ToString(msg.Body))
		if err != nil {
			return "", err
		}
		docJSON, err := json.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("failed to serialize document: %w", err)
		}
		sb.WriteString(fmt.Sprintf("{ \"index\": { \"_id\" : %q } }\n", aws.ToString(msg.MessageId)))
		sb.Write(docJSON)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// transformBody reshapes a raw owntracks record for indexing: reserved-field
// underscores are stripped from field names, lon/lat fold into a single geo
// field, and the epoch-seconds tst gains an ISO-8601 UTC companion.
func transformBody(body string) (map[string]any, error) {
	var input map[string]any
	if err := json.Unmarshal([]byte(body), &input); err != nil {
		return nil, fmt.Errorf("failed to parse message body: %w", err)
	}

	doc := make(map[string]any, len(input)+2)
	for key, value := range input {
		doc[strings.TrimPrefix(key, "_")] = value
	}

	lon, ok := doc["lon"].(float64)
	if !ok {
		return nil, fmt.Errorf("message has no numeric lon field")
	}
	lat, ok := doc["lat"].(float64)
	if !ok {
		return nil, fmt.Errorf("message has no numeric lat field")
	}
	delete(doc, "lon")
	delete(doc, "lat")
	doc["location"] = map[string]any{"lon": lon, "lat": lat}

	tst, ok := doc["tst"].(float64)
	if !ok {
		return nil, fmt.Errorf("message has no numeric tst field")
	}
	doc["timestamp"] = time.Unix(int64(tst), 0).UTC().Format("2006-01-02T15:04:05Z")

	return doc, nil
}
