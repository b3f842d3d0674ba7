package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spinscale/owntracks-pipeline/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// archivePrefix is where the archival processor writes its per-cycle objects.
const archivePrefix = "/data/"

// Reducer consolidates the small per-cycle archive objects into one
// compressed weekly object and deletes the originals. Steps are not atomic;
// a crash between upload and delete leaves both present, which a later run
// tolerates. Concurrent runs are not safe and must be prevented by the
// scheduler.
type Reducer struct {
	client   S3API
	bucket   string
	maxFiles int
	logger   *zap.Logger
	metrics  observability.MetricsCollector
	now      func() time.Time
}

type ReducerConfig struct {
	Client   S3API
	Bucket   string
	MaxFiles int
	Logger   *zap.Logger
	Metrics  observability.MetricsCollector

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func NewReducer(cfg ReducerConfig) *Reducer {
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = 5000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Reducer{
		client:   cfg.Client,
		bucket:   cfg.Bucket,
		maxFiles: cfg.MaxFiles,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}
}

// Reduce lists all past-day archive objects, concatenates their contents in
// ascending key order into one gzip object and deletes the originals.
func (r *Reducer) Reduce(ctx context.Context) error {
	keys, err := r.listKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		r.logger.Info("no archive objects to reduce, exiting")
		return nil
	}
	sort.Strings(keys)

	compressed, err := r.concatenate(ctx, keys)
	if err != nil {
		return err
	}

	key := reducedKey(r.now())
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(compressed),
		ACL:    types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("failed to upload reduced object %q: %w", key, err)
	}
	r.logger.Info("wrote reduced archive object",
		zap.String("key", key),
		zap.Int("source_objects", len(keys)),
	)

	return r.deleteKeys(ctx, keys)
}

// listKeys pages through the archival prefix, excluding objects written
// today. maxFiles is a safety bound on runaway listings, not a guarantee.
func (r *Reducer) listKeys(ctx context.Context) ([]string, error) {
	today := r.now().Format("2006/01/02")

	var keys []string
	var token *string
	for {
		out, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(r.bucket),
			Prefix:            aws.String(archivePrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", archivePrefix, err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.Contains(key, today) {
				continue
			}
			keys = append(keys, key)
		}

		if !aws.ToBool(out.IsTruncated) || len(keys) > r.maxFiles {
			break
		}
		token = out.NextContinuationToken
	}
	return keys, nil
}

func (r *Reducer) concatenate(ctx context.Context, keys []string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	for _, key := range keys {
		out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch object %q: %w", key, err)
		}
		_, err = io.Copy(gz, out.Body)
		out.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read object %q: %w", key, err)
		}
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize compressed stream: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Reducer) deleteKeys(ctx context.Context, keys []string) error {
	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := r.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(r.bucket),
		Delete: &types.Delete{Objects: ids},
	})
	if err != nil {
		return fmt.Errorf("failed to delete reduced source objects: %w", err)
	}

	r.metrics.IncReduced(len(out.Deleted))
	if len(out.Errors) > 0 {
		r.logger.Warn("deleted objects with errors",
			zap.Int("deleted", len(out.Deleted)),
			zap.Int("errors", len(out.Errors)),
		)
	} else {
		r.logger.Info("deleted reduced source objects", zap.Int("deleted", len(out.Deleted)))
	}
	return nil
}

// reducedKey names the weekly archive after the ISO week of its creation.
func reducedKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("/archives/%d-%d.json.gz", year, week)
}
