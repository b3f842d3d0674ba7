// Package ingest exposes the HTTP entry point that accepts owntracks
// check-ins and enqueues them for the drain pipeline.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSAPI defines the subset of SQS client operations used by the handler
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Handler authenticates location payloads and enqueues them. Selected
// request headers overlay fields on the payload before it is enqueued.
type Handler struct {
	client    SQSAPI
	queue     string
	basicAuth string
	logger    *zap.Logger
}

type HandlerConfig struct {
	Client    SQSAPI
	Queue     string
	BasicAuth string
	Logger    *zap.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Handler{
		client:    cfg.Client,
		queue:     cfg.Queue,
		basicAuth: cfg.BasicAuth,
		logger:    cfg.Logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Basic "+h.basicAuth {
		h.logger.Info("rejecting request without valid authorization header")
		w.Header().Set("WWW-Authenticate", `Basic realm="Owntracks realm"`)
		http.Error(w, "Please authenticate", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		http.Error(w, "Please provide body", http.StatusBadRequest)
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Please provide body", http.StatusBadRequest)
		return
	}

	// trackers identify themselves through headers, not the payload
	if user := r.Header.Get("X-Limit-U"); user != "" {
		payload["user"] = user
	}
	if device := r.Header.Get("X-Limit-D"); device != "" {
		payload["device"] = device
	}

	enriched, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	messageID, err := h.enqueue(r.Context(), string(enriched))
	if err != nil {
		h.logger.Error("failed to enqueue message", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("enqueued location message", zap.String("message_id", messageID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("[]"))
}

func (h *Handler) enqueue(ctx context.Context, message string) (string, error) {
	urlOut, err := h.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(h.queue),
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve queue url for %q: %w", h.queue, err)
	}

	out, err := h.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    urlOut.QueueUrl,
		MessageBody: aws.String(message),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
