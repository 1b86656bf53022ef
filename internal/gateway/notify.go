package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// CompletionNotifier tells the API server that processing finished so it can
// broadcast the completion event. Failures are the caller's to ignore; the
// notification is not part of the durable pipeline.
type CompletionNotifier struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewCompletionNotifier(baseURL string, logger *zap.Logger) *CompletionNotifier {
	return &CompletionNotifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger.Named("notifier"),
	}
}

// NotifyCompleted posts the evaluation id to the internal completion
// endpoint.
func (n *CompletionNotifier) NotifyCompleted(ctx context.Context, evaluationID string) error {
	body, err := json.Marshal(map[string]string{"evaluationId": evaluationID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.baseURL+"/internal/notify-completed", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify-completed returned %d", resp.StatusCode)
	}

	n.logger.Info("completion notified", zap.String("evaluation_id", evaluationID))
	return nil
}
