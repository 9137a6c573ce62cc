package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

// Config holds the notify endpoint settings
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client posts milestone notifications to the notify endpoint
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new notify client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ port.ClientNotifier = (*Client)(nil)

type notifyRequest struct {
	Type entity.NotificationType `json:"type"`
}

// Notify calls POST {base}/api/jobs/:id/notify; any non-2xx status is an error
func (c *Client) Notify(ctx context.Context, jobID int64, notificationType entity.NotificationType) error {
	body, err := json.Marshal(notifyRequest{Type: notificationType})
	if err != nil {
		return fmt.Errorf("failed to encode notify request: %w", err)
	}

	url := fmt.Sprintf("%s/api/jobs/%d/notify", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify job %d: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify job %d: unexpected status %d: %s", jobID, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	c.logger.Info("Client notification requested",
		zap.Int64("job_id", jobID),
		zap.String("type", string(notificationType)))
	return nil
}
