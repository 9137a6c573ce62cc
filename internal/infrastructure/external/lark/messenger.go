package lark

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/scanops/oms/internal/application/port"
)

// Messenger posts staff chat messages addressed by open_id
type Messenger struct {
	client *Client
}

// NewMessenger creates a new chat messenger
func NewMessenger(client *Client) *Messenger {
	return &Messenger{client: client}
}

var _ port.ChatMessenger = (*Messenger)(nil)

// SendText sends a plain-text message
func (m *Messenger) SendText(ctx context.Context, openID, text string) error {
	if openID == "" {
		return fmt.Errorf("openID cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode text message: %w", err)
	}
	_, err = m.client.send(ctx, ReceiveByOpenID, openID, "text", string(content))
	return err
}
