package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanops/oms/internal/domain/entity"
)

type recordingChat struct {
	openID, text string
}

func (c *recordingChat) SendText(ctx context.Context, openID, text string) error {
	c.openID, c.text = openID, text
	return nil
}

type recordingNotifier struct {
	jobID int64
	typ   entity.NotificationType
}

func (n *recordingNotifier) Notify(ctx context.Context, jobID int64, typ entity.NotificationType) error {
	n.jobID, n.typ = jobID, typ
	return nil
}

func task(t *testing.T, kind entity.OutboxKind, payload interface{}) *entity.OutboxTask {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &entity.OutboxTask{ID: "t", Kind: kind, Payload: raw}
}

func TestDeliverers(t *testing.T) {
	chat := &recordingChat{}
	notifier := &recordingNotifier{}
	routes := Deliverers(nil, chat, notifier)

	_, ok := routes[entity.OutboxKindEmail]
	assert.False(t, ok)

	ctx := context.Background()
	require.NoError(t, routes[entity.OutboxKindChatMessage].Deliver(ctx,
		task(t, entity.OutboxKindChatMessage, entity.ChatMessagePayload{OpenID: "ou_1", Text: "JOB-00001: Scan completed"})))
	assert.Equal(t, "ou_1", chat.openID)
	assert.Equal(t, "JOB-00001: Scan completed", chat.text)

	require.NoError(t, routes[entity.OutboxKindClientNotify].Deliver(ctx,
		task(t, entity.OutboxKindClientNotify, entity.ClientNotifyPayload{JobID: 9, Type: entity.NotificationScanCompleted})))
	assert.Equal(t, int64(9), notifier.jobID)
	assert.Equal(t, entity.NotificationScanCompleted, notifier.typ)
}

func TestDeliverers_BadPayload(t *testing.T) {
	routes := Deliverers(&recordingSender{}, nil, nil)
	bad := &entity.OutboxTask{Kind: entity.OutboxKindEmail, Payload: json.RawMessage(`"oops"`)}

	err := routes[entity.OutboxKindEmail].Deliver(context.Background(), bad)
	assert.ErrorContains(t, err, "decode email payload")
}
