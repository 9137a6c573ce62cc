package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

// Deliverer performs the side effect recorded in an outbox task
type Deliverer interface {
	Deliver(ctx context.Context, task *entity.OutboxTask) error
}

// DelivererFunc adapts a function to the Deliverer interface
type DelivererFunc func(ctx context.Context, task *entity.OutboxTask) error

// Deliver calls f
func (f DelivererFunc) Deliver(ctx context.Context, task *entity.OutboxTask) error {
	return f(ctx, task)
}

// Deliverers maps each outbox kind to its transport. A nil transport leaves the kind unrouted.
func Deliverers(email port.EmailSender, chat port.ChatMessenger, notifier port.ClientNotifier) map[entity.OutboxKind]Deliverer {
	out := make(map[entity.OutboxKind]Deliverer, 3)
	if email != nil {
		out[entity.OutboxKindEmail] = EmailDeliverer(email)
	}
	if chat != nil {
		out[entity.OutboxKindChatMessage] = ChatDeliverer(chat)
	}
	if notifier != nil {
		out[entity.OutboxKindClientNotify] = ClientNotifyDeliverer(notifier)
	}
	return out
}

// EmailDeliverer sends email tasks
func EmailDeliverer(sender port.EmailSender) Deliverer {
	return DelivererFunc(func(ctx context.Context, task *entity.OutboxTask) error {
		var p entity.EmailPayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return fmt.Errorf("decode email payload: %w", err)
		}
		return sender.Send(ctx, port.EmailMessage{To: p.To, Subject: p.Subject, HTML: p.HTML})
	})
}

// ChatDeliverer posts chat_message tasks
func ChatDeliverer(chat port.ChatMessenger) Deliverer {
	return DelivererFunc(func(ctx context.Context, task *entity.OutboxTask) error {
		var p entity.ChatMessagePayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return fmt.Errorf("decode chat payload: %w", err)
		}
		return chat.SendText(ctx, p.OpenID, p.Text)
	})
}

// ClientNotifyDeliverer calls the client notify endpoint
func ClientNotifyDeliverer(notifier port.ClientNotifier) Deliverer {
	return DelivererFunc(func(ctx context.Context, task *entity.OutboxTask) error {
		var p entity.ClientNotifyPayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return fmt.Errorf("decode client notify payload: %w", err)
		}
		return notifier.Notify(ctx, p.JobID, p.Type)
	})
}
