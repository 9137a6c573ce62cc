package entity

import (
	"encoding/json"
	"time"
)

// OutboxKind selects the deliverer for a task
type OutboxKind string

const (
	OutboxKindEmail        OutboxKind = "email"
	OutboxKindClientNotify OutboxKind = "client_notify"
	OutboxKindChatMessage  OutboxKind = "chat_message"
)

// OutboxTask is a persisted side effect delivered after commit
type OutboxTask struct {
	ID            string          `json:"id"`
	Kind          OutboxKind      `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	Status        OutboxStatus    `json:"status"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"maxAttempts"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	LastError     string          `json:"lastError,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// EmailPayload is the payload of an email task
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	JobID   int64  `json:"jobId,omitempty"`
}

// ClientNotifyPayload asks the notify endpoint to inform a client of a milestone
type ClientNotifyPayload struct {
	JobID    int64            `json:"jobId"`
	Type     NotificationType `json:"type"`
	StepName string           `json:"stepName"`
}

// ChatMessagePayload mirrors a staff notification into chat
type ChatMessagePayload struct {
	OpenID string `json:"openId"`
	Text   string `json:"text"`
}
