package entity

import "time"

// Notification types for staff notifications
const (
	NotificationTypeWorkflowStep = "workflow_step"
)

// Notification is an in-app message for a staff user
type Notification struct {
	ID         int64          `json:"id"`
	User       Relation[User] `json:"user"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	RelatedJob Relation[Job]  `json:"relatedJob"`
	Read       bool           `json:"read"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// NotificationFilter narrows notification listings
type NotificationFilter struct {
	UserID     int64
	UnreadOnly bool
	Limit      int
}
