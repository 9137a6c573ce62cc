package entity

import "time"

// NotificationType is a client-facing milestone a client can subscribe to
type NotificationType string

const (
	NotificationScanCompleted     NotificationType = "scan_completed"
	NotificationUploadCompleted   NotificationType = "upload_completed"
	NotificationQCCompleted       NotificationType = "qc_completed"
	NotificationTransferCompleted NotificationType = "transfer_completed"
	NotificationFloorPlanReady    NotificationType = "floor_plan_ready"
	NotificationPhotosReady       NotificationType = "photos_ready"
	NotificationAsBuiltReady      NotificationType = "as_built_ready"
)

// IsValid returns true if the notification type is known
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationScanCompleted, NotificationUploadCompleted, NotificationQCCompleted,
		NotificationTransferCompleted, NotificationFloorPlanReady, NotificationPhotosReady,
		NotificationAsBuiltReady:
		return true
	default:
		return false
	}
}

// Client is a customer ordering capture work
type Client struct {
	ID                      int64                      `json:"id"`
	Name                    string                     `json:"name" binding:"required"`
	Email                   string                     `json:"email" binding:"omitempty,email"`
	Phone                   string                     `json:"phone"`
	Company                 string                     `json:"company"`
	DefaultWorkflow         Relation[WorkflowTemplate] `json:"defaultWorkflow"`
	NotificationPreferences NotificationPreferences    `json:"notificationPreferences"`
	CreatedAt               time.Time                  `json:"createdAt"`
	UpdatedAt               time.Time                  `json:"updatedAt"`
}

// NotificationPreferences holds per-milestone opt-ins
type NotificationPreferences struct {
	NotifyOnScanCompleted     bool `json:"notifyOnScanCompleted"`
	NotifyOnUploadCompleted   bool `json:"notifyOnUploadCompleted"`
	NotifyOnQCCompleted       bool `json:"notifyOnQCCompleted"`
	NotifyOnTransferCompleted bool `json:"notifyOnTransferCompleted"`
	NotifyOnFloorPlanReady    bool `json:"notifyOnFloorPlanReady"`
	NotifyOnPhotosReady       bool `json:"notifyOnPhotosReady"`
	NotifyOnAsBuiltReady      bool `json:"notifyOnAsBuiltReady"`
}

// Enabled reports whether the client opted in to the given milestone
func (p NotificationPreferences) Enabled(t NotificationType) bool {
	switch t {
	case NotificationScanCompleted:
		return p.NotifyOnScanCompleted
	case NotificationUploadCompleted:
		return p.NotifyOnUploadCompleted
	case NotificationQCCompleted:
		return p.NotifyOnQCCompleted
	case NotificationTransferCompleted:
		return p.NotifyOnTransferCompleted
	case NotificationFloorPlanReady:
		return p.NotifyOnFloorPlanReady
	case NotificationPhotosReady:
		return p.NotifyOnPhotosReady
	case NotificationAsBuiltReady:
		return p.NotifyOnAsBuiltReady
	default:
		return false
	}
}
