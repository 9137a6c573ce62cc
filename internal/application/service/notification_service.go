package service

import (
	"context"
	"fmt"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

// NotificationService exposes staff notifications
type NotificationService interface {
	List(ctx context.Context, filter entity.NotificationFilter) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id int64) (*entity.Notification, error)
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	logger           Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notificationRepo port.NotificationRepository, logger Logger) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

func (s *notificationServiceImpl) List(ctx context.Context, filter entity.NotificationFilter) ([]*entity.Notification, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.notificationRepo.List(ctx, filter)
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, id int64) (*entity.Notification, error) {
	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	if n.Read {
		return n, nil
	}
	if err := s.notificationRepo.MarkRead(ctx, id); err != nil {
		s.logger.Error("Failed to mark notification read", "error", err, "notification_id", id)
		return nil, err
	}
	n.Read = true
	return n, nil
}
