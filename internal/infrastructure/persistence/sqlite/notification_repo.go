package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a staff notification
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.CreatedAt = utc(n.CreatedAt)

	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, related_job_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.User.ID(), n.Type, n.Title, n.Message, nullID(n.RelatedJob.ID()), boolInt(n.Read), n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.Int64("user_id", n.User.ID()),
			zap.Int64("job_id", n.RelatedJob.ID()),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	return nil
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	n, err := scanNotification(executorFor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, user_id, type, title, message, related_job_id, read, created_at
		FROM notifications WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get notification", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// List returns notifications newest first
func (r *NotificationRepository) List(ctx context.Context, filter entity.NotificationFilter) ([]*entity.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, related_job_id, read, created_at
		FROM notifications WHERE 1 = 1`
	var args []interface{}
	if filter.UserID != 0 {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.UnreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*entity.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	result, err := executorFor(ctx, r.db).ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to mark notification read", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("notification not found: %d", id)
	}
	return nil
}

func scanNotification(row rowScanner) (*entity.Notification, error) {
	var n entity.Notification
	var userID int64
	var jobID sql.NullInt64
	if err := row.Scan(&n.ID, &userID, &n.Type, &n.Title, &n.Message, &jobID, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.User = entity.Ref[entity.User](userID)
	n.RelatedJob = entity.RefPtr[entity.Job](idPtr(jobID))
	return &n, nil
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
