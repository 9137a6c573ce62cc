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

// OutboxRepository implements port.OutboxRepository
type OutboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *sql.DB, logger *zap.Logger) port.OutboxRepository {
	return &OutboxRepository{db: db, logger: logger}
}

const outboxColumns = `id, kind, payload, status, attempts, max_attempts, next_attempt_at, last_error, created_at, updated_at`

func (r *OutboxRepository) Create(ctx context.Context, task *entity.OutboxTask) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.NextAttemptAt.IsZero() {
		task.NextAttemptAt = now
	}

	_, err := executorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO outbox_tasks (`+outboxColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.Kind, string(task.Payload), task.Status, task.Attempts, task.MaxAttempts,
		utc(task.NextAttemptAt), task.LastError, now, now)
	if err != nil {
		r.logger.Error("Failed to create outbox task",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.Error(err))
		return fmt.Errorf("failed to create outbox task: %w", err)
	}
	return nil
}

func (r *OutboxRepository) GetByID(ctx context.Context, id string) (*entity.OutboxTask, error) {
	task, err := scanOutboxTask(executorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+outboxColumns+` FROM outbox_tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get outbox task", zap.String("task_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get outbox task: %w", err)
	}
	return task, nil
}

// ListDue returns pending tasks whose next attempt is due, oldest first
func (r *OutboxRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxTask, error) {
	return r.list(ctx, `
		SELECT `+outboxColumns+` FROM outbox_tasks
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at, created_at LIMIT ?
	`, entity.OutboxStatusPending, utc(now), limit)
}

func (r *OutboxRepository) List(ctx context.Context, status entity.OutboxStatus, limit int) ([]*entity.OutboxTask, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox_tasks`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

func (r *OutboxRepository) Update(ctx context.Context, task *entity.OutboxTask) error {
	task.UpdatedAt = time.Now().UTC()
	_, err := executorFor(ctx, r.db).ExecContext(ctx, `
		UPDATE outbox_tasks
		SET status = ?, attempts = ?, max_attempts = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, task.Status, task.Attempts, task.MaxAttempts, utc(task.NextAttemptAt), task.LastError, task.UpdatedAt, task.ID)
	if err != nil {
		r.logger.Error("Failed to update outbox task", zap.String("task_id", task.ID), zap.Error(err))
		return fmt.Errorf("failed to update outbox task: %w", err)
	}
	return nil
}

func (r *OutboxRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.OutboxTask, error) {
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list outbox tasks", zap.Error(err))
		return nil, fmt.Errorf("failed to list outbox tasks: %w", err)
	}
	defer rows.Close()

	var out []*entity.OutboxTask
	for rows.Next() {
		task, err := scanOutboxTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox task: %w", err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func scanOutboxTask(row rowScanner) (*entity.OutboxTask, error) {
	var t entity.OutboxTask
	var payload string
	err := row.Scan(&t.ID, &t.Kind, &payload, &t.Status, &t.Attempts, &t.MaxAttempts,
		&t.NextAttemptAt, &t.LastError, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Payload = []byte(payload)
	return &t, nil
}

var _ port.OutboxRepository = (*OutboxRepository)(nil)
