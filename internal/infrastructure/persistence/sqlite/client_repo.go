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

// ClientRepository implements port.ClientRepository
type ClientRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *sql.DB, logger *zap.Logger) port.ClientRepository {
	return &ClientRepository{
		db:     db,
		logger: logger,
	}
}

const clientColumns = `id, name, email, phone, company, default_workflow_id, notification_preferences, created_at, updated_at`

func (r *ClientRepository) Create(ctx context.Context, client *entity.Client) error {
	prefs, err := toJSON(client.NotificationPreferences)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO clients (name, email, phone, company, default_workflow_id, notification_preferences, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, client.Name, client.Email, client.Phone, client.Company, nullID(client.DefaultWorkflow.ID()), prefs, now, now)
	if err != nil {
		r.logger.Error("Failed to create client", zap.String("name", client.Name), zap.Error(err))
		return fmt.Errorf("failed to create client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	client.ID = id
	return nil
}

func (r *ClientRepository) Update(ctx context.Context, client *entity.Client) error {
	prefs, err := toJSON(client.NotificationPreferences)
	if err != nil {
		return err
	}
	client.UpdatedAt = time.Now().UTC()

	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		UPDATE clients
		SET name = ?, email = ?, phone = ?, company = ?, default_workflow_id = ?,
			notification_preferences = ?, updated_at = ?
		WHERE id = ?
	`, client.Name, client.Email, client.Phone, client.Company, nullID(client.DefaultWorkflow.ID()), prefs, client.UpdatedAt, client.ID)
	if err != nil {
		r.logger.Error("Failed to update client", zap.Int64("client_id", client.ID), zap.Error(err))
		return fmt.Errorf("failed to update client: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("client not found: %d", client.ID)
	}
	return nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*entity.Client, error) {
	row := executorFor(ctx, r.db).QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)

	client, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get client", zap.Int64("client_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

func (r *ClientRepository) List(ctx context.Context) ([]*entity.Client, error) {
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name, id`)
	if err != nil {
		r.logger.Error("Failed to list clients", zap.Error(err))
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*entity.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

func scanClient(row rowScanner) (*entity.Client, error) {
	var c entity.Client
	var defaultWorkflow sql.NullInt64
	var prefs string
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &defaultWorkflow, &prefs, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.DefaultWorkflow = entity.RefPtr[entity.WorkflowTemplate](idPtr(defaultWorkflow))
	if err := fromJSON(prefs, &c.NotificationPreferences); err != nil {
		return nil, err
	}
	return &c, nil
}

var _ port.ClientRepository = (*ClientRepository)(nil)
