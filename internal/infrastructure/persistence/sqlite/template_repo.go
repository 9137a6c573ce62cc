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

// TemplateRepository implements port.TemplateRepository
type TemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new workflow template repository
func NewTemplateRepository(db *sql.DB, logger *zap.Logger) port.TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *entity.WorkflowTemplate) error {
	steps, err := toJSON(nonNilSteps(tpl.Steps))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO workflow_templates (name, job_type, is_active, description, steps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tpl.Name, tpl.JobType, boolInt(tpl.IsActive), tpl.Description, steps, now, now)
	if err != nil {
		r.logger.Error("Failed to create workflow template", zap.String("name", tpl.Name), zap.Error(err))
		return fmt.Errorf("failed to create workflow template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	tpl.ID = id
	return nil
}

// Update replaces the template definition. Jobs already materialized from it keep their steps.
func (r *TemplateRepository) Update(ctx context.Context, tpl *entity.WorkflowTemplate) error {
	steps, err := toJSON(nonNilSteps(tpl.Steps))
	if err != nil {
		return err
	}
	tpl.UpdatedAt = time.Now().UTC()

	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		UPDATE workflow_templates
		SET name = ?, job_type = ?, is_active = ?, description = ?, steps = ?, updated_at = ?
		WHERE id = ?
	`, tpl.Name, tpl.JobType, boolInt(tpl.IsActive), tpl.Description, steps, tpl.UpdatedAt, tpl.ID)
	if err != nil {
		r.logger.Error("Failed to update workflow template", zap.Int64("template_id", tpl.ID), zap.Error(err))
		return fmt.Errorf("failed to update workflow template: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("workflow template not found: %d", tpl.ID)
	}
	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowTemplate, error) {
	row := executorFor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, job_type, is_active, description, steps, created_at, updated_at
		FROM workflow_templates WHERE id = ?
	`, id)

	tpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow template", zap.Int64("template_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow template: %w", err)
	}
	return tpl, nil
}

func (r *TemplateRepository) List(ctx context.Context, activeOnly bool) ([]*entity.WorkflowTemplate, error) {
	query := `
		SELECT id, name, job_type, is_active, description, steps, created_at, updated_at
		FROM workflow_templates`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list workflow templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list workflow templates: %w", err)
	}
	defer rows.Close()

	var templates []*entity.WorkflowTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func scanTemplate(row rowScanner) (*entity.WorkflowTemplate, error) {
	var tpl entity.WorkflowTemplate
	var steps string
	if err := row.Scan(&tpl.ID, &tpl.Name, &tpl.JobType, &tpl.IsActive, &tpl.Description, &steps, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		return nil, err
	}
	if err := fromJSON(steps, &tpl.Steps); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func nonNilSteps(steps []entity.TemplateStep) []entity.TemplateStep {
	if steps == nil {
		return []entity.TemplateStep{}
	}
	return steps
}

var _ port.TemplateRepository = (*TemplateRepository)(nil)
