package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

// TemplateService manages workflow templates
type TemplateService interface {
	Create(ctx context.Context, tpl *entity.WorkflowTemplate) (*entity.WorkflowTemplate, error)
	// Update replaces a template. Jobs already materialized from it keep their steps.
	Update(ctx context.Context, id int64, tpl *entity.WorkflowTemplate) (*entity.WorkflowTemplate, error)
	Get(ctx context.Context, id int64) (*entity.WorkflowTemplate, error)
	List(ctx context.Context, activeOnly bool) ([]*entity.WorkflowTemplate, error)
}

type templateServiceImpl struct {
	templateRepo port.TemplateRepository
	validate     *validator.Validate
	logger       Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templateRepo port.TemplateRepository, logger Logger) TemplateService {
	return &templateServiceImpl{
		templateRepo: templateRepo,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger,
	}
}

func (s *templateServiceImpl) check(tpl *entity.WorkflowTemplate) error {
	if err := s.validate.Struct(tpl); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	// Duplicate names are allowed; completion matching uses the first one.
	if dups := tpl.DuplicateStepNames(); len(dups) > 0 {
		s.logger.Warn("Workflow template has duplicate step names",
			"template", tpl.Name,
			"duplicates", dups,
		)
	}
	return nil
}

func (s *templateServiceImpl) Create(ctx context.Context, tpl *entity.WorkflowTemplate) (*entity.WorkflowTemplate, error) {
	if err := s.check(tpl); err != nil {
		return nil, err
	}
	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		s.logger.Error("Failed to create workflow template", "error", err, "name", tpl.Name)
		return nil, err
	}
	s.logger.Info("Workflow template created", "template_id", tpl.ID, "name", tpl.Name, "steps", len(tpl.Steps))
	return tpl, nil
}

func (s *templateServiceImpl) Update(ctx context.Context, id int64, tpl *entity.WorkflowTemplate) (*entity.WorkflowTemplate, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl.ID = id
	tpl.CreatedAt = existing.CreatedAt
	if err := s.check(tpl); err != nil {
		return nil, err
	}
	if err := s.templateRepo.Update(ctx, tpl); err != nil {
		s.logger.Error("Failed to update workflow template", "error", err, "template_id", id)
		return nil, err
	}
	s.logger.Info("Workflow template updated", "template_id", id)
	return tpl, nil
}

func (s *templateServiceImpl) Get(ctx context.Context, id int64) (*entity.WorkflowTemplate, error) {
	tpl, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, fmt.Errorf("workflow template %d: %w", id, ErrNotFound)
	}
	return tpl, nil
}

func (s *templateServiceImpl) List(ctx context.Context, activeOnly bool) ([]*entity.WorkflowTemplate, error) {
	return s.templateRepo.List(ctx, activeOnly)
}
