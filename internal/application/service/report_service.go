package service

import (
	"context"
	"fmt"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

// ReportService exports job data as spreadsheets
type ReportService interface {
	JobsWorkbook(ctx context.Context, status entity.JobStatus) ([]byte, error)
}

type reportServiceImpl struct {
	jobRepo      port.JobRepository
	spreadsheets port.Spreadsheets
	logger       Logger
}

// NewReportService creates a new ReportService
func NewReportService(jobRepo port.JobRepository, spreadsheets port.Spreadsheets, logger Logger) ReportService {
	return &reportServiceImpl{
		jobRepo:      jobRepo,
		spreadsheets: spreadsheets,
		logger:       logger,
	}
}

func (s *reportServiceImpl) JobsWorkbook(ctx context.Context, status entity.JobStatus) ([]byte, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown job status %q", ErrInvalidInput, status)
	}
	jobs, err := s.jobRepo.List(ctx, entity.JobFilter{Status: status})
	if err != nil {
		return nil, err
	}
	content, err := s.spreadsheets.JobReport(jobs)
	if err != nil {
		s.logger.Error("Failed to build job report", "error", err, "jobs", len(jobs))
		return nil, fmt.Errorf("build job report: %w", err)
	}
	s.logger.Info("Job report exported", "status", status, "jobs", len(jobs))
	return content, nil
}
