package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/scanops/oms/internal/application/port"
	"github.com/scanops/oms/internal/domain/entity"
)

// DirectoryService manages clients, staff users and technicians
type DirectoryService interface {
	CreateClient(ctx context.Context, client *entity.Client) (*entity.Client, error)
	UpdateClient(ctx context.Context, id int64, client *entity.Client) (*entity.Client, error)
	GetClient(ctx context.Context, id int64) (*entity.Client, error)
	ListClients(ctx context.Context) ([]*entity.Client, error)

	CreateUser(ctx context.Context, user *entity.User) (*entity.User, error)
	ListUsers(ctx context.Context, role entity.Role) ([]*entity.User, error)

	CreateTechnician(ctx context.Context, tech *entity.Technician) (*entity.Technician, error)
	ListTechnicians(ctx context.Context) ([]*entity.Technician, error)
}

type directoryServiceImpl struct {
	clientRepo   port.ClientRepository
	userRepo     port.UserRepository
	techRepo     port.TechnicianRepository
	templateRepo port.TemplateRepository
	logger       Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(
	clientRepo port.ClientRepository,
	userRepo port.UserRepository,
	techRepo port.TechnicianRepository,
	templateRepo port.TemplateRepository,
	logger Logger,
) DirectoryService {
	return &directoryServiceImpl{
		clientRepo:   clientRepo,
		userRepo:     userRepo,
		techRepo:     techRepo,
		templateRepo: templateRepo,
		logger:       logger,
	}
}

func (s *directoryServiceImpl) checkClient(ctx context.Context, client *entity.Client) error {
	if strings.TrimSpace(client.Name) == "" {
		return fmt.Errorf("%w: client name is required", ErrInvalidInput)
	}
	if !client.DefaultWorkflow.IsSet() {
		return nil
	}
	tpl, err := s.templateRepo.GetByID(ctx, client.DefaultWorkflow.ID())
	if err != nil {
		return err
	}
	if tpl == nil {
		return fmt.Errorf("%w: default workflow %d does not exist", ErrInvalidInput, client.DefaultWorkflow.ID())
	}
	return nil
}

func (s *directoryServiceImpl) CreateClient(ctx context.Context, client *entity.Client) (*entity.Client, error) {
	if err := s.checkClient(ctx, client); err != nil {
		return nil, err
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		s.logger.Error("Failed to create client", "error", err, "name", client.Name)
		return nil, err
	}
	s.logger.Info("Client created", "client_id", client.ID, "default_workflow", client.DefaultWorkflow.ID())
	return client, nil
}

func (s *directoryServiceImpl) UpdateClient(ctx context.Context, id int64, client *entity.Client) (*entity.Client, error) {
	existing, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	client.ID = id
	client.CreatedAt = existing.CreatedAt
	if err := s.checkClient(ctx, client); err != nil {
		return nil, err
	}
	if err := s.clientRepo.Update(ctx, client); err != nil {
		s.logger.Error("Failed to update client", "error", err, "client_id", id)
		return nil, err
	}
	return client, nil
}

func (s *directoryServiceImpl) GetClient(ctx context.Context, id int64) (*entity.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("client %d: %w", id, ErrNotFound)
	}
	return client, nil
}

func (s *directoryServiceImpl) ListClients(ctx context.Context) ([]*entity.Client, error) {
	return s.clientRepo.List(ctx)
}

func (s *directoryServiceImpl) CreateUser(ctx context.Context, user *entity.User) (*entity.User, error) {
	if !user.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, user.Role)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", "error", err, "email", user.Email)
		return nil, err
	}
	s.logger.Info("User created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// ListUsers returns all users, or only those with the given role
func (s *directoryServiceImpl) ListUsers(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	if role == "" {
		return s.userRepo.List(ctx)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return s.userRepo.ListByRole(ctx, role)
}

func (s *directoryServiceImpl) CreateTechnician(ctx context.Context, tech *entity.Technician) (*entity.Technician, error) {
	if tech.User.IsSet() {
		user, err := s.userRepo.GetByID(ctx, tech.User.ID())
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("%w: user %d does not exist", ErrInvalidInput, tech.User.ID())
		}
	}
	if err := s.techRepo.Create(ctx, tech); err != nil {
		s.logger.Error("Failed to create technician", "error", err, "name", tech.Name)
		return nil, err
	}
	s.logger.Info("Technician created", "tech_id", tech.ID, "user_id", tech.User.ID())
	return tech, nil
}

func (s *directoryServiceImpl) ListTechnicians(ctx context.Context) ([]*entity.Technician, error) {
	return s.techRepo.List(ctx)
}
