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

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	user.CreatedAt = time.Now().UTC()

	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO users (name, email, role, lark_open_id, created_at) VALUES (?, ?, ?, ?, ?)
	`, user.Name, user.Email, user.Role, user.LarkOpenID, user.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var u entity.User
	err := executorFor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, email, role, lark_open_id, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.LarkOpenID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	return r.list(ctx, `SELECT id, name, email, role, lark_open_id, created_at FROM users WHERE role = ? ORDER BY id`, role)
}

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	return r.list(ctx, `SELECT id, name, email, role, lark_open_id, created_at FROM users ORDER BY id`)
}

func (r *UserRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.User, error) {
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var u entity.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.LarkOpenID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

var _ port.UserRepository = (*UserRepository)(nil)

// TechnicianRepository implements port.TechnicianRepository
type TechnicianRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTechnicianRepository creates a new technician repository
func NewTechnicianRepository(db *sql.DB, logger *zap.Logger) port.TechnicianRepository {
	return &TechnicianRepository{db: db, logger: logger}
}

func (r *TechnicianRepository) Create(ctx context.Context, tech *entity.Technician) error {
	tech.CreatedAt = time.Now().UTC()

	result, err := executorFor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO technicians (name, email, phone, user_id, created_at) VALUES (?, ?, ?, ?, ?)
	`, tech.Name, tech.Email, tech.Phone, nullID(tech.User.ID()), tech.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create technician", zap.String("name", tech.Name), zap.Error(err))
		return fmt.Errorf("failed to create technician: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	tech.ID = id
	return nil
}

func (r *TechnicianRepository) GetByID(ctx context.Context, id int64) (*entity.Technician, error) {
	tech, err := scanTechnician(executorFor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, email, phone, user_id, created_at FROM technicians WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get technician", zap.Int64("tech_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get technician: %w", err)
	}
	return tech, nil
}

func (r *TechnicianRepository) List(ctx context.Context) ([]*entity.Technician, error) {
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, `
		SELECT id, name, email, phone, user_id, created_at FROM technicians ORDER BY name, id
	`)
	if err != nil {
		r.logger.Error("Failed to list technicians", zap.Error(err))
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}
	defer rows.Close()

	var techs []*entity.Technician
	for rows.Next() {
		tech, err := scanTechnician(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan technician: %w", err)
		}
		techs = append(techs, tech)
	}
	return techs, rows.Err()
}

func scanTechnician(row rowScanner) (*entity.Technician, error) {
	var t entity.Technician
	var userID sql.NullInt64
	if err := row.Scan(&t.ID, &t.Name, &t.Email, &t.Phone, &userID, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.User = entity.RefPtr[entity.User](idPtr(userID))
	return &t, nil
}

var _ port.TechnicianRepository = (*TechnicianRepository)(nil)
