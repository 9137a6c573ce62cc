package entity

import "time"

// Role is a staff or client role used to route notifications
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOps    Role = "ops"
	RoleSales  Role = "sales"
	RoleTech   Role = "tech"
	RoleClient Role = "client"
)

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOps, RoleSales, RoleTech, RoleClient:
		return true
	default:
		return false
	}
}

// User is an account that can receive in-app notifications
type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name" binding:"required"`
	Email      string    `json:"email" binding:"required,email"`
	Role       Role      `json:"role" binding:"required,oneof=admin ops sales tech client"`
	LarkOpenID string    `json:"larkOpenId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Technician is a field operator assigned to jobs
type Technician struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name" binding:"required"`
	Email     string         `json:"email" binding:"omitempty,email"`
	Phone     string         `json:"phone"`
	User      Relation[User] `json:"user"`
	CreatedAt time.Time      `json:"createdAt"`
}
