package models

import (
	"time"
)

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleEmployee UserRole = "employee"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// User mirrors the identity provider record with the department it belongs to.
type User struct {
	ID           string   `json:"id" gorm:"primaryKey;size:255"`
	FullName     string   `json:"full_name" gorm:"not null;size:100"`
	Email        string   `json:"email" gorm:"index;size:255"`
	Role         UserRole `json:"role" gorm:"not null;size:20;default:employee"`
	DepartmentID *uint    `json:"department_id" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

func (User) TableName() string {
	return "users"
}

// Requester builds the caller identity used for authorization decisions
func (u *User) Requester() Requester {
	return Requester{
		UserID:       u.ID,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
	}
}

type Department struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"uniqueIndex;not null;size:50"`
	Name      string    `json:"name" gorm:"not null;size:200"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Department) TableName() string {
	return "departments"
}

// Requester is the authenticated caller passed into every service operation.
type Requester struct {
	UserID       string
	Role         UserRole
	DepartmentID *uint
}

func (r Requester) IsAdmin() bool   { return r.Role == RoleAdmin }
func (r Requester) IsManager() bool { return r.Role == RoleManager }

// InDepartment reports whether the requester belongs to departmentID
func (r Requester) InDepartment(departmentID uint) bool {
	return r.DepartmentID != nil && *r.DepartmentID == departmentID
}
