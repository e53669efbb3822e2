package users

import "time"

// Role gates administrative operations.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

// User represents a user account.
type User struct {
	ID             int64
	Username       string
	PasswordHash   string
	FullName       string
	Email          string
	Role           Role
	Active         bool
	GPA            float64
	EnrollmentYear int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsAdmin reports whether the account carries the ADMIN role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RegisterInput carries the fields for creating a student account.
type RegisterInput struct {
	Username       string
	Password       string
	FullName       string
	Email          string
	GPA            float64
	EnrollmentYear int
}

// ProfileUpdate carries optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	FullName       *string
	Email          *string
	GPA            *float64
	EnrollmentYear *int
}
