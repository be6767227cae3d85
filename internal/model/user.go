package model

import "time"

// UserRole separates learners (take tests) from authors (build them).
type UserRole string

const (
	RoleLearner UserRole = "LEARNER"
	RoleAuthor  UserRole = "AUTHOR"
)

// User represents a platform account.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// CreateUserRequest is the payload for registering a new account.
type CreateUserRequest struct {
	Email    string   `json:"email" binding:"required,email,max=255"`
	Name     string   `json:"name" binding:"required,min=2,max=100"`
	Role     UserRole `json:"role" binding:"required,oneof=LEARNER AUTHOR"`
	Password string   `json:"password" binding:"required,min=6,max=128"`
}
