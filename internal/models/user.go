package models

import (
	"dsatracker/internal/apperrors"
	"regexp"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID           string    `db:"id"`
	FullName     string    `db:"full_name"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:       u.ID,
		FullName: u.FullName,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// Identity is the verified caller of a request. It is built from the access
// token by the auth middleware and handed to every service call.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))

	if r.FullName == "" {
		return apperrors.Validation("full name cannot be empty")
	}
	if r.Username == "" {
		return apperrors.Validation("username cannot be empty")
	}
	if len(r.Username) < 3 || len(r.Username) > 50 {
		return apperrors.Validation("username must be between 3 and 50 characters")
	}
	if !emailRegex.MatchString(r.Email) {
		return apperrors.Validation("invalid email format")
	}
	if len(r.Password) < 8 {
		return apperrors.Validation("password must be at least 8 characters long")
	}
	return nil
}

// LoginRequest accepts either the username or the email as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Identifier = strings.TrimSpace(r.Identifier)
	if r.Identifier == "" || r.Password == "" {
		return apperrors.Validation("identifier and password are required")
	}
	return nil
}
