package domain

import (
	"time"
	"unicode/utf8"

	"github.com/diagnosis/estate-listings/internal/utils"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes
	MaxPasswordBytes = 72
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SignupRequest has no role field: every signup creates a non-admin account.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	IsAdmin   bool   `json:"isAdmin"`
	ExpiresIn int64  `json:"expiresIn"`
	Message   string `json:"message"`
}

type UserInfo struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *SignupRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
	r.Name = utils.NormalizeString(r.Name)
}

func (r *SignupRequest) Validate() error {
	if r.Email == "" {
		return NewValidationError("email", "email is required")
	}
	if !utils.IsValidEmail(r.Email) {
		return NewValidationError("email", "invalid email format")
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		return NewValidationError("password", "password must be at least 8 characters long")
	}
	if len(r.Password) > MaxPasswordBytes {
		return NewValidationError("password", "password must be at most 72 bytes long")
	}
	return nil
}

func (r *LoginRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

// ToUserInfo converts User to UserInfo (without sensitive data)
func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}
