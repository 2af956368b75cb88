package domain

import "time"

// User is an account record. At most one refresh token is live per user:
// RefreshToken holds the current value and every login overwrites it.
type User struct {
	ID           int64  `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"column:password_hash;not null"`

	// Single-slot refresh token. Empty means revoked.
	RefreshToken string `json:"-" gorm:"column:refresh_token"`

	IsVerified bool `json:"is_verified" gorm:"column:is_verified"`

	// Verification / reset tokens are stored hashed and are single-use.
	VerifyTokenHash string     `json:"-" gorm:"column:verify_token_hash"`
	VerifyTokenExp  *time.Time `json:"-" gorm:"column:verify_token_exp"`
	ResetTokenHash  string     `json:"-" gorm:"column:reset_token_hash"`
	ResetTokenExp   *time.Time `json:"-" gorm:"column:reset_token_exp"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
