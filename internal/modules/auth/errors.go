package auth

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidVerifyToken  = errors.New("invalid or expired verification token")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
)
