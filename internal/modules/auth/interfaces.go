package auth

import (
	"context"

	"medichat/internal/domain"
)

// UserRepositoryInterface — only the methods the auth service uses.
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByVerifyTokenHash(ctx context.Context, hash string) (*domain.User, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	SetRefreshToken(ctx context.Context, userID int64, token string) error
}

// Mailer delivers transactional mail. Failures degrade, they never abort the
// operation that triggered the mail.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

type tokenIssuer interface {
	IssueAccess(userID int64) (string, error)
	IssueRefresh(userID int64) (string, error)
	VerifyRefresh(token string) (int64, error)
}
