package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"medichat/internal/domain"
)

// Service contains all business logic for authentication and the
// access/refresh credential pair. The refresh token is a single slot on the
// user record: issuing a new one at login invalidates the previous one, and
// rotation of an access token requires byte-equality with the stored value.
type Service struct {
	users     UserRepositoryInterface
	issuer    tokenIssuer
	mailer    Mailer
	verifyTTL time.Duration
	resetTTL  time.Duration
	log       zerolog.Logger
}

type LoginResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

type RegisterResult struct {
	User     *domain.User
	MailSent bool
}

func NewService(
	users UserRepositoryInterface,
	issuer tokenIssuer,
	mailer Mailer,
	verifyTTL time.Duration,
	resetTTL time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		users:     users,
		issuer:    issuer,
		mailer:    mailer,
		verifyTTL: verifyTTL,
		resetTTL:  resetTTL,
		log:       log,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	verifyRaw, verifyHash, err := generateOpaqueToken()
	if err != nil {
		return nil, err
	}
	exp := time.Now().Add(s.verifyTTL)

	user := &domain.User{
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:    string(hashed),
		IsVerified:      false,
		VerifyTokenHash: verifyHash,
		VerifyTokenExp:  &exp,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// Mail failure must not fail registration; the handler reports a
	// degraded message instead.
	mailSent := true
	if err := s.mailer.SendVerificationEmail(ctx, user.Email, verifyRaw); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("verification mail not sent")
		mailSent = false
	}

	user.PasswordHash = ""
	return &RegisterResult{User: user, MailSent: mailSent}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}

	accessToken, err := s.issuer.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	// Persist before handing out: the stored value is what rotation checks
	// against, and overwriting it revokes any earlier refresh token.
	if err := s.users.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &LoginResult{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RotateAccess mints a new access token for a valid refresh token. The token
// must verify AND equal the user's stored slot; a mismatch means the token was
// superseded by a later login or revoked, which is the replay-detection
// control. The stored refresh token itself is not rotated here.
func (s *Service) RotateAccess(ctx context.Context, refreshRaw string) (string, error) {
	userID, err := s.issuer.VerifyRefresh(refreshRaw)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", err
	}

	if user.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshRaw)) != 1 {
		return "", ErrInvalidRefreshToken
	}

	return s.issuer.IssueAccess(user.ID)
}

// Logout revokes the stored refresh token. A stale or garbage cookie is not an
// error; the cookies get cleared either way.
func (s *Service) Logout(ctx context.Context, refreshRaw string) error {
	userID, err := s.issuer.VerifyRefresh(refreshRaw)
	if err != nil {
		return nil
	}
	return s.users.SetRefreshToken(ctx, userID, "")
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *Service) VerifyEmail(ctx context.Context, tokenRaw string) error {
	user, err := s.users.GetByVerifyTokenHash(ctx, hashToken(tokenRaw))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidVerifyToken
		}
		return err
	}

	if user.VerifyTokenExp == nil || user.VerifyTokenExp.Before(time.Now()) {
		return ErrInvalidVerifyToken
	}

	user.IsVerified = true
	user.VerifyTokenHash = ""
	user.VerifyTokenExp = nil
	return s.users.Update(ctx, user)
}

// ForgotPassword always succeeds from the caller's perspective so the endpoint
// cannot be used to probe which emails are registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	resetRaw, resetHash, err := generateOpaqueToken()
	if err != nil {
		return err
	}
	exp := time.Now().Add(s.resetTTL)

	user.ResetTokenHash = resetHash
	user.ResetTokenExp = &exp
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, resetRaw); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("reset mail not sent")
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, tokenRaw, newPassword string) error {
	user, err := s.users.GetByResetTokenHash(ctx, hashToken(tokenRaw))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if user.ResetTokenExp == nil || user.ResetTokenExp.Before(time.Now()) {
		return ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashed)
	user.ResetTokenHash = ""
	user.ResetTokenExp = nil
	// Password changed: kill the live refresh chain too.
	user.RefreshToken = ""
	return s.users.Update(ctx, user)
}

func generateOpaqueToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
