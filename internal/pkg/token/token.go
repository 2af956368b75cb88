package token

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure. Signature, expiry and
// malformed-token cases are deliberately indistinguishable to the caller.
var ErrInvalidToken = errors.New("invalid token")

// Issuer mints and verifies the access/refresh credential pair. Access tokens
// are stateless; refresh tokens additionally have to match the single value
// stored on the user record, which is the auth service's concern.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

type Claims struct {
	UserID int64 `json:"user_id"`
	jwtlib.RegisteredClaims
}

func New(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (s *Issuer) IssueAccess(userID int64) (string, error) {
	return sign(userID, s.accessSecret, s.accessTTL)
}

func (s *Issuer) IssueRefresh(userID int64) (string, error) {
	return sign(userID, s.refreshSecret, s.refreshTTL)
}

// VerifyAccess checks signature and expiry only. No storage lookup, so it is
// safe on every request and on the websocket handshake.
func (s *Issuer) VerifyAccess(tokenStr string) (int64, error) {
	return verify(tokenStr, s.accessSecret)
}

func (s *Issuer) VerifyRefresh(tokenStr string) (int64, error) {
	return verify(tokenStr, s.refreshSecret)
}

func sign(userID int64, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
}

func verify(tokenStr string, secret []byte) (int64, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == 0 {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}
