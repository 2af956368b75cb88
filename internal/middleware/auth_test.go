package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medichat/internal/pkg/token"
)

func setupAuthRouter(issuer *token.Issuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Auth(issuer), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserID(c)})
	})
	return r
}

func TestAuthNoCookie(t *testing.T) {
	issuer := token.New("access", "refresh", time.Hour, time.Hour)
	r := setupAuthRouter(issuer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestAuthBadToken(t *testing.T) {
	issuer := token.New("access", "refresh", time.Hour, time.Hour)
	r := setupAuthRouter(issuer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "garbage"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthExpiredToken(t *testing.T) {
	expired := token.New("access", "refresh", -time.Minute, time.Hour)
	tok, err := expired.IssueAccess(1)
	require.NoError(t, err)

	r := setupAuthRouter(token.New("access", "refresh", time.Hour, time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthValidToken(t *testing.T) {
	issuer := token.New("access", "refresh", time.Hour, time.Hour)
	tok, err := issuer.IssueAccess(42)
	require.NoError(t, err)

	r := setupAuthRouter(issuer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":42`)
}

func TestAuthRefreshCookieIsNotEnough(t *testing.T) {
	issuer := token.New("access", "refresh", time.Hour, time.Hour)
	refresh, err := issuer.IssueRefresh(1)
	require.NoError(t, err)

	r := setupAuthRouter(issuer)

	// A refresh token in the access slot must not authenticate.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: refresh})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
