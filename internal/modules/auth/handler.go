package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medichat/internal/middleware"
	"medichat/internal/pkg/response"
)

type Handler struct {
	service      *Service
	cookieSecure bool
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewHandler(service *Service, cookieSecure bool, accessTTL, refreshTTL time.Duration) *Handler {
	return &Handler{
		service:      service,
		cookieSecure: cookieSecure,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

// RegisterRoutes registers the public auth endpoints under /auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth")
	{
		g.POST("/register", h.Register)
		g.POST("/login", h.Login)
		g.POST("/logout", h.Logout)
		g.POST("/refresh-token", h.RefreshToken)
		g.GET("/verify-email", h.VerifyEmail)
		g.POST("/verify-email", h.VerifyEmail)
		g.POST("/forgot-password", h.ForgotPassword)
		g.POST("/reset-password", h.ResetPassword)
	}
}

// RegisterProtectedRoutes registers endpoints that require the access cookie.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/check", h.Check)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			response.Error(c, http.StatusBadRequest, "EMAIL_TAKEN", "User already exists")
			return
		}
		response.Error(c, http.StatusInternalServerError, "REGISTER_FAILED", "Error registering user")
		return
	}

	msg := "User registered successfully. Check your inbox to verify your email."
	if !result.MailSent {
		msg = "User registered, but the verification email could not be sent. Try again later."
	}
	response.Success(c, http.StatusCreated, gin.H{
		"user":    UserPublic{ID: result.User.ID, Email: result.User.Email},
		"message": msg,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
		case errors.Is(err, ErrEmailNotVerified):
			response.Error(c, http.StatusForbidden, "EMAIL_NOT_VERIFIED", "Please verify your email first")
		default:
			response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Error logging in")
		}
		return
	}

	h.setCookie(c, middleware.AccessCookie, result.AccessToken, h.accessTTL)
	h.setCookie(c, middleware.RefreshCookie, result.RefreshToken, h.refreshTTL)

	response.Success(c, http.StatusOK, gin.H{
		"user": UserPublic{ID: result.User.ID, Email: result.User.Email},
	})
}

func (h *Handler) Check(c *gin.Context) {
	user, err := h.service.GetCurrentUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user": UserPublic{ID: user.ID, Email: user.Email},
	})
}

func (h *Handler) Logout(c *gin.Context) {
	refreshRaw, _ := c.Cookie(middleware.RefreshCookie)
	if err := h.service.Logout(c.Request.Context(), refreshRaw); err != nil {
		response.Error(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Error logging out")
		return
	}

	h.clearCookie(c, middleware.AccessCookie)
	h.clearCookie(c, middleware.RefreshCookie)
	response.Success(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	refreshRaw, err := c.Cookie(middleware.RefreshCookie)
	if err != nil || refreshRaw == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid refresh token")
		return
	}

	accessToken, err := h.service.RotateAccess(c.Request.Context(), refreshRaw)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid refresh token")
			return
		}
		response.Error(c, http.StatusInternalServerError, "REFRESH_FAILED", "Error refreshing token")
		return
	}

	h.setCookie(c, middleware.AccessCookie, accessToken, h.accessTTL)
	response.Success(c, http.StatusOK, gin.H{"message": "Access token refreshed"})
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	tok := c.Query("token")
	if tok == "" {
		var req VerifyEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "token is required")
			return
		}
		tok = req.Token
	}

	if err := h.service.VerifyEmail(c.Request.Context(), tok); err != nil {
		if errors.Is(err, ErrInvalidVerifyToken) {
			response.Error(c, http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired verification token")
			return
		}
		response.Error(c, http.StatusInternalServerError, "VERIFY_FAILED", "Error verifying email")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Email verified successfully"})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, http.StatusInternalServerError, "FORGOT_FAILED", "Error processing request")
		return
	}
	// Same response whether or not the account exists.
	response.Success(c, http.StatusOK, gin.H{
		"message": "If that email is registered, a reset link has been sent",
	})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			response.Error(c, http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired reset token")
			return
		}
		response.Error(c, http.StatusInternalServerError, "RESET_FAILED", "Error resetting password")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Password reset successfully"})
}

func (h *Handler) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", h.cookieSecure, true)
}

func (h *Handler) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", "", h.cookieSecure, true)
}
