package medical

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medichat/internal/middleware"
	"medichat/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/medical", h.Query)
}

// Query serves POST /medical. When the literature lookup finds nothing or is
// unreachable, the response carries shouldFallback so the caller can route
// the prompt to a general-purpose answer instead.
func (h *Handler) Query(c *gin.Context) {
	userID := middleware.UserID(c)

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "prompt is required")
		return
	}

	result, err := h.service.Answer(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoResults):
			c.JSON(http.StatusNotFound, gin.H{
				"success":        false,
				"error":          gin.H{"code": "NO_RESULTS", "message": "No relevant medical articles found"},
				"shouldFallback": true,
			})
		case errors.Is(err, ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success":        false,
				"error":          gin.H{"code": "UNAVAILABLE", "message": "Medical service unavailable"},
				"shouldFallback": true,
			})
		default:
			response.Error(c, http.StatusInternalServerError, "MEDICAL_FAILED", "Error handling medical query")
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}
