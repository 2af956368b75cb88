package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medichat/internal/middleware"
	"medichat/internal/pkg/response"
	"medichat/internal/repository"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers chat routes under a cookie-authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/chat")
	{
		g.POST("/save", h.Save)
		g.GET("/history", h.History)
		g.POST("/delete", h.Delete)
	}
}

func (h *Handler) Save(c *gin.Context) {
	userID := middleware.UserID(c)

	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Prompt and response are required")
		return
	}

	session, isNew, err := h.service.SaveMessage(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "SAVE_FAILED", "Error saving chat")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"sessionId": session.SessionID,
		"isNew":     isNew,
	})
}

func (h *Handler) History(c *gin.Context) {
	userID := middleware.UserID(c)

	views, err := h.service.ListSessions(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_ERROR", "Error fetching chat history")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": views})
}

func (h *Handler) Delete(c *gin.Context) {
	userID := middleware.UserID(c)

	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "sessionId is required")
		return
	}

	if err := h.service.DeleteSession(c.Request.Context(), userID, req.SessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Chat session not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "DELETE_FAILED", "Error deleting chat")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Chat deleted successfully"})
}
