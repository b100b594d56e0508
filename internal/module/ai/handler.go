package ai

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/capecontrol/server/internal/module/billing/quota"
	"github.com/capecontrol/server/internal/utils/middleware"
)

// Handler handles HTTP requests for AI queries.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new AI handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the AI routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	ai := r.Group("/ai")
	{
		ai.POST("/query", h.Query)
		ai.GET("/history", h.History)
	}
}

// QueryRequest is the request body for an AI query.
type QueryRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// Query runs one AI query for the authenticated user.
//
//	@Summary		Run AI query
//	@Description	Run one AI query; each successful query is metered for billing
//	@Tags			AI
//	@Accept			json
//	@Produce		json
//	@Param			request	body		QueryRequest	true	"Query prompt"
//	@Success		200		{object}	QueryResult
//	@Failure		400		{object}	map[string]string
//	@Failure		402		{object}	map[string]string
//	@Failure		503		{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/ai/query [post]
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	result, err := h.service.Query(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyPrompt):
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt must not be empty"})
		case errors.Is(err, quota.ErrQuotaExceeded):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "daily free quota exceeded, upgrade to premium for unlimited queries"})
		case errors.Is(err, ErrProviderUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ai provider unavailable, try again later"})
		default:
			h.logger.Error("ai query failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// History returns the caller's recent metered queries.
//
//	@Summary		Query history
//	@Tags			AI
//	@Produce		json
//	@Param			limit	query		int	false	"Max events to return (default 50)"
//	@Success		200		{object}	map[string]interface{}
//	@Security		BearerAuth
//	@Router			/ai/history [get]
func (h *Handler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, err := h.service.History(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("history lookup failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
