package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/capecontrol/server/internal/utils/middleware"
)

// Handler handles authenticated payment requests.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the payment routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/checkout-session", h.CreateCheckoutSession)
		payments.GET("/subscription", h.GetSubscription)
	}
}

// CheckoutSessionRequest is the request body for creating a checkout session.
type CheckoutSessionRequest struct {
	SuccessURL string `json:"success_url" binding:"required,url"`
	CancelURL  string `json:"cancel_url" binding:"required,url"`
}

// CreateCheckoutSession creates a checkout session for the premium plan.
//
//	@Summary		Create checkout session
//	@Description	Create a hosted checkout session for the premium subscription
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CheckoutSessionRequest	true	"Redirect URLs"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/payments/checkout-session [post]
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	sess, err := h.service.CreateCheckoutSession(c.Request.Context(), userID, req.SuccessURL, req.CancelURL)
	if err != nil {
		h.logger.Error("failed to create checkout session",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":   sess.ID,
		"checkout_url": sess.URL,
	})
}

// GetSubscription returns the caller's subscription tier.
//
//	@Summary		Subscription status
//	@Tags			Payments
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/payments/subscription [get]
func (h *Handler) GetSubscription(c *gin.Context) {
	userID := middleware.GetUserID(c)
	tier, err := h.service.GetSubscriptionTier(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load subscription",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tier": string(tier)})
}
