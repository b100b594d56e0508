package billing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReportExporter uploads a settlement report to external storage.
type ReportExporter interface {
	Export(ctx context.Context, report *SettlementReport) (string, error)
}

// Handler handles HTTP requests for settlement.
type Handler struct {
	settler  *Settler
	recorder *Recorder
	exporter ReportExporter // nil when export is not configured
	logger   *zap.Logger
}

// NewHandler creates a new billing handler.
func NewHandler(settler *Settler, recorder *Recorder, exporter ReportExporter, logger *zap.Logger) *Handler {
	return &Handler{
		settler:  settler,
		recorder: recorder,
		exporter: exporter,
		logger:   logger,
	}
}

// RegisterRoutes registers the billing routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	billing := r.Group("/billing")
	{
		billing.GET("/settlement", h.GetSettlement)
	}
}

// GetSettlement returns the revenue split for a module over a time window.
//
//	@Summary		Settlement report
//	@Description	Aggregate usage revenue for a module over [start, end) and split it between developer and platform
//	@Tags			Billing
//	@Produce		json
//	@Param			module_id	query		string	false	"Module ID (defaults to \"default\")"
//	@Param			start		query		string	true	"Window start (RFC 3339)"
//	@Param			end			query		string	true	"Window end (RFC 3339)"
//	@Param			export		query		bool	false	"Also upload the report to the settlement bucket"
//	@Success		200			{object}	SettlementReport
//	@Failure		400			{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/billing/settlement [get]
func (h *Handler) GetSettlement(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start time"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end time"})
		return
	}

	report, err := h.settler.Settle(c.Request.Context(), c.Query("module_id"), start, end)
	if err != nil {
		if errors.Is(err, ErrInvalidWindow) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window start must not be after window end"})
			return
		}
		h.logger.Error("settlement failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement failed"})
		return
	}

	if c.Query("export") == "true" && h.exporter != nil {
		if key, err := h.exporter.Export(c.Request.Context(), report); err != nil {
			h.logger.Error("settlement export failed", zap.Error(err))
		} else {
			c.Header("X-Settlement-Export-Key", key)
		}
	}

	c.JSON(http.StatusOK, report)
}
