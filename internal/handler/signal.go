package handler

import (
	"net/http"
	"strings"

	"signal-tracker/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

func categoryParam(c *gin.Context) (domain.Category, bool) {
	category := domain.Category(strings.ToLower(strings.TrimSpace(c.Param("category"))))
	if !category.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                "unsupported category: " + string(category),
			"supported_categories": domain.Categories,
		})
		return "", false
	}
	return category, true
}

// GetSignals godoc
// @Summary      Get the active signals for a category
// @Description  Returns the current active set, completed entries included until the next generation sweep
// @Tags         signals
// @Produce      json
// @Param        category  path  string  true  "Signal category (dashboard, scalping, onchain)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/signals/{category} [get]
func (h *Handler) GetSignals(c *gin.Context) {
	if h.signalService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signals")
	defer span.End()

	category, ok := categoryParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("category", string(category)))

	signals, err := h.signalService.ActiveSignals(ctx, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category, "signals": signals})
}

// GetCompletedSignals godoc
// @Summary      Get the completed history for a category
// @Description  Returns completed records, oldest first
// @Tags         signals
// @Produce      json
// @Param        category  path  string  true  "Signal category (dashboard, scalping, onchain)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/signals/{category}/completed [get]
func (h *Handler) GetCompletedSignals(c *gin.Context) {
	if h.signalService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-completed-signals")
	defer span.End()

	category, ok := categoryParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("category", string(category)))

	records, err := h.signalService.CompletedSignals(ctx, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category, "completed": records})
}

// GenerateSignals godoc
// @Summary      Run one generation cycle for a category
// @Description  Snapshots prices, proposes candidates and merges them over the surviving active set
// @Tags         signals
// @Produce      json
// @Param        category  path  string  true  "Signal category (dashboard, scalping, onchain)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/signals/{category}/generate [post]
func (h *Handler) GenerateSignals(c *gin.Context) {
	if h.signalService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.generate-signals")
	defer span.End()

	category, ok := categoryParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("category", string(category)))

	signals, generated, err := h.signalService.GenerateCategory(ctx, category)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category":  category,
		"generated": generated,
		"signals":   signals,
	})
}
