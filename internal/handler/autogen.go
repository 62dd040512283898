package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// StartAutogen godoc
// @Summary      Enable auto-generation for a category
// @Description  Persists the enabled flag; the schedule resumes from the last recorded run
// @Tags         autogen
// @Produce      json
// @Param        category  path  string  true  "Signal category (dashboard, scalping, onchain)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/autogen/{category}/start [post]
func (h *Handler) StartAutogen(c *gin.Context) {
	if h.autogen == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auto-generation scheduler unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.start-autogen")
	defer span.End()

	category, ok := categoryParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("category", string(category)))

	state, err := h.autogen.Enable(ctx, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category":    category,
		"enabled":     state.Enabled,
		"last_run_at": state.LastRunAt,
	})
}

// StopAutogen godoc
// @Summary      Disable auto-generation for a category
// @Tags         autogen
// @Produce      json
// @Param        category  path  string  true  "Signal category (dashboard, scalping, onchain)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/autogen/{category}/stop [post]
func (h *Handler) StopAutogen(c *gin.Context) {
	if h.autogen == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auto-generation scheduler unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.stop-autogen")
	defer span.End()

	category, ok := categoryParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("category", string(category)))

	state, err := h.autogen.Disable(ctx, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category":    category,
		"enabled":     state.Enabled,
		"last_run_at": state.LastRunAt,
	})
}

// AutogenStatus godoc
// @Summary      Get the auto-generation schedule for a category
// @Description  Includes the countdown to the next run; zero when disabled
// @Tags         autogen
// @Produce      json
// @Param        category  path  string  true  "Signal category (dashboard, scalping, onchain)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/autogen/{category}/status [get]
func (h *Handler) AutogenStatus(c *gin.Context) {
	if h.autogen == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auto-generation scheduler unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.autogen-status")
	defer span.End()

	category, ok := categoryParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("category", string(category)))

	state, until, err := h.autogen.Status(ctx, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category":             category,
		"enabled":              state.Enabled,
		"last_run_at":          state.LastRunAt,
		"next_run_in_seconds":  int64(until.Seconds()),
		"interval_in_progress": until > 0,
	})
}
