package handler

import (
	"net/http"

	"signal-tracker/internal/job"
	"signal-tracker/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer        trace.Tracer
	signalService *service.SignalService
	autogen       *job.AutogenScheduler
	hub           *LiveHub
}

func New(
	tracer trace.Tracer,
	signalService *service.SignalService,
	autogen *job.AutogenScheduler,
	hub *LiveHub,
) *Handler {
	return &Handler{
		tracer:        tracer,
		signalService: signalService,
		autogen:       autogen,
		hub:           hub,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/prices", h.GetAllPrices)
	r.GET("/api/prices/:symbol", h.GetPrice)
	r.GET("/api/signals/:category", h.GetSignals)
	r.GET("/api/signals/:category/completed", h.GetCompletedSignals)
	r.POST("/api/signals/:category/generate", h.GenerateSignals)
	r.POST("/api/autogen/:category/start", h.StartAutogen)
	r.POST("/api/autogen/:category/stop", h.StopAutogen)
	r.GET("/api/autogen/:category/status", h.AutogenStatus)
	r.GET("/ws", h.ServeWS)
}

// Health godoc
// @Summary      Service health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
