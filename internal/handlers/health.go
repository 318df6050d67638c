package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/services"
)

type HealthHandler struct {
	logger        *logrus.Logger
	healthService services.HealthServiceInterface
	model         services.ModelStatsProvider
}

func NewHealthHandler(logger *logrus.Logger, healthService services.HealthServiceInterface, model services.ModelStatsProvider) *HealthHandler {
	return &HealthHandler{
		logger:        logger,
		healthService: healthService,
		model:         model,
	}
}

// ReadinessResponse reports whether a model with users is being served.
type ReadinessResponse struct {
	Ready bool                `json:"ready"`
	Model services.ModelStats `json:"model"`
}

// Check reports dependency health together with the served model's size.
func (h *HealthHandler) Check(c *gin.Context) {
	status := h.healthService.CheckHealth(c.Request.Context())

	var httpStatus int
	switch status.Status {
	case "healthy", "degraded":
		httpStatus = http.StatusOK
	case "unhealthy":
		httpStatus = http.StatusServiceUnavailable
	default:
		httpStatus = http.StatusInternalServerError
	}

	c.JSON(httpStatus, status)
}

// Ready answers 503 until an interaction model with at least one user has been loaded.
func (h *HealthHandler) Ready(c *gin.Context) {
	stats := h.model.Stats()
	resp := ReadinessResponse{Ready: stats.Users > 0, Model: stats}

	if !resp.Ready {
		h.logger.WithField("records", stats.Records).Debug("Readiness checked before a model was loaded")
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
