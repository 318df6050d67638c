package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/middleware"
	"github.com/temcen/affinity/internal/services"
)

type AdminHandler struct {
	logger   *logrus.Logger
	loader   services.ModelLoaderInterface
	exporter services.ExporterInterface
}

func NewAdminHandler(logger *logrus.Logger, loader services.ModelLoaderInterface, exporter services.ExporterInterface) *AdminHandler {
	return &AdminHandler{
		logger:   logger,
		loader:   loader,
		exporter: exporter,
	}
}

// Reload rebuilds the interaction model from the configured source
func (h *AdminHandler) Reload(c *gin.Context) {
	report, err := h.loader.Load(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"records":    report.Records,
		"subject":    middleware.GetSubjectFromContext(c),
		"request_id": middleware.GetRequestID(c),
	}).Info("Interaction model reloaded on request")

	c.JSON(http.StatusOK, report)
}

// Export publishes every profile. A partial failure returns 502 together with the report.
func (h *AdminHandler) Export(c *gin.Context) {
	report, err := h.exporter.Export(c.Request.Context())
	if err != nil {
		if report == nil {
			respondServiceError(c, h.logger, err)
			return
		}

		h.logger.WithError(err).WithField("export_id", report.ID).Warn("Profile export incomplete")
		c.JSON(http.StatusBadGateway, gin.H{
			"error": gin.H{
				"code":    "EXPORT_INCOMPLETE",
				"message": "One or more export sinks failed",
			},
			"report": report,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
