package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/middleware"
	"github.com/temcen/affinity/pkg/models"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps service errors onto HTTP statuses. Unclassified errors are logged
// and reported without detail.
func respondServiceError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, models.ErrDataIntegrity):
		respondError(c, http.StatusBadRequest, "DATA_INTEGRITY", err.Error())
	case errors.Is(err, models.ErrProfileMismatch):
		respondError(c, http.StatusConflict, "PROFILE_MISMATCH", err.Error())
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": middleware.GetRequestID(c),
		}).Error("Request failed")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
