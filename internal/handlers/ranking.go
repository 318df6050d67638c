package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/services"
	"github.com/temcen/affinity/pkg/models"
)

type RankingHandler struct {
	logger    *logrus.Logger
	ranking   services.RankingServiceInterface
	validator *validator.Validate
}

func NewRankingHandler(logger *logrus.Logger, ranking services.RankingServiceInterface) *RankingHandler {
	return &RankingHandler{
		logger:    logger,
		ranking:   ranking,
		validator: validator.New(),
	}
}

// Rank orders the request candidates for one user
func (h *RankingHandler) Rank(c *gin.Context) {
	var req models.RankingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	result, err := h.ranking.Rank(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RankBatch ranks up to 50 requests. Per-request failures are reported inline.
func (h *RankingHandler) RankBatch(c *gin.Context) {
	var batch models.BatchRankingRequest
	if err := c.ShouldBindJSON(&batch); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")
		return
	}

	if err := h.validator.Struct(&batch); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	entries := h.ranking.RankBatch(c.Request.Context(), batch.Requests)

	h.logger.WithFields(logrus.Fields{
		"requests": len(batch.Requests),
	}).Debug("Batch ranking completed")

	c.JSON(http.StatusOK, models.BatchRankingResponse{Results: entries})
}
