package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/services"
	"github.com/temcen/affinity/pkg/models"
)

type UserHandler struct {
	logger   *logrus.Logger
	profiles services.ProfileServiceInterface
}

func NewUserHandler(logger *logrus.Logger, profiles services.ProfileServiceInterface) *UserHandler {
	return &UserHandler{
		logger:   logger,
		profiles: profiles,
	}
}

// PreferencesResponse is the structured and text preference analysis of one user
type PreferencesResponse struct {
	UserID      string                    `json:"user_id"`
	Summary     *models.PreferenceSummary `json:"summary"`
	Description string                    `json:"description"`
}

// queryInt returns the integer query parameter, or fallback when it is absent or malformed
func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return value
}

func (h *UserHandler) GetNeighbors(c *gin.Context) {
	userID := c.Param("userId")
	k := queryInt(c, "k", 0)
	minCommonItems := queryInt(c, "min_common_items", -1)

	neighbors, err := h.profiles.Neighbors(c.Request.Context(), userID, k, minCommonItems)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"neighbors": neighbors,
		"count":     len(neighbors),
	})
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.profiles.Profile(c.Request.Context(), c.Param("userId"), queryInt(c, "k", 0))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) GetPreferences(c *gin.Context) {
	userID := c.Param("userId")

	summary, err := h.profiles.Summarize(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, PreferencesResponse{
		UserID:      userID,
		Summary:     summary,
		Description: summary.Text(),
	})
}
