package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/temcen/affinity/internal/validation"
)

const maxNeighborQuery = 200

// ValidationMiddleware checks request bodies and query parameters before they reach handlers
type ValidationMiddleware struct {
	validator *validation.SchemaValidator
}

func NewValidationMiddleware(validator *validation.SchemaValidator) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validator,
	}
}

// ValidateRankingRequest validates single ranking requests against the ranking-request schema
func (vm *ValidationMiddleware) ValidateRankingRequest() gin.HandlerFunc {
	return vm.validateRequestBody(vm.validator.ValidateRankingRequest)
}

func (vm *ValidationMiddleware) validateRequestBody(validate func(interface{}) *validation.ValidationResult) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			vm.sendValidationError(c, "BODY_READ_ERROR", "Failed to read request body", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		// Restore request body for downstream handlers
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		if len(bytes.TrimSpace(bodyBytes)) == 0 {
			vm.sendValidationError(c, "EMPTY_BODY", "Request body is required", nil)
			return
		}

		if !json.Valid(bodyBytes) {
			vm.sendValidationError(c, "INVALID_JSON", "Request body must be valid JSON", nil)
			return
		}

		if result := validate(bodyBytes); !result.Valid {
			vm.sendValidationErrors(c, result)
			return
		}

		c.Next()
	}
}

// ValidateQueryParams checks the neighbor and profile query parameters
func (vm *ValidationMiddleware) ValidateQueryParams() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := &validation.ValidationResult{Valid: true}

		if k := c.Query("k"); k != "" && !isIntInRange(k, 1, maxNeighborQuery) {
			result.Errors = append(result.Errors, validation.ValidationError{
				Field:   "k",
				Message: "k must be an integer between 1 and " + strconv.Itoa(maxNeighborQuery),
				Code:    "INVALID_QUERY_PARAM",
				Value:   k,
			})
		}

		if m := c.Query("min_common_items"); m != "" && !isIntInRange(m, 0, maxNeighborQuery) {
			result.Errors = append(result.Errors, validation.ValidationError{
				Field:   "min_common_items",
				Message: "min_common_items must be a non-negative integer",
				Code:    "INVALID_QUERY_PARAM",
				Value:   m,
			})
		}

		if len(result.Errors) > 0 {
			result.Valid = false
			vm.sendValidationErrors(c, result)
			return
		}

		c.Next()
	}
}

// ValidateHeaders requires a JSON content type on requests with a body
func (vm *ValidationMiddleware) ValidateHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		contentType := c.GetHeader("Content-Type")
		if !strings.Contains(contentType, "application/json") {
			vm.sendValidationErrors(c, &validation.ValidationResult{
				Errors: []validation.ValidationError{{
					Field:   "Content-Type",
					Message: "Content-Type must be application/json",
					Code:    "INVALID_HEADER",
					Value:   contentType,
				}},
			})
			return
		}

		c.Next()
	}
}

func isIntInRange(value string, min, max int) bool {
	num, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	return num >= min && num <= max
}

func (vm *ValidationMiddleware) sendValidationError(c *gin.Context, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"details":   details,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": GetRequestID(c),
			"path":      c.Request.URL.Path,
		},
	})
}

func (vm *ValidationMiddleware) sendValidationErrors(c *gin.Context, result *validation.ValidationResult) {
	vm.sendValidationError(c, "VALIDATION_FAILED", "Request validation failed", map[string]interface{}{
		"validationErrors": result.Errors,
		"fieldErrors":      result.FieldErrors(),
	})
}
