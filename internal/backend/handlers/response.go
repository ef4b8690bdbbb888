package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"UpWatch/internal/backend/services"
	"UpWatch/internal/backend/storage"
)

// SuccessResponse builds the success JSON envelope.
func SuccessResponse(message string, data interface{}) gin.H {
	response := gin.H{
		"success":   true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	if data != nil {
		response["data"] = data
	}

	return response
}

// ErrorResponse builds the error JSON envelope.
func ErrorResponse(code string, message string) gin.H {
	return gin.H{
		"success":   false,
		"error":     code,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}
}

// writeError maps service and storage errors onto boundary responses:
// validation/access/not-found are 4xx, everything else is a store failure.
func (h *Handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", err.Error()))
	case errors.Is(err, services.ErrAccessDenied):
		c.JSON(http.StatusForbidden, ErrorResponse("forbidden", "Caller is not allowed to perform this operation"))
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse("not_found", "Monitor not found"))
	case errors.Is(err, storage.ErrNotClaimed):
		c.JSON(http.StatusConflict, ErrorResponse("not_claimed", "Monitor holds no claim to close"))
	case errors.Is(err, storage.ErrAlreadyClaimed):
		c.JSON(http.StatusConflict, ErrorResponse("already_claimed", "Monitor is already being checked"))
	default:
		h.logger.Error("request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, ErrorResponse("store_error", "Operation failed"))
	}
}
