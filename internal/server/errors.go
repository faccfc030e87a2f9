package server

import (
	"errors"
	"net/http"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/services/export"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error onto an HTTP status code.
func statusFor(err error) int {
	var (
		vErr   *apperr.ValidationError
		cfgErr *apperr.ConfigurationError
		apiErr *apperr.APIError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, export.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, export.ErrExportAlreadyRunning), errors.Is(err, export.ErrNoRunningExport):
		return http.StatusConflict
	case errors.As(err, &cfgErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error, fallback string) {
	c.JSON(statusFor(err), gin.H{
		"error":   apperr.Message(err, fallback),
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
