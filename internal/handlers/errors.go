package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/finops-api/internal/services"
	"github.com/sjperalta/finops-api/pkg/logger"
)

// statusFor maps service error kinds onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, services.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidState), errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Server-side failures are logged
// and their details are not echoed to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if !services.IsClientError(err) {
		_ = c.Error(err)
		logger.FromContext(c.Request.Context()).Error("Request failed",
			"path", c.FullPath(),
			"error", err.Error(),
		)
		message := "Error interno del servidor"
		if status == http.StatusServiceUnavailable {
			message = "Servicio no disponible, intente nuevamente"
		}
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
