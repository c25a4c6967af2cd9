package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cobranca/billing-backoffice/internal/domainerr"
	"github.com/cobranca/billing-backoffice/internal/telemetry"
)

// respondError maps the domain failure taxonomy onto HTTP. Unknown errors
// become opaque 500s so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch domainerr.KindOf(err) {
	case domainerr.KindNotFound:
		status = http.StatusNotFound
	case domainerr.KindInvalidInput, domainerr.KindInvalidTransition:
		status = http.StatusUnprocessableEntity
	case domainerr.KindConflict:
		status = http.StatusConflict
	case domainerr.KindTransientIntegration:
		status = http.StatusServiceUnavailable
	case domainerr.KindDefinitiveIntegration:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		telemetry.Logger.Error("Unhandled error", zap.Error(err))
		c.JSON(status, gin.H{"message": "internal server error", "error": "internal_error"})
		return
	}

	c.JSON(status, gin.H{"message": err.Error(), "error": domainerr.CodeOf(err)})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "error": "invalid_request"})
}
