package handlers

import (
	"dsatracker/internal/apperrors"
	"dsatracker/internal/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps err to its status and a client-safe message. Only
// unexpected failures are logged.
func writeError(c *gin.Context, action string, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error("Failed to "+action,
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()))
	}
	c.JSON(status, gin.H{"success": false, "error": apperrors.PublicMessage(err)})
}

func badPayload(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request payload"})
}
