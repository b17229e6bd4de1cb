package controllers

import (
	"net/http"

	"ecoxchange/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EvaluateUpload answers the development evaluator's upload endpoint with a
// classification guessed from the document's filename.
func EvaluateUpload(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile(services.DocumentField)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "message": "multipart field \"document\" is required"})
			return
		}
		result := services.ClassifyDocument(header.Filename)
		logger.Info("document evaluated",
			zap.String("file", header.Filename),
			zap.Int64("size", header.Size),
			zap.String("type", result.CertificateType),
			zap.Stringer("payout", result.Payout))
		c.JSON(http.StatusOK, result)
	}
}
