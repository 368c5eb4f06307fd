package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/utils"
	"github.com/sirupsen/logrus"
)

// ErrorHandler renders the last error recorded with c.Error as the JSON error
// envelope. Anything that is not an ApiError becomes a 500.
func ErrorHandler(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var apiErr *utils.ApiError
		if errors.As(last.Err, &apiErr) {
			if apiErr.StatusCode >= http.StatusInternalServerError {
				log.WithField("request_id", c.GetString(requestIDKey)).WithError(last.Err).Error(apiErr.Message)
			}
			utils.RespondError(c, apiErr)
			return
		}

		log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"path":       c.Request.URL.Path,
		}).WithError(last.Err).Error("unhandled error")
		utils.RespondError(c, utils.Internal("Internal server error"))
	}
}

// Recovery turns a panic into the 500 error envelope.
func Recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"panic":      recovered,
		}).Error("panic recovered")
		utils.RespondError(c, utils.Internal("Internal server error"))
	})
}
