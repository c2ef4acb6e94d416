package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/powermaps/contact/common"
)

// ErrorHandler renders the last error attached to the context as
// {"error": ..., "fields": ...} with the status the error carries.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		apiErr := common.AsAPIError(c.Errors.Last().Err)
		c.AbortWithStatusJSON(apiErr.Status, apiErr)
	}
}
