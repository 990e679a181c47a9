package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dealflow/dealflow-api/internal/apperr"
	"github.com/dealflow/dealflow-api/pkg/logger"
	"github.com/dealflow/dealflow-api/pkg/respond"
)

// ErrorHandler turns the last error a handler attached with c.Error into the
// failure envelope. Classified errors keep their message; anything else is a
// 500 whose detail is exposed only outside production.
func ErrorHandler(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := apperr.Status(err)
		if msg := apperr.Message(err); msg != "" {
			respond.Fail(c, status, msg)
			return
		}
		logger.With("method", c.Request.Method, "path", c.FullPath()).Errorf("request failed: %v", err)
		if production {
			respond.Fail(c, status, "internal server error")
			return
		}
		respond.FailDetail(c, status, "internal server error", err.Error())
	}
}
