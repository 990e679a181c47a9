// Package respond writes the JSON envelope shared by every API endpoint:
// {"ok":true,"data":...,"meta":...} on success and {"ok":false,"message":...} on failure.
package respond

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	OK      bool        `json:"ok"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK writes a success envelope.
func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{OK: true, Data: data})
}

// OKMeta writes a success envelope with a meta block.
func OKMeta(c *gin.Context, status int, data, meta interface{}) {
	c.JSON(status, Envelope{OK: true, Data: data, Meta: meta})
}

// Fail aborts the request with an error envelope.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{OK: false, Message: message})
}

// FailDetail aborts with an error envelope carrying internal error text.
func FailDetail(c *gin.Context, status int, message, detail string) {
	c.AbortWithStatusJSON(status, Envelope{OK: false, Message: message, Error: detail})
}
