package response

import (
	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorJSON sends an error JSON response with a human-readable message
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
	})
}

// ErrorCode sends a machine-readable error code. Several endpoints always
// answer 200 with an error body so clients handle one shape.
func ErrorCode(c *gin.Context, statusCode int, code string) {
	c.JSON(statusCode, gin.H{
		"error": code,
	})
}
