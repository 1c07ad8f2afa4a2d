package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API answer
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success wraps data in a successful envelope
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Message: "success",
		Data:    data,
	}
}

// Failure wraps a message and optional details in a failed envelope
func Failure(message string, details interface{}) Response {
	return Response{
		Success: false,
		Message: message,
		Data:    details,
	}
}

// JSON sends a JSON response
func JSON(c *gin.Context, statusCode int, response Response) {
	c.JSON(statusCode, response)
}

// SuccessJSON sends a 200 success envelope
func SuccessJSON(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, Success(data))
}

// ErrorJSON sends a failed envelope without details
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	JSON(c, statusCode, Failure(message, nil))
}

// AbortJSON stops the handler chain with a failed envelope
func AbortJSON(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, Failure(message, nil))
}
