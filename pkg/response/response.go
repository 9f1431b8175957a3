package response

import (
	"errors"
	"net/http"

	"inapppay/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID echoes the request id back to the caller.
const HeaderRequestID = "X-Request-ID"

// Envelope is the body every backend endpoint answers with.
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// OK sends a 200 success envelope.
func OK(c *gin.Context, message string, data interface{}) {
	c.Header(HeaderRequestID, getRequestID(c))
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error envelope. An *apperror.AppError anywhere in the chain
// selects the status and code, otherwise the response is a 500.
func Error(c *gin.Context, err error) {
	c.Header(HeaderRequestID, getRequestID(c))

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Envelope{
			Success:   false,
			Error:     appErr.Message,
			ErrorCode: appErr.Code,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, Envelope{
		Success:   false,
		Error:     "Internal server error",
		ErrorCode: "UNKNOWN_ERROR",
	})
}

// getRequestID retrieves request ID from context, or generates one.
func getRequestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	id := uuid.New().String()
	c.Set("request_id", id)
	return id
}
