package response

import (
	"net/http"

	apperrors "github.com/clusterhub/server/internal/shared/errors"
	"github.com/gin-gonic/gin"
)

// Error renders err as a JSON error body. AppErrors keep their code and
// status, anything else becomes a 500 without leaking the message.
func Error(c *gin.Context, err error) {
	if appErr, ok := apperrors.As(err); ok {
		if appErr.StatusCode >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}

	_ = c.Error(err)
	status := apperrors.GetStatusCode(err)
	code := "INTERNAL_ERROR"
	message := "internal error"
	if status != http.StatusInternalServerError {
		code = http.StatusText(status)
		message = err.Error()
	}
	c.JSON(status, apperrors.ErrorResponse{
		Error: apperrors.ErrorDetail{Code: code, Message: message},
	})
}

// BadRequest sends a 400 validation error, typically for binding failures.
func BadRequest(c *gin.Context, message string) {
	Error(c, apperrors.Validation("", message))
}

// Unauthorized sends a 401 response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, apperrors.Unauthorized(message))
}

// NotFound sends a 404 response for the named resource.
func NotFound(c *gin.Context, resource string) {
	Error(c, apperrors.NotFound("", resource))
}
