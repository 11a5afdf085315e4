package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Machine-readable error codes carried in every error response.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeAIUnavailable        = "AI_SERVICE_UNAVAILABLE"
	CodeInternal             = "INTERNAL_ERROR"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeRateLimited          = "RATE_LIMITED"
)

// ErrorBody is the inner object of an error response.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse is the envelope {error:{code,message}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Abort writes an error envelope and stops the chain.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// AbortWithDetails is Abort with an extra details object.
func AbortWithDetails(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}})
}

// Recovery turns panics into a logged 500 envelope.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		Abort(c, http.StatusInternalServerError, CodeInternal, "internal server error")
	})
}

// NoRoute answers unknown paths with the error envelope.
func NoRoute(c *gin.Context) {
	Abort(c, http.StatusNotFound, CodeNotFound, "route not found")
}

// BodyLimit caps request bodies at max bytes.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
