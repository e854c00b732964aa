package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "quicksell/internal/errors"
)

// AdminKeyHeader carries the key for category tree maintenance endpoints.
const AdminKeyHeader = "X-Admin-Key"

var (
	errAdminNotConfigured = &apperrors.AppError{Code: "ADMIN_NOT_CONFIGURED", Message: "Admin endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
	errInvalidAdminKey    = &apperrors.AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// AdminAuthMiddleware creates a Gin middleware that validates the
// X-Admin-Key header against the configured admin API key. Admin endpoints
// are disabled while no key is configured.
func AdminAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithAppError(c, errAdminNotConfigured)
			return
		}
		key := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			abortWithAppError(c, errInvalidAdminKey)
			return
		}
		c.Next()
	}
}
