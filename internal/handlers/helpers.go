package handlers

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/logger"
	"quicksell/internal/pagination"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get("userID")
	if !exists {
		return 0, apperrors.ErrUnauthorized
	}
	return userID.(uint), nil
}

// viewerID returns the authenticated user ID, or 0 for anonymous requests.
func viewerID(c *gin.Context) uint {
	id, err := getUserID(c)
	if err != nil {
		return 0
	}
	return id
}

// requestURL reconstructs the absolute URL of the current request. When
// baseURL is set it replaces the scheme and host the client used.
func requestURL(c *gin.Context, baseURL string) *url.URL {
	if baseURL != "" {
		if u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + c.Request.URL.RequestURI()); err == nil {
			return u
		}
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: c.Request.URL.RawQuery,
	}
}

// pageRequest reads the page query parameter for the paginated chat endpoints.
func pageRequest(c *gin.Context, pageSize int, baseURL string) (pagination.Request, error) {
	page, ok := pagination.ParsePage(c.Request.URL.Query())
	if !ok {
		return pagination.Request{}, apperrors.WithMessage(apperrors.ErrInvalidQuery, "page: must be an integer greater than zero")
	}
	return pagination.Request{Page: page, PageSize: pageSize, URL: requestURL(c, baseURL)}, nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrInternalServer.Code,
			"message": apperrors.ErrInternalServer.Message,
		},
	})
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
