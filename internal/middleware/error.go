package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/logger"
)

// errorBody is the {"error":{"code","message"}} envelope shared with the handlers.
func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

// abortWithAppError stops the chain with the AppError's status and envelope.
func abortWithAppError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode, errorBody(appErr.Code, appErr.Message))
}

// ErrorHandler returns a Gin middleware that converts errors set on the Gin
// context into JSON error responses. Bind errors become INVALID_INPUT,
// AppErrors keep their code, anything else is logged and reported as
// INTERNAL_ERROR. Responses already written by a handler are left alone.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		if last.IsType(gin.ErrorTypeBind) {
			c.JSON(apperrors.ErrInvalidInput.StatusCode,
				errorBody(apperrors.ErrInvalidInput.Code, last.Err.Error()))
			return
		}

		var appErr *apperrors.AppError
		if errors.As(last.Err, &appErr) {
			if appErr.Internal != nil {
				logger.Get().Errorw("app error",
					"code", appErr.Code,
					"message", appErr.Message,
					"internal", appErr.Internal.Error(),
					"route", c.FullPath(),
				)
			}
			c.JSON(appErr.StatusCode, errorBody(appErr.Code, appErr.Message))
			return
		}

		logger.Get().Errorw("unexpected error",
			"error", last.Err.Error(),
			"route", c.FullPath(),
			"method", c.Request.Method,
		)
		c.JSON(apperrors.ErrInternalServer.StatusCode,
			errorBody(apperrors.ErrInternalServer.Code, apperrors.ErrInternalServer.Message))
	}
}
