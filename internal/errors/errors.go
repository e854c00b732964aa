// Package errors provides custom error types for the quicksell API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target carries the same code, so that errors created
// with Wrap or WithMessage still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound     = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryHasChildren  = &AppError{Code: "CATEGORY_HAS_CHILDREN", Message: "Category has child categories", StatusCode: http.StatusConflict}
	ErrDuplicateCategory    = &AppError{Code: "DUPLICATE_CATEGORY_NAME", Message: "A category with this name already exists", StatusCode: http.StatusConflict}
	ErrInvalidCategory      = &AppError{Code: "INVALID_CATEGORY", Message: "Category does not exist", StatusCode: http.StatusBadRequest}
	ErrNonLeafCategory      = &AppError{Code: "NON_LEAF_CATEGORY", Message: "Listings can only be filed under a category without subcategories", StatusCode: http.StatusBadRequest}
	ErrReservedCategoryName = &AppError{Code: "RESERVED_CATEGORY", Message: "The uncategorized category is reserved", StatusCode: http.StatusBadRequest}
)

// Listing and search errors.
var (
	ErrListingNotFound = &AppError{Code: "LISTING_NOT_FOUND", Message: "Listing not found", StatusCode: http.StatusNotFound}
	ErrInvalidQuery    = &AppError{Code: "INVALID_QUERY", Message: "Invalid query parameters", StatusCode: http.StatusBadRequest}
	ErrNoMatch         = &AppError{Code: "NO_MATCH", Message: "No listings match the query", StatusCode: http.StatusNotFound}
)

// Chat errors.
var (
	ErrChatNotFound       = &AppError{Code: "CHAT_NOT_FOUND", Message: "Chat not found", StatusCode: http.StatusNotFound}
	ErrCannotChatWithSelf = &AppError{Code: "CANNOT_CHAT_WITH_SELF", Message: "Cannot start a chat about your own listing", StatusCode: http.StatusBadRequest}
)

// Storage errors.
var (
	ErrStorageNotConfigured = &AppError{Code: "STORAGE_NOT_CONFIGURED", Message: "Photo storage is not configured", StatusCode: http.StatusServiceUnavailable}
)
