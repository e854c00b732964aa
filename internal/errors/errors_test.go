package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapMatchesSentinel(t *testing.T) {
	cause := fmt.Errorf("query failed")
	err := Wrap(ErrListingNotFound, cause)

	if !errors.Is(err, ErrListingNotFound) {
		t.Error("wrapped error should match its sentinel")
	}
	if errors.Is(err, ErrChatNotFound) {
		t.Error("wrapped error should not match another code")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should expose its cause")
	}
	if err.Error() != ErrListingNotFound.Message {
		t.Errorf("cause leaked into message: %q", err.Error())
	}
}

func TestWithMessage(t *testing.T) {
	err := WithMessage(ErrInvalidInput, "latitude out of range")

	if err.Message != "latitude out of range" || err.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected error %+v", err)
	}
	if ErrInvalidInput.Message != "Invalid input" {
		t.Error("sentinel must not be modified")
	}

	var appErr *AppError
	if !errors.As(fmt.Errorf("handler: %w", err), &appErr) || appErr.Code != "INVALID_INPUT" {
		t.Error("expected AppError through fmt wrapping")
	}
}
