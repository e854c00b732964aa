package testutil

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/models"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertListingStatus reloads a listing and checks its lifecycle state.
func AssertListingStatus(t *testing.T, db *gorm.DB, listingID uint, want models.ListingStatus) {
	t.Helper()

	var listing models.Listing
	if err := db.First(&listing, listingID).Error; err != nil {
		t.Fatalf("failed to reload listing %d: %v", listingID, err)
	}
	if listing.Status != want {
		t.Errorf("expected listing status %s, got %s", want, listing.Status)
	}
}

// AssertCategoryCount checks the number of category rows, sentinel included.
func AssertCategoryCount(t *testing.T, db *gorm.DB, want int64) {
	t.Helper()

	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count categories: %v", err)
	}
	if count != want {
		t.Errorf("expected %d categories, got %d", want, count)
	}
}
