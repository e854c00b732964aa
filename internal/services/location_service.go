package services

import (
	"gorm.io/gorm"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/models"
)

// locationService deduplicates locations by coordinate pair.
type locationService struct{}

// NewLocationService creates a new LocationServicer.
func NewLocationService() LocationServicer {
	return &locationService{}
}

// Resolve returns the location stored for the coordinate pair, creating it
// on first use. Missing coordinates resolve to the default location. The
// address of an existing row is kept.
func (s *locationService) Resolve(tx *gorm.DB, latitude, longitude *float64, address string) (*models.Location, error) {
	if (latitude == nil) != (longitude == nil) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "latitude and longitude must be provided together")
	}

	lat, lon := models.DefaultLatitude, models.DefaultLongitude
	if latitude == nil {
		address = models.DefaultAddress
	} else {
		lat, lon = *latitude, *longitude
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "coordinates out of range")
	}

	var location models.Location
	err := tx.Where("latitude = ? AND longitude = ?", lat, lon).
		Attrs(models.Location{Latitude: lat, Longitude: lon, Address: address}).
		FirstOrCreate(&location).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &location, nil
}
