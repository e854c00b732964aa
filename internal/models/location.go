package models

// Default location used when a listing or profile does not provide one.
const (
	DefaultLatitude  = 55.751426
	DefaultLongitude = 37.618879
	DefaultAddress   = "The Kremlin"
)

// Location is a physical place shared by listings and profiles.
// A coordinate pair is stored once.
type Location struct {
	Base
	Latitude  float64 `gorm:"uniqueIndex:idx_locations_coordinates;not null" json:"latitude"`
	Longitude float64 `gorm:"uniqueIndex:idx_locations_coordinates;not null" json:"longitude"`
	Address   string  `gorm:"size:1024" json:"address"`
}
