package models

// User is an account; its public profile fields live on the same row.
type User struct {
	Base
	Public
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	// RefreshTokenHash is the SHA-256 of the last issued refresh token.
	RefreshTokenHash string    `json:"-"`
	FullName         string    `gorm:"size:100" json:"full_name"`
	About            string    `json:"about"`
	Rating           int       `gorm:"default:0" json:"rating"`
	Online           bool      `gorm:"default:true" json:"online"`
	IsActive         bool      `gorm:"default:true" json:"-"`
	LocationID       *uint     `json:"-"`
	Location         *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`
}
