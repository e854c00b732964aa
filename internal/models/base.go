package models

import (
	"time"

	"quicksell/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all tables. The sequential ID stays
// internal; anything addressable from outside also embeds Public.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public carries the opaque external identifier of a record.
type Public struct {
	UUID string `gorm:"type:uuid;uniqueIndex;not null" json:"-"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (p *Public) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.New()
	}
	return nil
}

// Token returns the URL-safe form of the external identifier.
func (p Public) Token() string {
	return uuid.Token(p.UUID)
}
