package models

import "time"

// ListingStatus is the lifecycle state of a listing.
type ListingStatus int

const (
	ListingStatusDraft ListingStatus = iota
	ListingStatusActive
	ListingStatusSold
	ListingStatusClosed
)

var listingStatusNames = map[ListingStatus]string{
	ListingStatusDraft:  "draft",
	ListingStatusActive: "active",
	ListingStatusSold:   "sold",
	ListingStatusClosed: "closed",
}

func (s ListingStatus) String() string {
	if name, ok := listingStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Listing is an item offered for sale by a seller.
type Listing struct {
	Base
	Public
	Title        string         `gorm:"size:200;not null" json:"title"`
	Description  string         `json:"description"`
	Price        int64          `gorm:"not null;index" json:"price"`
	Quantity     int            `gorm:"not null;default:1" json:"quantity"`
	Sold         int            `gorm:"not null;default:0" json:"sold"`
	Views        int            `gorm:"not null;default:0" json:"views"`
	Status       ListingStatus  `gorm:"not null;default:1;index" json:"status"`
	ConditionNew bool           `gorm:"not null;default:false" json:"condition_new"`
	Properties   map[string]any `gorm:"serializer:json" json:"properties"`
	ExpiresAt    time.Time      `gorm:"not null" json:"date_expires"`
	CategoryID   *uint          `gorm:"index" json:"-"`
	SellerID     uint           `gorm:"not null;index" json:"-"`
	LocationID   *uint          `json:"-"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"-"`
	Seller   User      `gorm:"foreignKey:SellerID" json:"-"`
	Location *Location `gorm:"foreignKey:LocationID" json:"-"`
	Photos   []Photo   `gorm:"foreignKey:ListingID" json:"-"`
}

// Photo is an image attached to a listing; Position orders them.
type Photo struct {
	Base
	ListingID uint   `gorm:"not null;index" json:"-"`
	Key       string `gorm:"not null" json:"-"`
	URL       string `gorm:"not null" json:"url"`
	Position  int    `gorm:"not null;default:0" json:"position"`
}
