package models

// Chat is a conversation between a buyer (Creator) and the seller of a listing.
type Chat struct {
	Base
	Public
	CreatorID      uint   `gorm:"not null;index" json:"-"`
	InterlocutorID uint   `gorm:"not null;index" json:"-"`
	ListingID      *uint  `gorm:"index" json:"-"`
	Subject        string `gorm:"size:200;not null" json:"subject"`

	Creator      User     `gorm:"foreignKey:CreatorID" json:"-"`
	Interlocutor User     `gorm:"foreignKey:InterlocutorID" json:"-"`
	Listing      *Listing `gorm:"foreignKey:ListingID" json:"-"`
}

// Message is a single chat entry.
type Message struct {
	Base
	ChatID   uint   `gorm:"not null;index" json:"-"`
	AuthorID uint   `gorm:"not null" json:"-"`
	Text     string `gorm:"size:2000;not null" json:"text"`
	Read     bool   `gorm:"not null;default:false" json:"read"`
}
