package services

import (
	"context"
	"net/url"
	"time"

	"gorm.io/gorm"

	"quicksell/internal/models"
	"quicksell/internal/pagination"
	"quicksell/internal/search"
	"quicksell/internal/tree"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, fullName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	GetUserByToken(token string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	UpdateProfile(userID uint, update ProfileUpdate) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// ProfileUpdate holds the optional fields of a profile PATCH.
type ProfileUpdate struct {
	FullName  *string
	About     *string
	Online    *bool
	Latitude  *float64
	Longitude *float64
	Address   *string
}

// LocationServicer resolves coordinates to shared location rows.
type LocationServicer interface {
	Resolve(tx *gorm.DB, latitude, longitude *float64, address string) (*models.Location, error)
}

// CategoryServicer defines the contract for the category tree.
type CategoryServicer interface {
	CreateCategory(name string, parentName *string) (*models.Category, error)
	IsLeaf(name string) (bool, error)
	ResolveOrSentinel(categoryID *uint) (*models.Category, error)
	EnsureSentinel() (*models.Category, error)
	Rebuild() error
	Tree(ctx context.Context) (tree.Nested, error)
	DeleteCategory(name string) error
	Import(doc tree.Nested) (int, error)
	ValidateAssignment(tx *gorm.DB, name string) (*models.Category, error)
	CountListings(name string) (int64, error)
}

// ListingInput holds the fields of a new listing.
type ListingInput struct {
	Title        string
	Description  string
	Price        int64
	Quantity     int
	ConditionNew bool
	Properties   map[string]any
	Category     string
	Latitude     *float64
	Longitude    *float64
	Address      string
}

// ListingPatch holds the optional fields of a listing PATCH.
type ListingPatch struct {
	Title        *string
	Description  *string
	Price        *int64
	Quantity     *int
	ConditionNew *bool
	Properties   map[string]any
	Category     *string
	Latitude     *float64
	Longitude    *float64
	Address      *string
}

// ListingView is the public representation of a listing.
type ListingView struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Price        int64            `json:"price"`
	Quantity     int              `json:"quantity"`
	Sold         int              `json:"sold"`
	Views        int              `json:"views"`
	Status       string           `json:"status"`
	ConditionNew bool             `json:"condition_new"`
	Properties   map[string]any   `json:"properties"`
	Category     string           `json:"category"`
	Seller       string           `json:"seller"`
	Location     *models.Location `json:"location"`
	Photos       []models.Photo   `json:"photos"`
	DateCreated  time.Time        `json:"date_created"`
	DateExpires  time.Time        `json:"date_expires"`
}

// PhotoUpload is a photo slot plus the URL the client uploads the image to.
type PhotoUpload struct {
	Photo     models.Photo `json:"photo"`
	UploadURL string       `json:"upload_url"`
}

// PhotoStorer is the object store used for listing photos.
type PhotoStorer interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	FileURL(key string) string
	Delete(ctx context.Context, key string) error
}

// ListingServicer defines the contract for listings and listing search.
type ListingServicer interface {
	Search(q search.Query, requestURL *url.URL) (*pagination.Page[ListingView], error)
	CreateListing(sellerID uint, input ListingInput) (*ListingView, error)
	GetListing(viewerID uint, token string) (*ListingView, error)
	UpdateListing(sellerID uint, token string, patch ListingPatch) (*ListingView, error)
	DeleteListing(sellerID uint, token string) error
	AddPhoto(ctx context.Context, sellerID uint, token, contentType string) (*PhotoUpload, error)
}

// ChatView is the public representation of a chat.
type ChatView struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Listing      *string   `json:"listing"`
	Creator      string    `json:"creator"`
	Interlocutor string    `json:"interlocutor"`
	Unread       int64     `json:"unread"`
	DateCreated  time.Time `json:"date_created"`
	DateUpdated  time.Time `json:"date_updated"`
}

// MessageView is the public representation of a chat message.
type MessageView struct {
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	Read        bool      `json:"read"`
	DateCreated time.Time `json:"date_created"`
}

// ChatServicer defines the contract for buyer-seller chats.
type ChatServicer interface {
	StartChat(userID uint, listingToken, text string) (*ChatView, error)
	GetUserChats(userID uint, page pagination.Request) (*pagination.Page[ChatView], error)
	GetMessages(userID uint, chatToken string, page pagination.Request) (*pagination.Page[MessageView], error)
	SendMessage(userID uint, chatToken, text string) (*MessageView, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
