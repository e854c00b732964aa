package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"quicksell/internal/models"
	"quicksell/internal/tree"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		FullName: fmt.Sprintf("Test User %d", nextID()),
		Online:   true,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category under parent (nil for a root) and
// rebuilds the nested-set bounds so the tree stays consistent.
func CreateTestCategory(t *testing.T, db *gorm.DB, name string, parent *models.Category) *models.Category {
	t.Helper()

	category := &models.Category{Name: name}
	if parent != nil {
		category.ParentID = &parent.ID
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category %q: %v", name, err)
	}
	RebuildTestTree(t, db)

	if err := db.First(category, category.ID).Error; err != nil {
		t.Fatalf("failed to reload test category %q: %v", name, err)
	}
	return category
}

// RebuildTestTree recomputes lft/rgt/level for every category.
func RebuildTestTree(t *testing.T, db *gorm.DB) {
	t.Helper()

	var rows []models.Category
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("failed to load categories: %v", err)
	}
	nodes := make([]tree.Node, len(rows))
	for i, r := range rows {
		nodes[i] = tree.Node{ID: r.ID, ParentID: r.ParentID, Name: r.Name}
	}
	rebuilt, err := tree.Rebuild(nodes)
	if err != nil {
		t.Fatalf("failed to rebuild test tree: %v", err)
	}
	for _, n := range rebuilt {
		if err := db.Model(&models.Category{}).Where("id = ?", n.ID).
			Updates(map[string]any{"lft": n.Lft, "rgt": n.Rgt, "level": n.Level}).Error; err != nil {
			t.Fatalf("failed to save test tree bounds: %v", err)
		}
	}
}

// CreateTestListing creates an active listing for seller at the given price.
func CreateTestListing(t *testing.T, db *gorm.DB, sellerID uint, category *models.Category, price int64) *models.Listing {
	t.Helper()

	listing := &models.Listing{
		Title:     fmt.Sprintf("Test Listing %d", nextID()),
		Price:     price,
		Quantity:  1,
		Status:    models.ListingStatusActive,
		SellerID:  sellerID,
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}
	if category != nil {
		listing.CategoryID = &category.ID
	}
	if err := db.Create(listing).Error; err != nil {
		t.Fatalf("failed to create test listing: %v", err)
	}
	return listing
}

// CreateTestChat creates a chat about listing started by creator.
func CreateTestChat(t *testing.T, db *gorm.DB, creator, interlocutor *models.User, listing *models.Listing) *models.Chat {
	t.Helper()

	chat := &models.Chat{
		CreatorID:      creator.ID,
		InterlocutorID: interlocutor.ID,
		Subject:        fmt.Sprintf("Test Chat %d", nextID()),
	}
	if listing != nil {
		chat.ListingID = &listing.ID
		chat.Subject = listing.Title
	}
	if err := db.Create(chat).Error; err != nil {
		t.Fatalf("failed to create test chat: %v", err)
	}
	return chat
}

// CreateTestMessage adds a message by author to chat.
func CreateTestMessage(t *testing.T, db *gorm.DB, chat *models.Chat, authorID uint, text string) *models.Message {
	t.Helper()

	message := &models.Message{ChatID: chat.ID, AuthorID: authorID, Text: text}
	if err := db.Create(message).Error; err != nil {
		t.Fatalf("failed to create test message: %v", err)
	}
	return message
}
