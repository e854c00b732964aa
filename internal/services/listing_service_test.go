package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"quicksell/internal/config"
	"quicksell/internal/models"
	"quicksell/internal/search"
	"quicksell/internal/testutil"
)

// fakePhotoStore records presign and delete calls.
type fakePhotoStore struct {
	presigned []string
	deleted   []string
}

func (f *fakePhotoStore) PresignUpload(_ context.Context, key, _ string) (string, error) {
	f.presigned = append(f.presigned, key)
	return "https://upload.test/" + key + "?signature=x", nil
}

func (f *fakePhotoStore) FileURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakePhotoStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func newTestListingService(db *gorm.DB, photos PhotoStorer, opts ListingOptions) ListingServicer {
	return NewListingService(db, NewCategoryService(db, nil, nil), NewLocationService(), photos, nil, opts)
}

func mustQuery(t *testing.T, raw string) search.Query {
	t.Helper()
	values, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("bad query %q: %v", raw, err)
	}
	q, err := search.Parse(values)
	if err != nil {
		t.Fatalf("failed to parse query %q: %v", raw, err)
	}
	return q
}

func searchURL(raw string) *url.URL {
	u, _ := url.Parse("http://testserver/api/v1/listings/?" + raw)
	return u
}

func prices(views []ListingView) []int64 {
	out := make([]int64, len(views))
	for i, v := range views {
		out[i] = v.Price
	}
	return out
}

func TestSearchListings(t *testing.T) {
	t.Run("price_range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestListingService(db, nil, ListingOptions{})
		seller := testutil.CreateTestUser(t, db)
		for _, price := range []int64{5, 10, 15, 20, 25} {
			testutil.CreateTestListing(t, db, seller.ID, nil, price)
		}

		page, err := svc.Search(mustQuery(t, "min_price=10&max_price=20"), searchURL("min_price=10&max_price=20"))
		testutil.AssertNoError(t, err)

		if page.Count != 3 {
			t.Errorf("expected count 3, got %d", page.Count)
		}
		if got := fmt.Sprint(prices(page.Results)); got != "[20 15 10]" {
			t.Errorf("expected prices [20 15 10], got %s", got)
		}
		if page.Next != nil || page.Previous != nil {
			t.Error("expected a single page without links")
		}
	})

	t.Run("inverted_range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestListingService(db, nil, ListingOptions{})
		seller := testutil.CreateTestUser(t, db)
		testutil.CreateTestListing(t, db, seller.ID, nil, 15)

		_, err := svc.Search(mustQuery(t, "min_price=20&max_price=10"), searchURL(""))
		testutil.AssertAppError(t, err, "NO_MATCH")
	})

	t.Run("order_by", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestListingService(db, nil, ListingOptions{})
		seller := testutil.CreateTestUser(t, db)
		created := time.Now().Add(-time.Hour)
		for i, price := range []int64{30, 10, 20} {
			l := testutil.CreateTestListing(t, db, seller.ID, nil, price)
			db.Model(l).UpdateColumn("created_at", created.Add(time.Duration(i)*time.Minute))
		}

		page, err := svc.Search(mustQuery(t, "order_by=price"), searchURL("order_by=price"))
		testutil.AssertNoError(t, err)
		if got := fmt.Sprint(prices(page.Results)); got != "[10 20 30]" {
			t.Errorf("expected ascending prices, got %s", got)
		}

		page, err = svc.Search(mustQuery(t, "order_by=-date_created"), searchURL(""))
		testutil.AssertNoError(t, err)
		if got := fmt.Sprint(prices(page.Results)); got != "[20 10 30]" {
			t.Errorf("expected newest first, got %s", got)
		}
	})

	t.Run("only_active", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestListingService(db, nil, ListingOptions{})
		seller := testutil.CreateTestUser(t, db)
		testutil.CreateTestListing(t, db, seller.ID, nil, 10)
		closed := testutil.CreateTestListing(t, db, seller.ID, nil, 20)
		db.Model(closed).Update("status", models.ListingStatusClosed)

		page, err := svc.Search(search.Query{}, searchURL(""))
		testutil.AssertNoError(t, err)
		if page.Count != 1 || page.Results[0].Price != 10 {
			t.Errorf("expected only the active listing, got %v", prices(page.Results))
		}
	})

	t.Run("title_and_seller", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestListingService(db, nil, ListingOptions{})
		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)
		phone := testutil.CreateTestListing(t, db, alice.ID, nil, 100)
		db.Model(phone).Update("title", "Used iPhone 12")
		other := testutil.CreateTestListing(t, db, bob.ID, nil, 200)
		db.Model(other).Update("title", "iPhone case")
		testutil.CreateTestListing(t, db, alice.ID, nil, 300)

		page, err := svc.Search(mustQuery(t, "title=IPHONE"), searchURL(""))
		testutil.AssertNoError(t, err)
		if page.Count != 2 {
			t.Errorf("expected 2 title matches, got %d", page.Count)
		}

		raw := "title=iphone&seller=" + alice.Token()
		page, err = svc.Search(mustQuery(t, raw), searchURL(raw))
		testutil.AssertNoError(t, err)
		if page.Count != 1 || page.Results[0].ID != phone.Token() {
			t.Errorf("expected only alice's phone, got %d results", page.Count)
		}
		if page.Results[0].Seller != alice.Token() {
			t.Errorf("expected seller %s, got %s", alice.Token(), page.Results[0].Seller)
		}
	})

	t.Run("pagination_covers_every_listing_once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestListingService(db, nil, ListingOptions{PageSize: 10})
		seller := testutil.CreateTestUser(t, db)
		for i := 0; i < 25; i++ {
			testutil.CreateTestListing(t, db, seller.ID, nil, int64(i%4))
		}

		seen := map[string]bool{}
		for pageNum := 1; pageNum <= 3; pageNum++ {
			raw := fmt.Sprintf("page=%d", pageNum)
			page, err := svc.Search(mustQuery(t, raw), searchURL(raw))
			testutil.AssertNoError(t, err)

			if page.Count != 25 {
				t.Errorf("page %d: expected count 25, got %d", pageNum, page.Count)
			}
			if (page.Next == nil) != (pageNum == 3) {
				t.Errorf("page %d: unexpected next link %v", pageNum, page.Next)
			}
			if (page.Previous == nil) != (pageNum == 1) {
				t.Errorf("page %d: unexpected previous link %v", pageNum, page.Previous)
			}
			for _, v := range page.Results {
				if seen[v.ID] {
					t.Errorf("listing %s returned twice", v.ID)
				}
				seen[v.ID] = true
			}
		}
		if len(seen) != 25 {
			t.Errorf("expected 25 distinct listings, got %d", len(seen))
		}

		_, err := svc.Search(mustQuery(t, "page=4"), searchURL("page=4"))
		testutil.AssertAppError(t, err, "NO_MATCH")
	})

	t.Run("deleted_category_reads_as_uncategorized", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		categories := NewCategoryService(db, nil, nil)
		svc := NewListingService(db, categories, NewLocationService(), nil, nil, ListingOptions{})
		seller := testutil.CreateTestUser(t, db)
		root := testutil.CreateTestCategory(t, db, "Electronics", nil)
		phones := testutil.CreateTestCategory(t, db, "Phones", root)
		listing := testutil.CreateTestListing(t, db, seller.ID, phones, 100)

		page, err := svc.Search(mustQuery(t, "category=Phones"), searchURL(""))
		testutil.AssertNoError(t, err)
		if page.Results[0].Category != "Phones" {
			t.Errorf("expected category Phones, got %s", page.Results[0].Category)
		}

		testutil.AssertNoError(t, categories.DeleteCategory("Phones"))

		_, err = svc.Search(mustQuery(t, "category=Phones"), searchURL(""))
		testutil.AssertAppError(t, err, "NO_MATCH")

		page, err = svc.Search(mustQuery(t, "category="+models.SentinelCategoryName), searchURL(""))
		testutil.AssertNoError(t, err)
		if page.Count != 1 || page.Results[0].ID != listing.Token() {
			t.Fatalf("expected the orphaned listing under the sentinel, got %d results", page.Count)
		}
		if page.Results[0].Category != models.SentinelCategoryName {
			t.Errorf("expected sentinel category, got %s", page.Results[0].Category)
		}

		view, err := svc.GetListing(0, listing.Token())
		testutil.AssertNoError(t, err)
		if view.Category != models.SentinelCategoryName {
			t.Errorf("expected sentinel category on detail, got %s", view.Category)
		}
	})

	t.Run("empty_results", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestListingService(db, nil, ListingOptions{})

		_, err := svc.Search(search.Query{}, searchURL(""))
		testutil.AssertAppError(t, err, "NO_MATCH")
	})
}

func TestCreateListing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestListingService(db, nil, ListingOptions{TTL: 24 * time.Hour})
	seller := testutil.CreateTestUser(t, db)
	root := testutil.CreateTestCategory(t, db, "Electronics", nil)
	testutil.CreateTestCategory(t, db, "Phones", root)

	t.Run("valid", func(t *testing.T) {
		view, err := svc.CreateListing(seller.ID, ListingInput{
			Title:      "  Pixel 8  ",
			Price:      50000,
			Category:   "Phones",
			Properties: map[string]any{"color": "black"},
		})
		testutil.AssertNoError(t, err)

		if view.Title != "Pixel 8" {
			t.Errorf("expected trimmed title, got %q", view.Title)
		}
		if view.Category != "Phones" || view.Status != "active" || view.Quantity != 1 {
			t.Errorf("unexpected listing view: %+v", view)
		}
		if view.Seller != seller.Token() {
			t.Errorf("expected seller %s, got %s", seller.Token(), view.Seller)
		}
		if view.Location == nil || view.Location.Address != models.DefaultAddress {
			t.Errorf("expected default location, got %+v", view.Location)
		}
		if d := time.Until(view.DateExpires); d < 23*time.Hour || d > 25*time.Hour {
			t.Errorf("expected expiry one TTL ahead, got %v", d)
		}
		if view.Properties["color"] != "black" {
			t.Errorf("expected properties to round-trip, got %v", view.Properties)
		}
	})

	tests := []struct {
		name     string
		input    ListingInput
		wantCode string
	}{
		{"non_leaf_category", ListingInput{Title: "x", Price: 1, Category: "Electronics"}, "NON_LEAF_CATEGORY"},
		{"unknown_category", ListingInput{Title: "x", Price: 1, Category: "Missing"}, "INVALID_CATEGORY"},
		{"sentinel_category", ListingInput{Title: "x", Price: 1, Category: models.SentinelCategoryName}, "INVALID_CATEGORY"},
		{"empty_title", ListingInput{Title: " ", Price: 1, Category: "Phones"}, "INVALID_INPUT"},
		{"negative_price", ListingInput{Title: "x", Price: -1, Category: "Phones"}, "INVALID_INPUT"},
		{"long_title", ListingInput{Title: strings.Repeat("a", 201), Price: 1, Category: "Phones"}, "INVALID_INPUT"},
		{"long_cyrillic_title", ListingInput{Title: strings.Repeat("ж", 201), Price: 1, Category: "Phones"}, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateListing(seller.ID, tt.input)
			testutil.AssertAppError(t, err, tt.wantCode)
		})
	}

	t.Run("title_length_counts_characters", func(t *testing.T) {
		title := strings.Repeat("ж", 200)
		view, err := svc.CreateListing(seller.ID, ListingInput{Title: title, Price: 1, Category: "Phones"})
		testutil.AssertNoError(t, err)
		if view.Title != title {
			t.Errorf("expected title kept intact, got %d bytes", len(view.Title))
		}

		_, err = svc.UpdateListing(seller.ID, view.ID, ListingPatch{Title: strPtr(strings.Repeat("я", 200))})
		testutil.AssertNoError(t, err)
	})
}

func TestCreateListingAfterCategoryBecomesLeaf(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	categories := NewCategoryService(db, nil, nil)
	svc := NewListingService(db, categories, NewLocationService(), nil, nil, ListingOptions{})
	seller := testutil.CreateTestUser(t, db)

	_, err := categories.CreateCategory("Hobby", nil)
	testutil.AssertNoError(t, err)
	_, err = categories.CreateCategory("Models", strPtr("Hobby"))
	testutil.AssertNoError(t, err)

	input := ListingInput{Title: "Train set", Price: 900, Category: "Hobby"}
	_, err = svc.CreateListing(seller.ID, input)
	testutil.AssertAppError(t, err, "NON_LEAF_CATEGORY")

	testutil.AssertNoError(t, categories.DeleteCategory("Models"))

	view, err := svc.CreateListing(seller.ID, input)
	testutil.AssertNoError(t, err)
	if view.Category != "Hobby" {
		t.Errorf("expected category Hobby, got %s", view.Category)
	}
}

func TestGetListing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestListingService(db, nil, ListingOptions{})
	seller := testutil.CreateTestUser(t, db)
	visitor := testutil.CreateTestUser(t, db)
	listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)

	view, err := svc.GetListing(visitor.ID, listing.Token())
	testutil.AssertNoError(t, err)
	if view.Views != 1 {
		t.Errorf("expected 1 view, got %d", view.Views)
	}

	view, err = svc.GetListing(seller.ID, listing.Token())
	testutil.AssertNoError(t, err)
	if view.Views != 1 {
		t.Errorf("seller views must not count, got %d", view.Views)
	}

	db.Model(listing).Update("status", models.ListingStatusClosed)
	_, err = svc.GetListing(visitor.ID, listing.Token())
	testutil.AssertAppError(t, err, "LISTING_NOT_FOUND")
	view, err = svc.GetListing(seller.ID, listing.Token())
	testutil.AssertNoError(t, err)
	if view.Status != "closed" {
		t.Errorf("expected closed status, got %s", view.Status)
	}

	_, err = svc.GetListing(visitor.ID, "not-a-token")
	testutil.AssertAppError(t, err, "LISTING_NOT_FOUND")
}

func TestUpdateListing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestListingService(db, nil, ListingOptions{})
	seller := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	root := testutil.CreateTestCategory(t, db, "Electronics", nil)
	phones := testutil.CreateTestCategory(t, db, "Phones", root)
	testutil.CreateTestCategory(t, db, "Laptops", root)
	listing := testutil.CreateTestListing(t, db, seller.ID, phones, 100)

	t.Run("owner", func(t *testing.T) {
		price := int64(80)
		category := "Laptops"
		lat, lon := 59.9386, 30.3141
		view, err := svc.UpdateListing(seller.ID, listing.Token(), ListingPatch{
			Price:     &price,
			Category:  &category,
			Latitude:  &lat,
			Longitude: &lon,
		})
		testutil.AssertNoError(t, err)
		if view.Price != 80 || view.Category != "Laptops" {
			t.Errorf("expected patched price and category, got %d %s", view.Price, view.Category)
		}
		if view.Location == nil || view.Location.Latitude != lat {
			t.Errorf("expected new location, got %+v", view.Location)
		}
		if view.Seller != seller.Token() {
			t.Error("seller must not change")
		}
	})

	t.Run("non_owner", func(t *testing.T) {
		price := int64(1)
		_, err := svc.UpdateListing(other.ID, listing.Token(), ListingPatch{Price: &price})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("non_leaf_category", func(t *testing.T) {
		category := "Electronics"
		_, err := svc.UpdateListing(seller.ID, listing.Token(), ListingPatch{Category: &category})
		testutil.AssertAppError(t, err, "NON_LEAF_CATEGORY")
	})

	t.Run("invalid_quantity", func(t *testing.T) {
		quantity := 0
		_, err := svc.UpdateListing(seller.ID, listing.Token(), ListingPatch{Quantity: &quantity})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestDeleteListing(t *testing.T) {
	t.Run("close_mode", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestListingService(db, nil, ListingOptions{DeleteMode: config.DeleteModeClose})
		seller := testutil.CreateTestUser(t, db)
		listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)

		testutil.AssertNoError(t, svc.DeleteListing(seller.ID, listing.Token()))

		testutil.AssertListingStatus(t, db, listing.ID, models.ListingStatusClosed)
		_, err := svc.Search(search.Query{}, searchURL(""))
		testutil.AssertAppError(t, err, "NO_MATCH")
	})

	t.Run("delete_mode", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := &fakePhotoStore{}
		svc := newTestListingService(db, store, ListingOptions{DeleteMode: config.DeleteModeDelete})
		seller := testutil.CreateTestUser(t, db)
		buyer := testutil.CreateTestUser(t, db)
		listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)
		chat := testutil.CreateTestChat(t, db, buyer, seller, listing)

		upload, err := svc.AddPhoto(context.Background(), seller.ID, listing.Token(), "image/png")
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.DeleteListing(seller.ID, listing.Token()))

		var count int64
		db.Model(&models.Listing{}).Where("id = ?", listing.ID).Count(&count)
		if count != 0 {
			t.Error("expected listing row to be removed")
		}
		var reloaded models.Chat
		testutil.AssertNoError(t, db.First(&reloaded, chat.ID).Error)
		if reloaded.ListingID != nil {
			t.Error("expected chat to lose its listing reference")
		}
		if len(store.deleted) != 1 || store.deleted[0] != upload.Photo.Key {
			t.Errorf("expected photo %s to be deleted from storage, got %v", upload.Photo.Key, store.deleted)
		}
	})

	t.Run("non_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestListingService(db, nil, ListingOptions{})
		seller := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)

		err := svc.DeleteListing(other.ID, listing.Token())
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestAddPhoto(t *testing.T) {
	t.Run("storage_not_configured", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestListingService(db, nil, ListingOptions{})
		seller := testutil.CreateTestUser(t, db)
		listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)

		_, err := svc.AddPhoto(context.Background(), seller.ID, listing.Token(), "image/jpeg")
		testutil.AssertAppError(t, err, "STORAGE_NOT_CONFIGURED")
	})

	t.Run("positions_and_urls", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := &fakePhotoStore{}
		svc := newTestListingService(db, store, ListingOptions{})
		seller := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		listing := testutil.CreateTestListing(t, db, seller.ID, nil, 100)

		for want := 0; want < 2; want++ {
			upload, err := svc.AddPhoto(context.Background(), seller.ID, listing.Token(), "image/jpeg")
			testutil.AssertNoError(t, err)
			if upload.Photo.Position != want {
				t.Errorf("expected position %d, got %d", want, upload.Photo.Position)
			}
			prefix := "listings/" + listing.Token() + "/"
			if !strings.HasPrefix(upload.Photo.Key, prefix) || !strings.HasSuffix(upload.Photo.Key, ".jpg") {
				t.Errorf("unexpected photo key %s", upload.Photo.Key)
			}
			if upload.Photo.URL != "https://cdn.test/"+upload.Photo.Key {
				t.Errorf("unexpected photo URL %s", upload.Photo.URL)
			}
			if !strings.HasPrefix(upload.UploadURL, "https://upload.test/") {
				t.Errorf("unexpected upload URL %s", upload.UploadURL)
			}
		}

		view, err := svc.GetListing(seller.ID, listing.Token())
		testutil.AssertNoError(t, err)
		if len(view.Photos) != 2 || view.Photos[0].Position != 0 {
			t.Errorf("expected 2 ordered photos, got %+v", view.Photos)
		}

		_, err = svc.AddPhoto(context.Background(), other.ID, listing.Token(), "image/jpeg")
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}
