package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"quicksell/internal/config"
	apperrors "quicksell/internal/errors"
	"quicksell/internal/logger"
	"quicksell/internal/metrics"
	"quicksell/internal/models"
	"quicksell/internal/pagination"
	"quicksell/internal/search"
	"quicksell/internal/storage"
	"quicksell/internal/uuid"
)

const maxTitleLength = 200

// ListingOptions carries the configurable listing behaviour.
type ListingOptions struct {
	PageSize   int
	TTL        time.Duration
	DeleteMode string
}

// listingService handles listings and listing search.
type listingService struct {
	db         *gorm.DB
	categories CategoryServicer
	locations  LocationServicer
	photos     PhotoStorer
	metrics    *metrics.Collector
	opts       ListingOptions
}

// NewListingService creates a new ListingServicer. photos and collector may be nil.
func NewListingService(
	db *gorm.DB,
	categories CategoryServicer,
	locations LocationServicer,
	photos PhotoStorer,
	collector *metrics.Collector,
	opts ListingOptions,
) ListingServicer {
	if opts.PageSize < 1 {
		opts.PageSize = 10
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * 24 * time.Hour
	}
	if opts.DeleteMode == "" {
		opts.DeleteMode = config.DeleteModeClose
	}
	return &listingService{
		db:         db,
		categories: categories,
		locations:  locations,
		photos:     photos,
		metrics:    collector,
		opts:       opts,
	}
}

// Search returns one page of active listings matching q. The count and the
// slice are separate queries and are not snapshot-consistent.
func (s *listingService) Search(q search.Query, requestURL *url.URL) (*pagination.Page[ListingView], error) {
	if q.Page < 1 {
		q.Page = 1
	}

	var count int64
	if err := s.db.Model(&models.Listing{}).Scopes(q.Scope()).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		s.metrics.RecordSearch(metrics.SearchNoMatch)
		return nil, apperrors.ErrNoMatch
	}

	req := pagination.Request{Page: q.Page, PageSize: s.opts.PageSize, URL: requestURL}
	if q.Page > pagination.PageCount(count, s.opts.PageSize) {
		s.metrics.RecordSearch(metrics.SearchNoMatch)
		return nil, apperrors.WithMessage(apperrors.ErrNoMatch, "Invalid page")
	}

	var listings []models.Listing
	err := s.db.Model(&models.Listing{}).
		Scopes(q.Scope()).
		Order(q.OrderClause()).
		Scopes(pagination.Paginate(req)).
		Preload("Seller").
		Preload("Location").
		Preload("Photos", orderPhotos).
		Find(&listings).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views, err := s.toViews(listings)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSearch(metrics.SearchOK)
	return pagination.New(views, count, req), nil
}

// CreateListing validates the category and inserts the listing in one transaction.
func (s *listingService) CreateListing(sellerID uint, input ListingInput) (*ListingView, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if err := validateListingFields(input.Title, input.Price, input.Quantity); err != nil {
		return nil, err
	}

	var listing models.Listing
	err := s.db.Transaction(func(tx *gorm.DB) error {
		category, err := s.categories.ValidateAssignment(tx, input.Category)
		if err != nil {
			return err
		}
		location, err := s.locations.Resolve(tx, input.Latitude, input.Longitude, input.Address)
		if err != nil {
			return err
		}

		listing = models.Listing{
			Title:        input.Title,
			Description:  input.Description,
			Price:        input.Price,
			Quantity:     input.Quantity,
			Status:       models.ListingStatusActive,
			ConditionNew: input.ConditionNew,
			Properties:   input.Properties,
			ExpiresAt:    time.Now().Add(s.opts.TTL),
			CategoryID:   &category.ID,
			SellerID:     sellerID,
			LocationID:   &location.ID,
		}
		if err := tx.Create(&listing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordListingCreated()
	return s.view(listing.ID)
}

// GetListing returns a listing and counts the view. Listings that are not
// active are only visible to their seller.
func (s *listingService) GetListing(viewerID uint, token string) (*ListingView, error) {
	listing, err := s.findByToken(s.db, token)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusActive && listing.SellerID != viewerID {
		return nil, apperrors.ErrListingNotFound
	}

	if listing.SellerID != viewerID {
		if err := s.db.Model(&models.Listing{}).Where("id = ?", listing.ID).
			UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.view(listing.ID)
}

// UpdateListing applies patch to a listing owned by sellerID. The seller never changes.
func (s *listingService) UpdateListing(sellerID uint, token string, patch ListingPatch) (*ListingView, error) {
	var id uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		listing, err := s.findByToken(tx, token)
		if err != nil {
			return err
		}
		if listing.SellerID != sellerID {
			return apperrors.ErrForbidden
		}
		id = listing.ID

		title, price, quantity := listing.Title, listing.Price, listing.Quantity
		updates := map[string]any{}
		if patch.Title != nil {
			title = strings.TrimSpace(*patch.Title)
			updates["title"] = title
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Price != nil {
			price = *patch.Price
			updates["price"] = price
		}
		if patch.Quantity != nil {
			quantity = *patch.Quantity
			updates["quantity"] = quantity
		}
		if patch.ConditionNew != nil {
			updates["condition_new"] = *patch.ConditionNew
		}
		if err := validateListingFields(title, price, quantity); err != nil {
			return err
		}
		if patch.Properties != nil {
			listing.Properties = patch.Properties
			if err := tx.Model(listing).Select("properties").Updates(listing).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if patch.Category != nil {
			category, err := s.categories.ValidateAssignment(tx, *patch.Category)
			if err != nil {
				return err
			}
			updates["category_id"] = category.ID
		}
		if patch.Latitude != nil || patch.Longitude != nil {
			address := ""
			if patch.Address != nil {
				address = *patch.Address
			}
			location, err := s.locations.Resolve(tx, patch.Latitude, patch.Longitude, address)
			if err != nil {
				return err
			}
			updates["location_id"] = location.ID
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(listing).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(id)
}

// DeleteListing closes or deletes a listing depending on the configured mode.
func (s *listingService) DeleteListing(sellerID uint, token string) error {
	var keys []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		listing, err := s.findByToken(tx, token)
		if err != nil {
			return err
		}
		if listing.SellerID != sellerID {
			return apperrors.ErrForbidden
		}

		if s.opts.DeleteMode == config.DeleteModeClose {
			if err := tx.Model(listing).Update("status", models.ListingStatusClosed).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		}

		var photos []models.Photo
		if err := tx.Where("listing_id = ?", listing.ID).Find(&photos).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, p := range photos {
			keys = append(keys, p.Key)
		}
		if err := tx.Where("listing_id = ?", listing.ID).Delete(&models.Photo{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Chat{}).Where("listing_id = ?", listing.ID).Update("listing_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(listing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Objects are removed after commit; a failure only leaves an orphan in the bucket.
	if s.photos != nil {
		for _, key := range keys {
			if err := s.photos.Delete(context.Background(), key); err != nil {
				logger.Get().Errorw("failed to delete listing photo", "error", err, "key", key)
			}
		}
	}
	return nil
}

// AddPhoto reserves the next photo slot and returns a presigned upload URL.
func (s *listingService) AddPhoto(ctx context.Context, sellerID uint, token, contentType string) (*PhotoUpload, error) {
	if s.photos == nil {
		return nil, apperrors.ErrStorageNotConfigured
	}

	var upload PhotoUpload
	err := s.db.Transaction(func(tx *gorm.DB) error {
		listing, err := s.findByToken(tx, token)
		if err != nil {
			return err
		}
		if listing.SellerID != sellerID {
			return apperrors.ErrForbidden
		}

		var position int64
		if err := tx.Model(&models.Photo{}).Where("listing_id = ?", listing.ID).Count(&position).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		key := storage.PhotoKey(listing.Token(), uuid.Token(uuid.New()), contentType)
		uploadURL, err := s.photos.PresignUpload(ctx, key, contentType)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		photo := models.Photo{
			ListingID: listing.ID,
			Key:       key,
			URL:       s.photos.FileURL(key),
			Position:  int(position),
		}
		if err := tx.Create(&photo).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		upload = PhotoUpload{Photo: photo, UploadURL: uploadURL}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (s *listingService) findByToken(db *gorm.DB, token string) (*models.Listing, error) {
	id, err := uuid.Decode(token)
	if err != nil {
		return nil, apperrors.ErrListingNotFound
	}

	var listing models.Listing
	if err := db.Where("uuid = ?", id).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrListingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &listing, nil
}

// view loads a listing with its associations and resolves its category
// through the sentinel.
func (s *listingService) view(id uint) (*ListingView, error) {
	var listing models.Listing
	err := s.db.Preload("Seller").Preload("Location").Preload("Photos", orderPhotos).First(&listing, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrListingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	category, err := s.categories.ResolveOrSentinel(listing.CategoryID)
	if err != nil {
		return nil, err
	}
	v := newListingView(&listing, category.Name)
	return &v, nil
}

// toViews resolves the categories of a whole page with one query.
func (s *listingService) toViews(listings []models.Listing) ([]ListingView, error) {
	ids := make([]uint, 0, len(listings))
	for _, l := range listings {
		if l.CategoryID != nil {
			ids = append(ids, *l.CategoryID)
		}
	}

	names := make(map[uint]string, len(ids))
	if len(ids) > 0 {
		var categories []models.Category
		if err := s.db.Where("id IN ?", ids).Find(&categories).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, c := range categories {
			names[c.ID] = c.Name
		}
	}

	views := make([]ListingView, len(listings))
	for i := range listings {
		name := models.SentinelCategoryName
		if id := listings[i].CategoryID; id != nil {
			if n, ok := names[*id]; ok {
				name = n
			}
		}
		views[i] = newListingView(&listings[i], name)
	}
	return views, nil
}

func newListingView(l *models.Listing, category string) ListingView {
	photos := l.Photos
	if photos == nil {
		photos = []models.Photo{}
	}
	return ListingView{
		ID:           l.Token(),
		Title:        l.Title,
		Description:  l.Description,
		Price:        l.Price,
		Quantity:     l.Quantity,
		Sold:         l.Sold,
		Views:        l.Views,
		Status:       l.Status.String(),
		ConditionNew: l.ConditionNew,
		Properties:   l.Properties,
		Category:     category,
		Seller:       l.Seller.Token(),
		Location:     l.Location,
		Photos:       photos,
		DateCreated:  l.CreatedAt,
		DateExpires:  l.ExpiresAt,
	}
}

func orderPhotos(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func validateListingFields(title string, price int64, quantity int) error {
	switch {
	case title == "":
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "title must be at most 200 characters")
	case price < 0:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "price must not be negative")
	case quantity < 1:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be at least 1")
	}
	return nil
}
