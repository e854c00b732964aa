package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/metrics"
	"quicksell/internal/search"
	"quicksell/internal/services"
)

// ListingHandler handles listing requests
type ListingHandler struct {
	listingService services.ListingServicer
	auditService   services.AuditServicer
	metrics        *metrics.Collector
	baseURL        string
}

// NewListingHandler creates a new ListingHandler. baseURL, when set, is used
// for the next/previous links of search pages; collector may be nil.
func NewListingHandler(
	listingService services.ListingServicer,
	auditService services.AuditServicer,
	collector *metrics.Collector,
	baseURL string,
) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		auditService:   auditService,
		metrics:        collector,
		baseURL:        baseURL,
	}
}

// CreateListingRequest represents the request payload for creating a listing
type CreateListingRequest struct {
	Title        string         `json:"title" binding:"required,max=200"`
	Description  string         `json:"description" binding:"max=5000"`
	Price        int64          `json:"price" binding:"gte=0"`
	Quantity     int            `json:"quantity" binding:"omitempty,gte=1"`
	ConditionNew bool           `json:"condition_new"`
	Properties   map[string]any `json:"properties"`
	Category     string         `json:"category" binding:"required,category_name"`
	Latitude     *float64       `json:"latitude" binding:"omitempty,latitude"`
	Longitude    *float64       `json:"longitude" binding:"omitempty,longitude"`
	Address      string         `json:"address" binding:"max=1024"`
}

// UpdateListingRequest represents the request payload for a listing PATCH
type UpdateListingRequest struct {
	Title        *string        `json:"title" binding:"omitempty,max=200"`
	Description  *string        `json:"description" binding:"omitempty,max=5000"`
	Price        *int64         `json:"price" binding:"omitempty,gte=0"`
	Quantity     *int           `json:"quantity" binding:"omitempty,gte=1"`
	ConditionNew *bool          `json:"condition_new"`
	Properties   map[string]any `json:"properties"`
	Category     *string        `json:"category" binding:"omitempty,category_name"`
	Latitude     *float64       `json:"latitude" binding:"omitempty,latitude"`
	Longitude    *float64       `json:"longitude" binding:"omitempty,longitude"`
	Address      *string        `json:"address" binding:"omitempty,max=1024"`
}

// AddPhotoRequest represents the request payload for reserving a photo slot
type AddPhotoRequest struct {
	ContentType string `json:"content_type" binding:"required,photo_content_type"`
}

// SearchListings returns a page of active listings
// @Summary     Search listings
// @Description Filter, order and paginate active listings. Unknown parameters are ignored.
// @Tags        listings
// @Produce     json
// @Param       title         query string false "Case-insensitive substring of the title"
// @Param       min_price     query int    false "Minimum price, inclusive"
// @Param       max_price     query int    false "Maximum price, inclusive"
// @Param       condition_new query bool   false "New or used"
// @Param       category      query string false "Exact category name"
// @Param       seller        query string false "Seller id"
// @Param       order_by      query string false "price, date_created, views, sold, quantity or title, optionally prefixed with -"
// @Param       page          query int    false "Page number, starting at 1"
// @Success     200 {object} pagination.Page[services.ListingView] "Page of listings"
// @Failure     400 {object} ErrorResponse "Invalid query"
// @Failure     404 {object} ErrorResponse "No match or invalid page"
// @Router      /listings [get]
func (h *ListingHandler) SearchListings(c *gin.Context) {
	q, err := search.Parse(c.Request.URL.Query())
	if err != nil {
		h.metrics.RecordSearch(metrics.SearchInvalid)
		respondWithError(c, err)
		return
	}

	page, err := h.listingService.Search(q, requestURL(c, h.baseURL))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetListing returns a single listing
// @Summary     Get a listing
// @Description Get a listing by id and count the view. Closed listings are visible to their seller only.
// @Tags        listings
// @Produce     json
// @Param       id path string true "Listing id"
// @Success     200 {object} services.ListingView "Listing"
// @Failure     404 {object} ErrorResponse "Listing not found"
// @Router      /listings/{id} [get]
func (h *ListingHandler) GetListing(c *gin.Context) {
	listing, err := h.listingService.GetListing(viewerID(c), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// CreateListing publishes a new listing
// @Summary     Create a listing
// @Description Create an active listing filed under a leaf category
// @Tags        listings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateListingRequest true "Listing"
// @Success     201 {object} services.ListingView "Listing created"
// @Failure     400 {object} ErrorResponse "Invalid input or category"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /listings [post]
func (h *ListingHandler) CreateListing(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	listing, err := h.listingService.CreateListing(userID, services.ListingInput{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Quantity:     req.Quantity,
		ConditionNew: req.ConditionNew,
		Properties:   req.Properties,
		Category:     req.Category,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Address:      req.Address,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreateListing, "listing", listing.ID, c.ClientIP(),
		map[string]interface{}{"title": listing.Title, "category": listing.Category, "price": listing.Price})

	c.JSON(http.StatusCreated, listing)
}

// UpdateListing applies a partial update to a listing
// @Summary     Update a listing
// @Description Update fields of a listing owned by the caller
// @Tags        listings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Listing id"
// @Param       request body UpdateListingRequest true "Fields to change"
// @Success     200 {object} services.ListingView "Updated listing"
// @Failure     400 {object} ErrorResponse "Invalid input or category"
// @Failure     403 {object} ErrorResponse "Not the seller"
// @Failure     404 {object} ErrorResponse "Listing not found"
// @Router      /listings/{id} [patch]
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	listing, err := h.listingService.UpdateListing(userID, c.Param("id"), services.ListingPatch{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Quantity:     req.Quantity,
		ConditionNew: req.ConditionNew,
		Properties:   req.Properties,
		Category:     req.Category,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Address:      req.Address,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdateListing, "listing", listing.ID, c.ClientIP(), nil)
	c.JSON(http.StatusOK, listing)
}

// DeleteListing closes or deletes a listing
// @Summary     Delete a listing
// @Description Close (default) or delete a listing owned by the caller, depending on server configuration
// @Tags        listings
// @Security    BearerAuth
// @Param       id path string true "Listing id"
// @Success     204 "Listing removed"
// @Failure     403 {object} ErrorResponse "Not the seller"
// @Failure     404 {object} ErrorResponse "Listing not found"
// @Router      /listings/{id} [delete]
func (h *ListingHandler) DeleteListing(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	token := c.Param("id")
	if err := h.listingService.DeleteListing(userID, token); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeleteListing, "listing", token, c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}

// AddPhoto reserves a photo slot and returns a presigned upload URL
// @Summary     Add a photo
// @Description Reserve the next photo slot of a listing; upload the image with PUT to upload_url
// @Tags        listings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string          true "Listing id"
// @Param       request body AddPhotoRequest true "Image content type"
// @Success     201 {object} services.PhotoUpload "Photo slot and upload URL"
// @Failure     400 {object} ErrorResponse "Unsupported content type"
// @Failure     403 {object} ErrorResponse "Not the seller"
// @Failure     503 {object} ErrorResponse "Storage not configured"
// @Router      /listings/{id}/photos [post]
func (h *ListingHandler) AddPhoto(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	token := c.Param("id")
	upload, err := h.listingService.AddPhoto(c.Request.Context(), userID, token, req.ContentType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditAddPhoto, "listing", token, c.ClientIP(),
		map[string]interface{}{"position": upload.Photo.Position})

	c.JSON(http.StatusCreated, upload)
}
