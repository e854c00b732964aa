package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/models"
	"quicksell/internal/services"
)

// ProfileHandler handles own and public user profiles
type ProfileHandler struct {
	userService services.UserServicer
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(userService services.UserServicer) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

// UpdateProfileRequest represents the request payload for a profile PATCH
type UpdateProfileRequest struct {
	FullName  *string  `json:"full_name" binding:"omitempty,max=100"`
	About     *string  `json:"about" binding:"omitempty,max=1000"`
	Online    *bool    `json:"online"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" binding:"omitempty,longitude"`
	Address   *string  `json:"address" binding:"omitempty,max=1024"`
}

// ProfileResponse is the public view of a user
type ProfileResponse struct {
	ID          string           `json:"id"`
	FullName    string           `json:"full_name"`
	About       string           `json:"about"`
	Rating      int              `json:"rating"`
	Online      bool             `json:"online"`
	DateCreated time.Time        `json:"date_created"`
	Location    *models.Location `json:"location"`
}

// OwnProfileResponse adds private fields to the public profile
type OwnProfileResponse struct {
	ProfileResponse
	Email string `json:"email"`
}

func newProfileResponse(user *models.User) ProfileResponse {
	return ProfileResponse{
		ID:          user.Token(),
		FullName:    user.FullName,
		About:       user.About,
		Rating:      user.Rating,
		Online:      user.Online,
		DateCreated: user.CreatedAt,
		Location:    user.Location,
	}
}

// GetProfile returns the user's profile
// @Summary     Get own profile
// @Description Get the authenticated user's profile
// @Tags        profile
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} OwnProfileResponse "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, OwnProfileResponse{ProfileResponse: newProfileResponse(user), Email: user.Email})
}

// UpdateProfile updates the user's profile
// @Summary     Update own profile
// @Description Update profile fields; latitude and longitude must be sent together
// @Tags        profile
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateProfileRequest true "Profile fields"
// @Success     200 {object} OwnProfileResponse "Updated profile"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /profile [patch]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.userService.UpdateProfile(userID, services.ProfileUpdate{
		FullName:  req.FullName,
		About:     req.About,
		Online:    req.Online,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Address:   req.Address,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, OwnProfileResponse{ProfileResponse: newProfileResponse(user), Email: user.Email})
}

// GetPublicProfile returns another user's public profile
// @Summary     Get public profile
// @Description Get the public profile of a user by id
// @Tags        profile
// @Produce     json
// @Param       id path string true "User id"
// @Success     200 {object} ProfileResponse "Public profile"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /profiles/{id} [get]
func (h *ProfileHandler) GetPublicProfile(c *gin.Context) {
	user, err := h.userService.GetUserByToken(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProfileResponse(user))
}
