package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/models"
	"quicksell/internal/services"
)

func setupProfileRouter(handler *ProfileHandler) *gin.Engine {
	r := gin.New()
	r.GET("/profiles/:id", handler.GetPublicProfile)
	auth := r.Group("", injectUserID(1))
	auth.GET("/profile", handler.GetProfile)
	auth.PATCH("/profile", handler.UpdateProfile)
	return r
}

func TestProfileHandler_GetProfile(t *testing.T) {
	t.Run("returns 200 with email", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByIDFn: func(id uint) (*models.User, error) {
				return testUser(id, "me@example.com"), nil
			},
		}
		r := setupProfileRouter(NewProfileHandler(userSvc))

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["email"] != "me@example.com" {
			t.Errorf("expected me@example.com, got %v", result["email"])
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewProfileHandler(&mockUserService{})
		r := gin.New()
		r.GET("/profile", handler.GetProfile)

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestProfileHandler_UpdateProfile(t *testing.T) {
	t.Run("passes fields through", func(t *testing.T) {
		var got services.ProfileUpdate
		userSvc := &mockUserService{
			updateProfileFn: func(id uint, update services.ProfileUpdate) (*models.User, error) {
				got = update
				return testUser(id, "me@example.com"), nil
			},
		}
		r := setupProfileRouter(NewProfileHandler(userSvc))

		rec := doRequest(r, "PATCH", "/profile", `{"about":"hi","latitude":10.5,"longitude":20.5}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.About == nil || *got.About != "hi" {
			t.Errorf("expected about to be passed, got %v", got.About)
		}
		if got.Latitude == nil || *got.Latitude != 10.5 || got.FullName != nil {
			t.Errorf("unexpected update: %+v", got)
		}
	})

	t.Run("returns 400 on out of range latitude", func(t *testing.T) {
		r := setupProfileRouter(NewProfileHandler(&mockUserService{}))

		rec := doRequest(r, "PATCH", "/profile", `{"latitude":95,"longitude":0}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestProfileHandler_GetPublicProfile(t *testing.T) {
	t.Run("hides email", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByTokenFn: func(_ string) (*models.User, error) {
				return testUser(5, "private@example.com"), nil
			},
		}
		r := setupProfileRouter(NewProfileHandler(userSvc))

		rec := doRequest(r, "GET", "/profiles/abc", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if _, ok := result["email"]; ok {
			t.Error("public profile must not include the email")
		}
		if result["full_name"] != "Test User" {
			t.Errorf("expected Test User, got %v", result["full_name"])
		}
	})

	t.Run("returns 404 for unknown user", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByTokenFn: func(_ string) (*models.User, error) {
				return nil, apperrors.ErrUserNotFound
			},
		}
		r := setupProfileRouter(NewProfileHandler(userSvc))

		rec := doRequest(r, "GET", "/profiles/missing", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "USER_NOT_FOUND")
	})
}
