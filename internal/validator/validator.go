// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"quicksell/internal/models"
)

// maxCategoryName matches the categories.name column size.
const maxCategoryName = 100

var photoContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("category_name", validateCategoryName)
	_ = v.RegisterValidation("latitude", validateLatitude)
	_ = v.RegisterValidation("longitude", validateLongitude)
	_ = v.RegisterValidation("photo_content_type", validatePhotoContentType)
}

// validateCategoryName accepts a trimmed, non-empty name that is not the
// reserved sentinel.
func validateCategoryName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > maxCategoryName {
		return false
	}
	if strings.TrimSpace(name) != name {
		return false
	}
	return name != models.SentinelCategoryName
}

func validateLatitude(fl validator.FieldLevel) bool {
	return inRange(fl.Field(), 90)
}

func validateLongitude(fl validator.FieldLevel) bool {
	return inRange(fl.Field(), 180)
}

func inRange(field reflect.Value, limit float64) bool {
	switch field.Kind() {
	case reflect.Float32, reflect.Float64:
		v := field.Float()
		return v >= -limit && v <= limit
	}
	return false
}

func validatePhotoContentType(fl validator.FieldLevel) bool {
	return photoContentTypes[fl.Field().String()]
}
