package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/services"
	"quicksell/internal/tree"
)

// CategoryHandler handles the category tree endpoints
type CategoryHandler struct {
	categoryService services.CategoryServicer
	auditService    services.AuditServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer, auditService services.AuditServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, auditService: auditService}
}

// CreateCategoryRequest represents the request payload for creating a category
type CreateCategoryRequest struct {
	Name   string  `json:"name" binding:"required,category_name"`
	Parent *string `json:"parent" binding:"omitempty,category_name"`
}

// CategoryResponse represents a category in the response
type CategoryResponse struct {
	Name   string  `json:"name"`
	Parent *string `json:"parent"`
	Level  int     `json:"level"`
}

// InfoResponse carries the reference data clients load at startup
type InfoResponse struct {
	Categories tree.Nested `json:"categories"`
}

// CountResponse is the number of active listings under a category
type CountResponse struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ImportResponse reports the result of a tree import
type ImportResponse struct {
	Created int `json:"created"`
}

// Info returns the category tree
// @Summary     Reference data
// @Description Nested category tree keyed by name; the uncategorized category is not included
// @Tags        categories
// @Produce     json
// @Success     200 {object} InfoResponse "Category tree"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /info [get]
func (h *CategoryHandler) Info(c *gin.Context) {
	nested, err := h.categoryService.Tree(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, InfoResponse{Categories: nested})
}

// CountListings returns the number of active listings in a category subtree
// @Summary     Count listings in a category
// @Description Counts active listings filed under the category or any of its descendants
// @Tags        categories
// @Produce     json
// @Param       name path string true "Category name"
// @Success     200 {object} CountResponse "Listing count"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{name}/count [get]
func (h *CategoryHandler) CountListings(c *gin.Context) {
	name := c.Param("name")
	count, err := h.categoryService.CountListings(name)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Category: name, Count: count})
}

// CreateCategory adds a category to the tree
// @Summary     Create a category
// @Description Add a category as a root or under an existing parent
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    AdminKey
// @Param       request body CreateCategoryRequest true "Category"
// @Success     201 {object} CategoryResponse "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Parent not found"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.CreateCategory(req.Name, req.Parent)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(0, services.AuditCreateCategory, "category", category.Name, c.ClientIP(),
		map[string]interface{}{"parent": req.Parent})

	c.JSON(http.StatusCreated, CategoryResponse{Name: category.Name, Parent: req.Parent, Level: category.Level})
}

// DeleteCategory removes a category without children
// @Summary     Delete a category
// @Description Delete a leaf category; its listings become uncategorized
// @Tags        admin
// @Security    AdminKey
// @Param       name path string true "Category name"
// @Success     204 "Category deleted"
// @Failure     400 {object} ErrorResponse "Reserved category"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Category has children"
// @Router      /categories/{name} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	name := c.Param("name")
	if err := h.categoryService.DeleteCategory(name); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(0, services.AuditDeleteCategory, "category", name, c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}

// ImportTree replaces the whole category tree
// @Summary     Import the category tree
// @Description Replace every category with the nested document; listings lose their category
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    AdminKey
// @Param       request body object true "Nested {name: children} document"
// @Success     200 {object} ImportResponse "Categories created"
// @Failure     400 {object} ErrorResponse "Invalid document"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /categories/import [post]
func (h *CategoryHandler) ImportTree(c *gin.Context) {
	var doc tree.Nested
	if err := c.ShouldBindJSON(&doc); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	created, err := h.categoryService.Import(doc)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(0, services.AuditImportTree, "category", "*", c.ClientIP(),
		map[string]interface{}{"created": created})

	c.JSON(http.StatusOK, ImportResponse{Created: created})
}

// RebuildTree recomputes the nested-set bounds
// @Summary     Rebuild the category tree
// @Description Recompute nested-set bounds from the parent links
// @Tags        admin
// @Security    AdminKey
// @Success     204 "Tree rebuilt"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories/rebuild [post]
func (h *CategoryHandler) RebuildTree(c *gin.Context) {
	if err := h.categoryService.Rebuild(); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(0, services.AuditRebuildTree, "category", "*", c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}
