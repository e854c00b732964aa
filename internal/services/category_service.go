package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quicksell/internal/cache"
	apperrors "quicksell/internal/errors"
	"quicksell/internal/logger"
	"quicksell/internal/metrics"
	"quicksell/internal/models"
	"quicksell/internal/tree"
)

// categoryService maintains the global category tree. Every structural
// change rebuilds the nested-set bounds inside the same transaction, so
// bounds read outside a transaction are always current.
type categoryService struct {
	db      *gorm.DB
	cache   *cache.CategoryCache
	metrics *metrics.Collector
}

// NewCategoryService creates a new CategoryServicer. cache and collector may be nil.
func NewCategoryService(db *gorm.DB, treeCache *cache.CategoryCache, collector *metrics.Collector) CategoryServicer {
	return &categoryService{db: db, cache: treeCache, metrics: collector}
}

// CreateCategory adds a node under parentName, or as a root when parentName is nil.
func (s *categoryService) CreateCategory(name string, parentName *string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if name == models.SentinelCategoryName {
		return nil, apperrors.ErrReservedCategoryName
	}

	var category models.Category
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Category{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateCategory
		}

		category = models.Category{Name: name}
		if parentName != nil {
			parent, err := findCategory(tx, strings.TrimSpace(*parentName))
			if err != nil {
				if errors.Is(err, apperrors.ErrCategoryNotFound) {
					return apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
				}
				return err
			}
			if parent.IsSentinel() {
				return apperrors.WithMessage(apperrors.ErrReservedCategoryName, "the uncategorized category cannot have children")
			}
			category.ParentID = &parent.ID
		}

		if err := tx.Create(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrDuplicateCategory
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if _, err := s.rebuild(tx); err != nil {
			return err
		}
		return tx.First(&category, category.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(context.Background())
	return &category, nil
}

// IsLeaf reports whether the named category has no children right now.
// It counts children instead of trusting the bounds.
func (s *categoryService) IsLeaf(name string) (bool, error) {
	category, err := findCategory(s.db, name)
	if err != nil {
		return false, err
	}
	children, err := countChildren(s.db, category.ID)
	if err != nil {
		return false, err
	}
	return children == 0, nil
}

// ResolveOrSentinel returns the referenced category, or the sentinel when
// the reference is nil or dangling. It never writes.
func (s *categoryService) ResolveOrSentinel(categoryID *uint) (*models.Category, error) {
	if categoryID != nil {
		var category models.Category
		err := s.db.First(&category, *categoryID).Error
		if err == nil {
			return &category, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	sentinel, err := findCategory(s.db, models.SentinelCategoryName)
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, errors.New("sentinel category is missing"))
		}
		return nil, err
	}
	return sentinel, nil
}

// EnsureSentinel creates the sentinel category if it does not exist.
// Called once at startup.
func (s *categoryService) EnsureSentinel() (*models.Category, error) {
	var sentinel models.Category
	err := s.db.Transaction(func(tx *gorm.DB) error {
		created, err := ensureSentinel(tx, &sentinel)
		if err != nil {
			return err
		}
		if created {
			logger.Get().Infow("created sentinel category", "name", models.SentinelCategoryName)
			if _, err := s.rebuild(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sentinel, nil
}

// Rebuild recomputes the bounds of the whole tree.
func (s *categoryService) Rebuild() error {
	var nodes int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		nodes, err = s.rebuild(tx)
		return err
	})
	if err != nil {
		return err
	}
	logger.Get().Infow("category tree rebuilt", "nodes", nodes)
	s.cache.Invalidate(context.Background())
	return nil
}

// Tree returns the nested name map without the sentinel, from cache when possible.
func (s *categoryService) Tree(ctx context.Context) (tree.Nested, error) {
	if nested, ok := s.cache.GetTree(ctx); ok {
		return nested, nil
	}

	nodes, _, err := loadNodes(s.db)
	if err != nil {
		return nil, err
	}
	nested := tree.Nest(nodes, models.SentinelCategoryName)
	s.cache.SetTree(ctx, nested)
	return nested, nil
}

// DeleteCategory removes a category without children. Listings filed under
// it lose their reference and read back as uncategorized.
func (s *categoryService) DeleteCategory(name string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx.Clauses(clause.Locking{Strength: "UPDATE"}), name)
		if err != nil {
			return err
		}
		if category.IsSentinel() {
			return apperrors.ErrReservedCategoryName
		}

		children, err := countChildren(tx, category.ID)
		if err != nil {
			return err
		}
		if children > 0 {
			return apperrors.ErrCategoryHasChildren
		}

		if err := tx.Model(&models.Listing{}).Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		_, err = s.rebuild(tx)
		return err
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(context.Background())
	return nil
}

// Import replaces the whole tree with doc. Names are created depth-first,
// parents before children, and bounds are rebuilt once at the end. Any
// failure rolls back everything. Returns the number of categories created.
func (s *categoryService) Import(doc tree.Nested) (int, error) {
	if err := validateImport(doc); err != nil {
		return 0, err
	}

	created := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sentinel models.Category
		if _, err := ensureSentinel(tx, &sentinel); err != nil {
			return err
		}

		if err := tx.Model(&models.Listing{}).
			Where("category_id IS NOT NULL AND category_id <> ?", sentinel.ID).
			Update("category_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("id <> ?", sentinel.ID).Delete(&models.Category{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		ids := make(map[string]uint, tree.Size(doc))
		err := tree.Walk(doc, func(parent *string, name string) error {
			category := models.Category{Name: name}
			if parent != nil {
				parentID := ids[*parent]
				category.ParentID = &parentID
			}
			if err := tx.Create(&category).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperrors.WithMessage(apperrors.ErrDuplicateCategory, fmt.Sprintf("duplicate category name %q", name))
				}
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			ids[name] = category.ID
			created++
			return nil
		})
		if err != nil {
			return err
		}

		_, err = s.rebuild(tx)
		return err
	})
	if err != nil {
		return 0, err
	}

	logger.Get().Infow("category tree imported", "categories", created)
	s.cache.Invalidate(context.Background())
	return created, nil
}

// ValidateAssignment checks that name can be assigned to a listing inside
// tx. The row is share-locked so it cannot be deleted before tx commits.
func (s *categoryService) ValidateAssignment(tx *gorm.DB, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCategory, "category is required")
	}
	if name == models.SentinelCategoryName {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCategory, "listings cannot be filed as uncategorized")
	}

	category, err := findCategory(tx.Clauses(clause.Locking{Strength: "SHARE"}), name)
	if err != nil {
		if errors.Is(err, apperrors.ErrCategoryNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidCategory, fmt.Sprintf("category %q does not exist", name))
		}
		return nil, err
	}

	children, err := countChildren(tx, category.ID)
	if err != nil {
		return nil, err
	}
	if children > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrNonLeafCategory, fmt.Sprintf("category %q has subcategories", name))
	}
	return category, nil
}

// CountListings counts active listings filed anywhere under the named
// category, using its nested-set bounds.
func (s *categoryService) CountListings(name string) (int64, error) {
	category, err := findCategory(s.db, name)
	if err != nil {
		return 0, err
	}

	query := s.db.Model(&models.Listing{}).Where("listings.status = ?", models.ListingStatusActive)
	if category.IsSentinel() {
		query = query.Where(
			"(listings.category_id IS NULL OR listings.category_id NOT IN (SELECT id FROM categories) OR listings.category_id = ?)",
			category.ID,
		)
	} else {
		query = query.Joins("JOIN categories ON categories.id = listings.category_id").
			Where("categories.lft >= ? AND categories.rgt <= ?", category.Lft, category.Rgt)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// rebuild recomputes lft/rgt/level for every row and writes back the ones
// that changed. It is the only writer of the bounds.
func (s *categoryService) rebuild(tx *gorm.DB) (int, error) {
	nodes, rows, err := loadNodes(tx)
	if err != nil {
		return 0, err
	}

	rebuilt, err := tree.Rebuild(nodes)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i, n := range rebuilt {
		row := rows[i]
		if row.Lft == n.Lft && row.Rgt == n.Rgt && row.Level == n.Level {
			continue
		}
		if err := tx.Model(&models.Category{}).Where("id = ?", n.ID).
			UpdateColumns(map[string]any{"lft": n.Lft, "rgt": n.Rgt, "level": n.Level}).Error; err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	s.metrics.RecordRebuild(len(rebuilt))
	return len(rebuilt), nil
}

func loadNodes(db *gorm.DB) ([]tree.Node, []models.Category, error) {
	var rows []models.Category
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	nodes := make([]tree.Node, len(rows))
	for i, r := range rows {
		nodes[i] = tree.Node{ID: r.ID, ParentID: r.ParentID, Name: r.Name, Lft: r.Lft, Rgt: r.Rgt, Level: r.Level}
	}
	return nodes, rows, nil
}

func findCategory(db *gorm.DB, name string) (*models.Category, error) {
	var category models.Category
	if err := db.Where("name = ?", name).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

func countChildren(db *gorm.DB, id uint) (int64, error) {
	var count int64
	if err := db.Model(&models.Category{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// ensureSentinel loads the sentinel into dst, creating it if needed.
func ensureSentinel(tx *gorm.DB, dst *models.Category) (bool, error) {
	err := tx.Where("name = ?", models.SentinelCategoryName).First(dst).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	*dst = models.Category{Name: models.SentinelCategoryName}
	if err := tx.Create(dst).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return true, nil
}

// validateImport rejects documents with empty, reserved or repeated names
// before anything is touched.
func validateImport(doc tree.Nested) error {
	seen := make(map[string]bool, tree.Size(doc))
	return tree.Walk(doc, func(_ *string, name string) error {
		switch {
		case strings.TrimSpace(name) != name || name == "":
			return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("invalid category name %q", name))
		case name == models.SentinelCategoryName:
			return apperrors.ErrReservedCategoryName
		case seen[name]:
			return apperrors.WithMessage(apperrors.ErrDuplicateCategory, fmt.Sprintf("duplicate category name %q", name))
		}
		seen[name] = true
		return nil
	})
}
