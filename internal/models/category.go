package models

// SentinelCategoryName is the reserved category that listings fall back to
// when the category they were filed under has been deleted.
const SentinelCategoryName = "__uncategorized__"

// Category is a node of the global classification tree. Names are unique
// across the whole tree. Lft/Rgt/Level are nested-set bounds and are only
// written by a rebuild.
type Category struct {
	Base
	Name     string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	ParentID *uint  `gorm:"index" json:"-"`
	Lft      int    `gorm:"index;not null;default:0" json:"-"`
	Rgt      int    `gorm:"not null;default:0" json:"-"`
	Level    int    `gorm:"not null;default:0" json:"level"`

	Parent *Category `gorm:"foreignKey:ParentID" json:"-"`
}

// IsSentinel reports whether c is the reserved fallback category.
func (c *Category) IsSentinel() bool {
	return c.Name == SentinelCategoryName
}
