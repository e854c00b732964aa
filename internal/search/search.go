// Package search turns listing query parameters into a filtered, ordered
// GORM scope. The recognised parameters are an explicit table; anything
// not in it is ignored, and nothing is derived from the storage schema.
package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"

	apperrors "quicksell/internal/errors"
	"quicksell/internal/models"
	"quicksell/internal/pagination"
	"quicksell/internal/uuid"
)

// DefaultOrder applies when order_by is absent or not whitelisted.
const DefaultOrder = "-price"

// sortable maps the public order_by names to listing columns.
var sortable = map[string]string{
	"price":        "listings.price",
	"date_created": "listings.created_at",
	"views":        "listings.views",
	"sold":         "listings.sold",
	"quantity":     "listings.quantity",
	"title":        "listings.title",
}

// Query is a validated set of listing filters. Nil fields are not filtered on.
type Query struct {
	Title        *string
	MinPrice     *int64
	MaxPrice     *int64
	ConditionNew *bool
	Category     *string
	// Seller is the canonical UUID of the seller.
	Seller  *string
	OrderBy string
	Page    int
}

type param struct {
	name string
	// parse validates raw and stores it on q.
	parse func(raw string, q *Query) error
	// apply adds the predicate when the parsed value is set.
	apply func(q *Query, db *gorm.DB) *gorm.DB
}

var params = []param{
	{
		name: "title",
		parse: func(raw string, q *Query) error {
			q.Title = &raw
			return nil
		},
		apply: func(q *Query, db *gorm.DB) *gorm.DB {
			if q.Title == nil {
				return db
			}
			return db.Where("LOWER(listings.title) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(*q.Title))+"%")
		},
	},
	{
		name: "min_price",
		parse: func(raw string, q *Query) error {
			v, err := parsePrice(raw)
			q.MinPrice = v
			return err
		},
		apply: func(q *Query, db *gorm.DB) *gorm.DB {
			if q.MinPrice == nil {
				return db
			}
			return db.Where("listings.price >= ?", *q.MinPrice)
		},
	},
	{
		name: "max_price",
		parse: func(raw string, q *Query) error {
			v, err := parsePrice(raw)
			q.MaxPrice = v
			return err
		},
		apply: func(q *Query, db *gorm.DB) *gorm.DB {
			if q.MaxPrice == nil {
				return db
			}
			return db.Where("listings.price <= ?", *q.MaxPrice)
		},
	},
	{
		name: "condition_new",
		parse: func(raw string, q *Query) error {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("must be a boolean")
			}
			q.ConditionNew = &v
			return nil
		},
		apply: func(q *Query, db *gorm.DB) *gorm.DB {
			if q.ConditionNew == nil {
				return db
			}
			return db.Where("listings.condition_new = ?", *q.ConditionNew)
		},
	},
	{
		name: "category",
		parse: func(raw string, q *Query) error {
			q.Category = &raw
			return nil
		},
		apply: func(q *Query, db *gorm.DB) *gorm.DB {
			if q.Category == nil {
				return db
			}
			if *q.Category == models.SentinelCategoryName {
				// Listings whose category is gone read as uncategorized,
				// so they match the sentinel too.
				return db.Where(
					"(listings.category_id IS NULL OR listings.category_id NOT IN (SELECT id FROM categories) OR listings.category_id IN (SELECT id FROM categories WHERE name = ?))",
					*q.Category,
				)
			}
			return db.Where("listings.category_id IN (SELECT id FROM categories WHERE name = ?)", *q.Category)
		},
	},
	{
		name: "seller",
		parse: func(raw string, q *Query) error {
			id, err := parseSeller(raw)
			if err != nil {
				return err
			}
			q.Seller = &id
			return nil
		},
		apply: func(q *Query, db *gorm.DB) *gorm.DB {
			if q.Seller == nil {
				return db
			}
			return db.Where("listings.seller_id IN (SELECT id FROM users WHERE uuid = ?)", *q.Seller)
		},
	},
	{
		name: "order_by",
		parse: func(raw string, q *Query) error {
			q.OrderBy = normalizeOrder(raw)
			return nil
		},
	},
	{
		name: pagination.PageParam,
		parse: func(raw string, q *Query) error {
			page, ok := pagination.ParsePage(url.Values{pagination.PageParam: {raw}})
			if !ok {
				return fmt.Errorf("must be an integer greater than zero")
			}
			q.Page = page
			return nil
		},
	},
}

// Params returns the names of the recognised query parameters in table order.
func Params() []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.name
	}
	return names
}

// Parse validates values against the parameter table. Empty values count
// as absent. The first malformed value fails the whole query with
// INVALID_QUERY; it is never dropped silently.
func Parse(values url.Values) (Query, error) {
	q := Query{OrderBy: DefaultOrder, Page: 1}
	for _, p := range params {
		raw := strings.TrimSpace(values.Get(p.name))
		if raw == "" {
			continue
		}
		if err := p.parse(raw, &q); err != nil {
			return Query{}, apperrors.WithMessage(apperrors.ErrInvalidQuery, fmt.Sprintf("%s: %v", p.name, err))
		}
	}
	return q, nil
}

// Scope returns the conjunction of every supplied filter, restricted to
// active listings.
func (q Query) Scope() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("listings.status = ?", models.ListingStatusActive)
		for _, p := range params {
			if p.apply != nil {
				db = p.apply(&q, db)
			}
		}
		return db
	}
}

// OrderClause returns the ORDER BY expression for q. The listing id breaks
// ties so that page slices are reproducible.
func (q Query) OrderClause() string {
	order := normalizeOrder(q.OrderBy)
	direction := "ASC"
	if strings.HasPrefix(order, "-") {
		direction = "DESC"
		order = order[1:]
	}
	return fmt.Sprintf("%s %s, listings.id ASC", sortable[order], direction)
}

// normalizeOrder returns raw if it names a sortable field, otherwise the default.
func normalizeOrder(raw string) string {
	if _, ok := sortable[strings.TrimPrefix(raw, "-")]; ok {
		return raw
	}
	return DefaultOrder
}

func parsePrice(raw string) (*int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("must be an integer")
	}
	if v < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return &v, nil
}

func parseSeller(raw string) (string, error) {
	if uuid.IsValid(raw) {
		return uuid.Parse(raw)
	}
	id, err := uuid.Decode(raw)
	if err != nil {
		return "", fmt.Errorf("not a valid identifier")
	}
	return id, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
