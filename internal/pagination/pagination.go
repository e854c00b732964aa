// Package pagination implements fixed-size page slicing and the
// {count, next, previous, results} envelope returned by list endpoints.
package pagination

import (
	"net/url"
	"strconv"

	"gorm.io/gorm"
)

// PageParam is the query parameter carrying the 1-based page number.
const PageParam = "page"

// Page is a slice of results plus links to the adjacent pages.
// Next and Previous are absolute URLs or null.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Request identifies the page being asked for.
type Request struct {
	Page     int
	PageSize int
	// URL is the absolute request URL the links are derived from.
	URL *url.URL
}

// Offset returns the SQL OFFSET for the current page.
// Callers check Beyond first; a page past the end has no rows to fetch.
func (r Request) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// Beyond reports whether the page lies past the last page of count items.
// The comparison is done on page numbers, so it holds for any page value.
func (r Request) Beyond(count int64) bool {
	return r.Page > PageCount(count, r.PageSize)
}

// PageCount returns ceil(count/size). Zero items means zero pages.
func PageCount(count int64, size int) int {
	if size <= 0 || count <= 0 {
		return 0
	}
	return int((count + int64(size) - 1) / int64(size))
}

// ParsePage reads the page parameter. A missing value means the first page;
// anything that is not an integer >= 1 is rejected.
func ParsePage(values url.Values) (int, bool) {
	raw := values.Get(PageParam)
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

// Links builds the next and previous URLs for page out of pageCount.
// The previous link of page 2 drops the page parameter entirely.
func Links(requestURL *url.URL, page, pageCount int) (next, previous *string) {
	if requestURL == nil {
		return nil, nil
	}
	if page < pageCount {
		s := withPage(requestURL, page+1)
		next = &s
	}
	if page > 1 {
		s := withPage(requestURL, page-1)
		previous = &s
	}
	return next, previous
}

func withPage(u *url.URL, page int) string {
	cp := *u
	q := cp.Query()
	if page <= 1 {
		q.Del(PageParam)
	} else {
		q.Set(PageParam, strconv.Itoa(page))
	}
	cp.RawQuery = q.Encode()
	return cp.String()
}

// New assembles a Page, filling in the links. Results is never null.
func New[T any](results []T, count int64, req Request) *Page[T] {
	if results == nil {
		results = []T{}
	}
	next, previous := Links(req.URL, req.Page, PageCount(count, req.PageSize))
	return &Page[T]{
		Count:    count,
		Next:     next,
		Previous: previous,
		Results:  results,
	}
}

// Paginate returns a GORM scope that applies OFFSET and LIMIT for the given page request.
func Paginate(req Request) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.PageSize)
	}
}
