package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// Listing page size bounds shared by every listing endpoint.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxPage         = 1000000
)

// ListFilter captures the keyword, sort and paging options common to listings.
type ListFilter struct {
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// Normalize clamps paging to 1 <= page <= MaxPage and 1 <= size <= MaxPageSize.
// A missing size falls back to DefaultPageSize.
func (f ListFilter) Normalize() (page, size int) {
	page = f.Page
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	size = f.PageSize
	if size == 0 {
		size = DefaultPageSize
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// NewPagination builds pagination metadata; TotalPages is never below 1.
func NewPagination(page, size, total int) *Pagination {
	pages := 1
	if size > 0 && total > 0 {
		pages = (total + size - 1) / size
	}
	return &Pagination{Page: page, PageSize: size, TotalCount: total, TotalPages: pages}
}
