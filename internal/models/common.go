package models

// PageSize is the fixed page size applied to every list endpoint.
const PageSize = 20

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NewPagination normalises the page number and returns list metadata.
func NewPagination(page, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	return &Pagination{Page: page, PageSize: PageSize, TotalCount: total}
}
