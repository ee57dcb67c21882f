package dto

// Pagination is returned next to "data" by every paginated list endpoint.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// PageResponse is the success envelope for paginated lists.
type PageResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
