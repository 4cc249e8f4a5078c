package dto

import "io"

// PageQuery is bound from ?page=&limit= on list endpoints.
type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

type PaginationMeta struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalItems  int `json:"total_items"`
	Limit       int `json:"limit"`
}

// Bounds returns the slice bounds of the requested page over total items.
func (q PageQuery) Bounds(total, defaultLimit int) (start, end int, meta PaginationMeta) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}

	start = (page - 1) * limit
	if start > total {
		start = total
	}
	end = start + limit
	if end > total {
		end = total
	}

	meta = PaginationMeta{
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
		TotalItems:  total,
		Limit:       limit,
	}
	return start, end, meta
}

// Paginate slices items to the requested page.
func Paginate[T any](items []T, q PageQuery, defaultLimit int) ([]T, PaginationMeta) {
	start, end, meta := q.Bounds(len(items), defaultLimit)
	return items[start:end], meta
}

// UploadFile is a multipart file handed from a handler to a service.
type UploadFile struct {
	Reader   io.Reader
	FileName string
}
