// File: internal/common/pagination.go
package common

import (
	"github.com/gin-gonic/gin"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageQuery is the ?page=&page_size= pair accepted by list endpoints.
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1"`
}

// Normalize fills defaults and caps the page size.
func (q PageQuery) Normalize() PageQuery {
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	q.PageSize = min(q.PageSize, MaxPageSize)
	return q
}

// GetPaginationParams reads pagination from the query string. Malformed values fall back to the
// defaults rather than failing the request.
func GetPaginationParams(c *gin.Context) (page, pageSize int) {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		q = PageQuery{}
	}
	q = q.Normalize()
	return q.Page, q.PageSize
}

// Offset is the row offset for a 1-based page.
func Offset(page, pageSize int) int {
	if page <= 0 {
		page = DefaultPage
	}
	return (page - 1) * pageSize
}
