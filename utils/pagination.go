package utils

import "github.com/gofiber/fiber/v2"

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Pagination reads page/page_size query params with sane clamping.
func Pagination(c *fiber.Ctx) (page, pageSize int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = c.QueryInt("page_size", DefaultPageSize)
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
