package kit

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// PagingParams holds normalized limit/offset values from a request.
type PagingParams struct {
	Limit  int
	Offset int
}

// ParsePaging reads limit/offset query params. Out-of-range values are
// rejected, not clamped.
func ParsePaging(c *fiber.Ctx, def, max int) (PagingParams, error) {
	limit := c.QueryInt("limit", def)
	if limit < 1 || limit > max {
		return PagingParams{}, ValidationError("limit out of range", fiber.Map{"limit": limit, "min": 1, "max": max})
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		return PagingParams{}, ValidationError("offset must not be negative", fiber.Map{"offset": offset})
	}
	return PagingParams{Limit: limit, Offset: offset}, nil
}

// ClampPaging normalizes limit/offset from a request body (POST endpoints
// carry paging in JSON instead of the query string).
func ClampPaging(limit, offset, def, max int) PagingParams {
	if limit == 0 {
		limit = def
	}
	return PagingParams{
		Limit:  lo.Clamp(limit, 1, max),
		Offset: lo.Max([]int{0, offset}),
	}
}
