package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// parsePagination reads offset and limit, clamping limit to 1..maxLimit.
func parsePagination(c *fiber.Ctx, defLimit, maxLimit int) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	limit = c.QueryInt("limit", defLimit)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxLimit {
		limit = defLimit
	}
	return offset, limit
}

// pageBounds returns the slice bounds of one page over total items.
func pageBounds(total, offset, limit int) (start, end int) {
	if offset >= total {
		return total, total
	}
	end = offset + limit
	if end > total {
		end = total
	}
	return offset, end
}

// SetLinkHeaders adds RFC 8288 Link headers for paginated responses.
// Extra query parameters (such as state) are carried into every link.
func SetLinkHeaders(c *fiber.Ctx, p Pagination, extra string) {
	base := c.Path()
	if extra != "" {
		extra = "&" + extra
	}
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d%s>; rel="%s"`, base, offset, p.Limit, extra, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		links = append(links, link(prev, "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	last := p.Total - p.Limit
	if last < 0 {
		last = 0
	}
	links = append(links, link(last, "last"))

	c.Set("Link", strings.Join(links, ", "))
}
