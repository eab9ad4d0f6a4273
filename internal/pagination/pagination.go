// Package pagination extracts and validates page/limit/sort query
// parameters for the list endpoints. Label listings can run to
// hundreds of emails, so responses are windowed with configurable
// defaults and a hard per-page ceiling.
package pagination

import (
	"net/url"
	"strconv"
)

// Params represents pagination parameters extracted from a request.
type Params struct {
	Page   int32  // Current page number (1-based)
	Limit  int32  // Number of items per page
	Offset int32  // Calculated offset into the result set
	Sort   string // Sort order: "newest" or "oldest"
}

const (
	// MaxLimit is the maximum number of items allowed per page
	MaxLimit int32 = 100
	// DefaultPage is the default page number when not specified
	DefaultPage int32 = 1
	// DefaultLimit is the default number of items per page when not specified
	DefaultLimit int32 = 10
	// DefaultSort is the default sort order when not specified
	DefaultSort = "newest"
)

func calculateOffset(page, limit int32) int32 {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

func isValidSort(sort string) bool {
	return sort == "newest" || sort == "oldest"
}

// Option configures the defaults used before query parameters are
// applied.
type Option func(*Params)

// WithDefaultLimit sets the default limit; values of zero or less are
// ignored.
func WithDefaultLimit(limit int32) Option {
	return func(p *Params) {
		if limit > 0 {
			p.Limit = limit
		}
	}
}

// FromQuery extracts pagination parameters from URL query values,
// applies any options, enforces the maximum limit, and calculates the
// offset.
func FromQuery(q url.Values, opts ...Option) *Params {
	params := &Params{
		Page:  DefaultPage,
		Limit: DefaultLimit,
		Sort:  DefaultSort,
	}

	for _, opt := range opts {
		opt(params)
	}

	if pageStr := q.Get("page"); pageStr != "" {
		if val, err := strconv.ParseInt(pageStr, 10, 32); err == nil && val > 0 {
			params.Page = int32(val)
		}
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		if val, err := strconv.ParseInt(limitStr, 10, 32); err == nil && val > 0 {
			params.Limit = int32(val)
		}
	}

	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}

	params.Offset = calculateOffset(params.Page, params.Limit)

	if sortStr := q.Get("sort"); sortStr != "" && isValidSort(sortStr) {
		params.Sort = sortStr
	}

	return params
}

// HasNext reports whether more items exist past the current window.
func HasNext(offset, limit, count int32) bool {
	return offset+limit < count
}

// Window slices [offset, offset+limit) out of a count-sized result
// set, clamping at the edges.
func Window(offset, limit, count int32) (start, end int32) {
	if offset >= count {
		return count, count
	}
	end = offset + limit
	if end > count {
		end = count
	}
	return offset, end
}
