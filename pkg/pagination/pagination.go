package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

// MaxLimit is the largest page size ever requested from a remote service.
const MaxLimit = 100

// Params holds page/limit pagination parameters.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewParams normalizes page and limit: non-positive values fall back to page 1
// and defaultLimit, and limit is capped at MaxLimit.
func NewParams(page, limit, defaultLimit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// FromRequest extracts page and limit from the query string.
func FromRequest(r *http.Request, defaultLimit int) Params {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return NewParams(page, limit, defaultLimit)
}

// Query encodes the params as page/limit query values.
func (p Params) Query() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

// Page is one page of a remote collection. Data and Total decode directly
// from the {data, total} list payload of the order and product services.
type Page[T any] struct {
	Data       []T  `json:"data"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPage creates a page and computes its navigation fields.
func NewPage[T any](data []T, total int, params Params) Page[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if params.Limit > 0 {
		totalPages = total / params.Limit
		if total%params.Limit > 0 {
			totalPages++
		}
	}

	return Page[T]{
		Data:       data,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
