package handler

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset from the query string. A missing or
// malformed limit falls back to DefaultLimit; an oversized one is capped.
func ParsePagination(r *http.Request) PaginationParams {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	switch {
	case err != nil || limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(q.Get("offset"))
	return PaginationParams{Limit: limit, Offset: max(offset, 0)}
}

// queryFlag accepts "true" and "1"; anything else is false.
func queryFlag(r *http.Request, name string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && b
}
