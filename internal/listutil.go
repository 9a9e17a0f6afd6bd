package internal

import (
	"net/http"
	"strconv"
	"strings"
)

// listParams holds common query parameters for list endpoints
type listParams struct {
	limit  int
	offset int
	q      string
	status string
}

// parseListParams parses limit, offset, q and status from the request
// Defaults: limit=50 (max 200), offset=0
func parseListParams(r *http.Request) listParams {
	values := r.URL.Query()

	limit := 50
	if s := strings.TrimSpace(values.Get("limit")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			if v > 200 {
				v = 200
			}
			limit = v
		}
	}

	offset := 0
	if s := strings.TrimSpace(values.Get("offset")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	q := strings.TrimSpace(values.Get("q"))
	if q == "" {
		q = strings.TrimSpace(values.Get("search"))
	}

	return listParams{
		limit:  limit,
		offset: offset,
		q:      q,
		status: strings.TrimSpace(values.Get("status")),
	}
}

// cacheParams is the part of the list parameters that changes the stored query
func (p listParams) cacheParams() string {
	return "q=" + p.q + "&status=" + p.status
}

type listMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type listResponse struct {
	Data any      `json:"data"`
	Meta listMeta `json:"meta"`
}

// sendListResponse writes one page of results with the total before paging
func sendListResponse(w http.ResponseWriter, data any, total int, params listParams) {
	writeJSON(w, http.StatusOK, listResponse{
		Data: data,
		Meta: listMeta{Total: total, Limit: params.limit, Offset: params.offset},
	})
}

// page slices an already filtered result set
func page[T any](items []T, params listParams) []T {
	if params.offset >= len(items) {
		return []T{}
	}
	end := params.offset + params.limit
	if end > len(items) {
		end = len(items)
	}
	return items[params.offset:end]
}
