package brightspace

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tidwall/gjson"
)

// Query keys and defaults of the bookmark pagination walker.
const (
	PageSizeParam = "pageSize"
	BookmarkParam = "bookmark"

	DefaultPageSize = 100
	DefaultMaxPages = 10
)

var (
	itemKeys   = []string{"Items", "items"}
	cursorKeys = []string{"Bookmark", "Next", "bookmark"}
)

// PageOptions controls Paginate. Zero values select the defaults.
type PageOptions struct {
	PageSize int
	MaxPages int
	// Params are merged over the page size; the bookmark is injected last.
	Params map[string]interface{}
}

// PageResult is the outcome of a pagination walk. When a page fails, Failed is
// set and Data holds that page's body; the items gathered so far are dropped.
type PageResult struct {
	StatusCode   int
	Items        []interface{}
	Bookmarks    []string
	LastBookmark string

	Failed bool
	Data   Body
}

// MarshalJSON renders {status, items, bookmarks, last_bookmark} or, for a
// failed walk, {status, data}.
func (p *PageResult) MarshalJSON() ([]byte, error) {
	if p.Failed {
		return json.Marshal(struct {
			Status int  `json:"status"`
			Data   Body `json:"data"`
		}{p.StatusCode, p.Data})
	}

	var last *string
	if p.LastBookmark != "" {
		last = &p.LastBookmark
	}
	items := p.Items
	if items == nil {
		items = []interface{}{}
	}
	bookmarks := p.Bookmarks
	if bookmarks == nil {
		bookmarks = []string{}
	}
	return json.Marshal(struct {
		Status       int           `json:"status"`
		Items        []interface{} `json:"items"`
		Bookmarks    []string      `json:"bookmarks"`
		LastBookmark *string       `json:"last_bookmark"`
	}{p.StatusCode, items, bookmarks, last})
}

// Paginate walks a bookmark-paged GET endpoint until the server stops
// returning a cursor or MaxPages pages have been fetched.
func (s *Session) Paginate(ctx context.Context, path string, opts PageOptions) (*PageResult, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	base := map[string]interface{}{PageSizeParam: opts.PageSize}
	for k, v := range opts.Params {
		base[k] = v
	}

	result := &PageResult{StatusCode: http.StatusOK, Items: []interface{}{}, Bookmarks: []string{}}
	var cursor string
	for page := 0; page < opts.MaxPages; page++ {
		params := make(map[string]interface{}, len(base)+1)
		for k, v := range base {
			params[k] = v
		}
		if cursor != "" {
			params[BookmarkParam] = cursor
		}

		resp, err := s.Do(ctx, Request{Method: http.MethodGet, Path: path, Params: params, ExpectStructured: true})
		if err != nil {
			return nil, err
		}
		obj, ok := resp.Body.Object()
		if resp.StatusCode >= 400 || !ok {
			s.logger.Debug("pagination of %s stopped at page %d: status %d, %s body", path, page+1, resp.StatusCode, resp.Body.Kind())
			return &PageResult{StatusCode: resp.StatusCode, Failed: true, Data: resp.Body}, nil
		}

		result.StatusCode = resp.StatusCode
		result.Items = append(result.Items, pageItems(obj)...)

		cursor = nextCursor(resp.Body.Raw())
		if cursor == "" {
			break
		}
		result.Bookmarks = append(result.Bookmarks, cursor)
	}

	result.LastBookmark = cursor
	return result, nil
}

// pageItems returns the first non-empty item list found under itemKeys.
func pageItems(obj map[string]interface{}) []interface{} {
	for _, key := range itemKeys {
		if items, ok := obj[key].([]interface{}); ok && len(items) > 0 {
			return items
		}
	}
	return nil
}

// nextCursor returns the first non-empty cursor found under cursorKeys, then
// falls back to PagingInfo.Bookmark while PagingInfo.HasMoreItems is true.
func nextCursor(raw []byte) string {
	for _, key := range cursorKeys {
		if v := cursorValue(gjson.GetBytes(raw, key)); v != "" {
			return v
		}
	}
	if gjson.GetBytes(raw, "PagingInfo.HasMoreItems").Bool() {
		return cursorValue(gjson.GetBytes(raw, "PagingInfo.Bookmark"))
	}
	return ""
}

func cursorValue(r gjson.Result) string {
	switch r.Type {
	case gjson.String, gjson.Number:
		return r.String()
	default:
		return ""
	}
}
