package brightspace

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedHandler serves the scripted pages in order and records the query of each call.
func pagedHandler(pages []func(w http.ResponseWriter)) (http.HandlerFunc, func() []map[string][]string) {
	var mu sync.Mutex
	var queries []map[string][]string
	handler := func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		n := len(queries)
		queries = append(queries, r.URL.Query())
		mu.Unlock()
		if n >= len(pages) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		pages[n](w)
	}
	return handler, func() []map[string][]string {
		mu.Lock()
		defer mu.Unlock()
		return queries
	}
}

func page(v interface{}) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) { writeJSON(w, http.StatusOK, v) }
}

func TestPaginateFollowsBookmarks(t *testing.T) {
	m := newMockBrightspace(t)
	handler, queries := pagedHandler([]func(http.ResponseWriter){
		page(map[string]interface{}{"Items": []int{1, 2}, "Bookmark": "b1"}),
		page(map[string]interface{}{"Items": []int{3}, "Bookmark": nil}),
	})
	m.handle("/d2l/api/lp/1.46/orgstructure/", handler)
	s, _ := m.session()

	res, err := s.Paginate(context.Background(), "/d2l/api/lp/1.46/orgstructure/", PageOptions{PageSize: 2})
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []interface{}{float64(1), float64(2), float64(3)}, res.Items)
	assert.Equal(t, []string{"b1"}, res.Bookmarks)
	assert.Empty(t, res.LastBookmark)

	q := queries()
	require.Len(t, q, 2)
	assert.Equal(t, []string{"2"}, q[0]["pageSize"])
	assert.NotContains(t, q[0], "bookmark")
	assert.Equal(t, []string{"b1"}, q[1]["bookmark"])

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":200,"items":[1,2,3],"bookmarks":["b1"],"last_bookmark":null}`, string(data))
}

func TestPaginateStopsOnFailedPage(t *testing.T) {
	m := newMockBrightspace(t)
	handler, queries := pagedHandler([]func(http.ResponseWriter){
		page(map[string]interface{}{"Items": []int{1}, "Bookmark": "b1"}),
		func(w http.ResponseWriter) {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"Error": "boom"})
		},
		page(map[string]interface{}{"Items": []int{2}}),
	})
	m.handle("/d2l/api/lp/1.46/users/", handler)
	s, _ := m.session()

	res, err := s.Paginate(context.Background(), "/d2l/api/lp/1.46/users/", PageOptions{})
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Len(t, queries(), 2, "walker must not continue after a failed page")

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":500,"data":{"Error":"boom"}}`, string(data))
}

func TestPaginateStopsOnUnstructuredPage(t *testing.T) {
	m := newMockBrightspace(t)
	m.handle("/d2l/api/lp/1.46/courses/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []int{1, 2})
	})
	s, _ := m.session()

	res, err := s.Paginate(context.Background(), "/d2l/api/lp/1.46/courses/", PageOptions{})
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestPaginateRespectsPageCap(t *testing.T) {
	m := newMockBrightspace(t)
	var mu sync.Mutex
	calls := 0
	m.handle("/d2l/api/lp/1.46/enrollments/myenrollments/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"Items":      []int{n},
			"PagingInfo": map[string]interface{}{"Bookmark": "p" + string(rune('0'+n)), "HasMoreItems": true},
		})
	})
	s, _ := m.session()

	res, err := s.Paginate(context.Background(), "/d2l/api/lp/1.46/enrollments/myenrollments/", PageOptions{MaxPages: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []interface{}{float64(1), float64(2), float64(3)}, res.Items)
	assert.Equal(t, []string{"p1", "p2", "p3"}, res.Bookmarks)
	assert.Equal(t, "p3", res.LastBookmark)
}

func TestPaginateCallerParamsOverridePageSize(t *testing.T) {
	m := newMockBrightspace(t)
	handler, queries := pagedHandler([]func(http.ResponseWriter){
		page(map[string]interface{}{"items": []string{"a"}}),
	})
	m.handle("/d2l/api/lp/1.46/users/", handler)
	s, _ := m.session()

	res, err := s.Paginate(context.Background(), "/d2l/api/lp/1.46/users/", PageOptions{
		PageSize: 10,
		Params:   map[string]interface{}{"pageSize": 5, "orgUnitId": 7},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a"}, res.Items)

	q := queries()
	require.Len(t, q, 1)
	assert.Equal(t, []string{"5"}, q[0]["pageSize"])
	assert.Equal(t, []string{"7"}, q[0]["orgUnitId"])
}

func TestNextCursor(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "Bookmark wins", body: `{"Bookmark":"a","Next":"b","bookmark":"c"}`, expected: "a"},
		{name: "empty Bookmark falls through", body: `{"Bookmark":"","Next":"b"}`, expected: "b"},
		{name: "lowercase bookmark", body: `{"bookmark":"c"}`, expected: "c"},
		{name: "numeric cursor", body: `{"Next":42}`, expected: "42"},
		{name: "paging info with more items", body: `{"PagingInfo":{"Bookmark":"p","HasMoreItems":true}}`, expected: "p"},
		{name: "paging info exhausted", body: `{"PagingInfo":{"Bookmark":"p","HasMoreItems":false}}`, expected: ""},
		{name: "nothing", body: `{"Items":[]}`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, nextCursor([]byte(tt.body)))
		})
	}
}
