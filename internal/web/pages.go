package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/quizadmin/internal/web/templates"
)

// pageURL rebuilds the current query with page replaced.
func pageURL(path string, query url.Values, page int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	return path + "?" + q.Encode()
}

// pager links to the neighbouring pages of the current list.
func pager(r *http.Request, more bool) templ.Component {
	page := parseIntParam(r, "page", 1)
	var prev, next string
	if page > 1 {
		prev = pageURL(r.URL.Path, r.URL.Query(), page-1)
	}
	if more {
		next = pageURL(r.URL.Path, r.URL.Query(), page+1)
	}
	return templates.Pager(prev, next, page)
}
