package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/quizadmin/internal/store"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parsePage reads page (1-based) and page_size.
func parsePage(r *http.Request) store.Page {
	size := parseIntParam(r, "page_size", store.DefaultPageSize)
	if size > store.MaxPageSize {
		size = store.MaxPageSize
	}
	page := parseIntParam(r, "page", 1)
	return store.Page{Limit: size, Offset: (page - 1) * size}
}

// parseBoolParam returns nil when the parameter is absent or invalid.
func parseBoolParam(r *http.Request, name string) *bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return nil
	}
	return &v
}

// parseDateParam parses a YYYY-MM-DD parameter. endOfDay moves the result
// to the last second of that day.
func parseDateParam(r *http.Request, name string, endOfDay bool) time.Time {
	t, err := time.Parse("2006-01-02", r.URL.Query().Get(name))
	if err != nil {
		return time.Time{}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t
}

// decodeJSON reads a JSON body into v, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return nil
}

// attachment sets download headers for a timestamped file.
func attachment(w http.ResponseWriter, contentType, prefix, ext string) {
	name := fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
}
