package store

import (
	"strconv"
	"strings"
	"time"
)

// WhereBuilder assembles a parameterized WHERE clause. Conditions are
// joined with AND; placeholders are numbered in the order added.
type WhereBuilder struct {
	conds []string
	args  []any
}

// NewWhereBuilder returns an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// Add appends "col = $n" unless val is empty.
func (w *WhereBuilder) Add(col, val string) *WhereBuilder {
	if val == "" {
		return w
	}
	return w.AddRaw(col+" = ?", val)
}

// AddBool appends "col = $n" when v is set.
func (w *WhereBuilder) AddBool(col string, v *bool) *WhereBuilder {
	if v == nil {
		return w
	}
	return w.AddRaw(col+" = ?", *v)
}

// AddTimestampRange appends an inclusive lower and exclusive upper bound.
// Zero times are skipped.
func (w *WhereBuilder) AddTimestampRange(col string, start, end time.Time) *WhereBuilder {
	if !start.IsZero() {
		w.AddRaw(col+" >= ?", start)
	}
	if !end.IsZero() {
		w.AddRaw(col+" < ?", end)
	}
	return w
}

// AddRaw appends cond, replacing each '?' with the next placeholder.
// len(args) must equal the number of '?' in cond.
func (w *WhereBuilder) AddRaw(cond string, args ...any) *WhereBuilder {
	var b strings.Builder
	n := len(w.args)
	for _, r := range cond {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	w.conds = append(w.conds, b.String())
	w.args = append(w.args, args...)
	return w
}

// Build returns " WHERE ..." (or "") and the argument list.
func (w *WhereBuilder) Build() (string, []any) {
	if len(w.conds) == 0 {
		return "", w.args
	}
	return " WHERE " + strings.Join(w.conds, " AND "), w.args
}

// NextArgIndex is the placeholder number the next argument would get.
func (w *WhereBuilder) NextArgIndex() int {
	return len(w.args) + 1
}

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageSize applies when a Page has no limit.
const DefaultPageSize = 50

// MaxPageSize caps client-requested limits.
const MaxPageSize = 500

// normalize fills defaults and clamps bounds.
func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// clause returns " LIMIT $n OFFSET $n+1" using w's next placeholders and
// the args to append.
func (p Page) clause(w *WhereBuilder) (string, []any) {
	p = p.normalize()
	n := w.NextArgIndex()
	return " LIMIT $" + strconv.Itoa(n) + " OFFSET $" + strconv.Itoa(n+1), []any{p.Limit, p.Offset}
}
