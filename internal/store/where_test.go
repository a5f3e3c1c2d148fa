package store

import (
	"reflect"
	"testing"
	"time"
)

func TestWhereBuilder(t *testing.T) {
	yes := true
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		build    func(*WhereBuilder)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "empty",
			build:    func(*WhereBuilder) {},
			wantSQL:  "",
			wantArgs: nil,
		},
		{
			name:     "skips empty values",
			build:    func(w *WhereBuilder) { w.Add("topic_id", "").AddBool("is_pyq", nil) },
			wantSQL:  "",
			wantArgs: nil,
		},
		{
			name: "numbers placeholders in order",
			build: func(w *WhereBuilder) {
				w.Add("topic_id", "math").
					AddBool("is_pyq", &yes).
					AddRaw("(a ILIKE ? OR b ILIKE ?)", "%x%", "%x%")
			},
			wantSQL:  " WHERE topic_id = $1 AND is_pyq = $2 AND (a ILIKE $3 OR b ILIKE $4)",
			wantArgs: []any{"math", true, "%x%", "%x%"},
		},
		{
			name:     "open ended range",
			build:    func(w *WhereBuilder) { w.AddTimestampRange("created_at", start, time.Time{}) },
			wantSQL:  " WHERE created_at >= $1",
			wantArgs: []any{start},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWhereBuilder()
			tt.build(w)
			sql, args := w.Build()
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestPageClause(t *testing.T) {
	w := NewWhereBuilder().Add("status", "open")

	sql, args := Page{}.clause(w)
	if sql != " LIMIT $2 OFFSET $3" {
		t.Errorf("sql = %q", sql)
	}
	if !reflect.DeepEqual(args, []any{DefaultPageSize, 0}) {
		t.Errorf("args = %v", args)
	}

	_, args = Page{Limit: 10000, Offset: -5}.clause(w)
	if !reflect.DeepEqual(args, []any{MaxPageSize, 0}) {
		t.Errorf("clamped args = %v", args)
	}
}

func TestPgUUID(t *testing.T) {
	if _, ok := pgUUID("not-a-uuid"); ok {
		t.Error("pgUUID accepted malformed id")
	}
	id := "6f1c2a9e-3b7d-4c1e-9a2b-1d2e3f4a5b6c"
	u, ok := pgUUID(id)
	if !ok || uuidString(u) != id {
		t.Errorf("round trip = %q, %v", uuidString(u), ok)
	}
	if pgText("  ").Valid || !pgText("x").Valid || pgInt4(0).Valid {
		t.Error("nullable helpers mis-map zero values")
	}
}
