package csvimport

import (
	"strings"
	"testing"
)

// csvLine renders cells as one CSV line, quoting where needed.
func csvLine(cells ...string) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if strings.ContainsAny(c, ",\"\n") {
			c = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
		}
		out[i] = c
	}
	return strings.Join(out, ",")
}

// validCells returns a complete valid row keyed by column.
func validCells() map[string]string {
	return map[string]string{
		ColQuestionText:   "What is 2+2?",
		ColQuestionTextHi: "2+2 क्या है?",
		OptionCol(1):      "3",
		OptionColHi(1):    "३",
		OptionCol(2):      "4",
		OptionColHi(2):    "४",
		ColCorrectOption:  "1",
		ColExplanation:    "Two plus two is four.",
		ColExplanationHi:  "दो और दो चार होते हैं।",
		ColTopicID:        "math",
		ColDifficulty:     "easy",
		ColIsPYQ:          "false",
	}
}

// rowLine renders cells in template column order.
func rowLine(cells map[string]string) string {
	record := make([]string, len(Columns))
	for i, c := range Columns {
		record[i] = cells[c]
	}
	return csvLine(record...)
}

func headerLine() string { return strings.Join(Columns, ",") }

// buildCSV joins a header and rows into CSV text.
func buildCSV(rows ...map[string]string) string {
	lines := []string{headerLine()}
	for _, r := range rows {
		lines = append(lines, rowLine(r))
	}
	return strings.Join(lines, "\n") + "\n"
}

// mustParseOne parses text expected to hold exactly one row.
func mustParseOne(t *testing.T, text string) QuestionRow {
	t.Helper()
	rows, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Parse() returned %d rows, want 1", len(rows))
	}
	return rows[0]
}

// rowFrom builds a QuestionRow directly from cells.
func rowFrom(cells map[string]string) QuestionRow {
	raw := make(RawRow, len(Columns))
	for _, c := range Columns {
		raw[c] = cells[c]
	}
	return newQuestionRow(raw)
}

func with(cells map[string]string, kv ...string) map[string]string {
	out := make(map[string]string, len(cells))
	for k, v := range cells {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func containsMsg(errs []string, msg string) bool {
	for _, e := range errs {
		if e == msg {
			return true
		}
	}
	return false
}
