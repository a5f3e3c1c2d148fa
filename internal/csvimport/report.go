package csvimport

import (
	"encoding/json"
	"fmt"
)

// Summary counts rows before import.
type Summary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// RowErrors lists the violations of one rejected row.
type RowErrors struct {
	Row    int      `json:"row"` // 1-based
	Errors []string `json:"errors"`
}

// Summarize counts valid and invalid results.
func Summarize(results []ValidationResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Valid() {
			s.Valid++
		} else {
			s.Invalid++
		}
	}
	return s
}

// Rejections returns the rows that failed validation, in input order.
func Rejections(results []ValidationResult) []RowErrors {
	var out []RowErrors
	for _, r := range results {
		if !r.Valid() {
			out = append(out, RowErrors{Row: r.DisplayRow(), Errors: r.Errors})
		}
	}
	return out
}

// Report is the outcome of an import run.
//
// Every row is accounted for: Skipped rows failed validation and were never
// submitted, Success and Failed rows were submitted, and Cancelled rows were
// valid but not attempted because the run was stopped.
type Report struct {
	Success    int
	Failed     int
	Skipped    int
	Cancelled  int
	Failures   []RowFailure
	CreatedIDs []string
}

// Attempted is the number of rows submitted to the create call.
func (r Report) Attempted() int { return r.Success + r.Failed }

// String renders the short form shown after an import.
func (r Report) String() string {
	s := fmt.Sprintf("%d imported, %d failed", r.Success, r.Failed)
	if r.Cancelled > 0 {
		s += fmt.Sprintf(", %d cancelled", r.Cancelled)
	}
	return s
}

type rowFailureJSON struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// MarshalJSON renders the report with error strings.
func (r Report) MarshalJSON() ([]byte, error) {
	failures := make([]rowFailureJSON, len(r.Failures))
	for i, f := range r.Failures {
		failures[i] = rowFailureJSON{Row: f.Row}
		if f.Err != nil {
			failures[i].Error = f.Err.Error()
		}
	}
	return json.Marshal(struct {
		Success   int              `json:"success"`
		Failed    int              `json:"failed"`
		Skipped   int              `json:"skipped"`
		Cancelled int              `json:"cancelled"`
		Failures  []rowFailureJSON `json:"failures"`
	}{r.Success, r.Failed, r.Skipped, r.Cancelled, failures})
}
