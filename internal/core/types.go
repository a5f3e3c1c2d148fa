package core

import (
	"time"

	"github.com/JonMunkholm/quizadmin/internal/csvimport"
)

// Phase is the stage of an import session.
//
//	Parsing → Validated → Importing → Completed
//
// Before Preview there is no session; that idle state has no Phase value.
// A session can also end Cancelled (operator cancel) or Failed (timeout
// or an internal error). A file that fails to parse leaves no session.
type Phase string

const (
	PhaseParsing   Phase = "parsing"
	PhaseValidated Phase = "validated"
	PhaseImporting Phase = "importing"
	PhaseCompleted Phase = "completed"
	PhaseCancelled Phase = "cancelled"
	PhaseFailed    Phase = "failed"
)

// Terminal reports whether no further transition can happen.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled || p == PhaseFailed
}

// ImportProgress is the state pushed to progress subscribers.
type ImportProgress struct {
	SessionID string `json:"session_id"`
	FileName  string `json:"file_name"`
	Phase     Phase  `json:"phase"`
	Total     int    `json:"total"` // valid rows to import
	Processed int    `json:"processed"`
	Success   int    `json:"success"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// Percent returns progress in the range 0-100.
func (p ImportProgress) Percent() int {
	if p.Total <= 0 {
		if p.Phase.Terminal() {
			return 100
		}
		return 0
	}
	return p.Processed * 100 / p.Total
}

// Preview is returned after a file is parsed and validated. Nothing has
// been written yet.
type Preview struct {
	SessionID string                `json:"session_id"`
	FileName  string                `json:"file_name"`
	Summary   csvimport.Summary     `json:"summary"`
	Errors    []csvimport.RowErrors `json:"errors"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// ImportResult is the final outcome of a confirmed session.
type ImportResult struct {
	SessionID string           `json:"session_id"`
	FileName  string           `json:"file_name"`
	Phase     Phase            `json:"phase"`
	Report    csvimport.Report `json:"report"`
	Duration  time.Duration    `json:"duration_ns"`
	Error     string           `json:"error,omitempty"`
}
