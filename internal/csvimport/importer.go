package csvimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/quizadmin/internal/question"
)

// ErrNotConfirmed is returned by Run when the caller did not confirm the
// import. Nothing is written.
var ErrNotConfirmed = errors.New("import not confirmed")

// Creator persists one question with its tags and returns the new id.
type Creator interface {
	CreateQuestion(ctx context.Context, q question.Question, tags []string) (string, error)
}

// CreatorFunc adapts a function to Creator.
type CreatorFunc func(ctx context.Context, q question.Question, tags []string) (string, error)

func (f CreatorFunc) CreateQuestion(ctx context.Context, q question.Question, tags []string) (string, error) {
	return f(ctx, q, tags)
}

// RowFailure records a valid row that the create call rejected.
type RowFailure struct {
	Row int   // 1-based row number
	Err error // create error
}

// Progress is reported after every attempted row.
type Progress struct {
	Total     int // valid rows to import
	Processed int
	Success   int
	Failed    int
}

// Importer submits validated rows one at a time, in input order.
//
// A failed row is logged and counted and the batch moves on. Earlier
// successes are never rolled back.
type Importer struct {
	Creator Creator

	// RowTimeout bounds each create call. Zero means no timeout.
	RowTimeout time.Duration

	// Logger receives one warning per failed row. Defaults to slog.Default().
	Logger *slog.Logger

	// OnProgress, if set, is called after each attempted row.
	OnProgress func(Progress)
}

// Run imports every result with no validation errors. Invalid rows are
// never submitted.
//
// confirmed must be true; it is the operator's go-ahead for an
// irreversible write. If ctx ends mid-batch, rows not yet attempted are
// counted in Report.Cancelled and ctx.Err() is returned with the report.
func (im *Importer) Run(ctx context.Context, results []ValidationResult, confirmed bool) (Report, error) {
	if !confirmed {
		return Report{}, ErrNotConfirmed
	}
	if im.Creator == nil {
		return Report{}, errors.New("importer has no creator")
	}

	logger := im.Logger
	if logger == nil {
		logger = slog.Default()
	}

	valid := make([]ValidationResult, 0, len(results))
	for _, r := range results {
		if r.Valid() {
			valid = append(valid, r)
		}
	}

	report := Report{Skipped: len(results) - len(valid)}
	progress := Progress{Total: len(valid)}

	for i, r := range valid {
		if err := ctx.Err(); err != nil {
			report.Cancelled = len(valid) - i
			logger.Warn("import cancelled", "remaining", report.Cancelled, "error", err)
			return report, err
		}

		id, err := im.submit(ctx, r)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, RowFailure{Row: r.DisplayRow(), Err: err})
			logger.Warn("question import failed", "row", r.DisplayRow(), "error", err)
		} else {
			report.Success++
			report.CreatedIDs = append(report.CreatedIDs, id)
		}

		progress.Processed++
		progress.Success = report.Success
		progress.Failed = report.Failed
		if im.OnProgress != nil {
			im.OnProgress(progress)
		}
	}

	return report, nil
}

// submit creates one question and waits for the create call to return,
// so at most one create is in flight. RowTimeout bounds the context passed
// to the call; the reported outcome is always the call's own result.
func (im *Importer) submit(ctx context.Context, r ValidationResult) (id string, err error) {
	if im.RowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, im.RowTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			id, err = "", fmt.Errorf("create panicked: %v", rec)
		}
	}()

	id, err = im.Creator.CreateQuestion(ctx, Map(r.Row), question.SplitTags(r.Row.Tags))
	if err != nil {
		return "", fmt.Errorf("create question: %w", err)
	}
	return id, nil
}
