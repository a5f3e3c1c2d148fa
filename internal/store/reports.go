package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ReportStatus is the moderation state of a user report.
type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Report is a learner's flag on a question.
type Report struct {
	ID           string       `json:"id"`
	QuestionID   string       `json:"question_id"`
	QuestionText string       `json:"question_text"`
	ReportedBy   string       `json:"reported_by,omitempty"`
	Reason       string       `json:"reason"`
	Status       ReportStatus `json:"status"`
	ResolvedBy   string       `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ListReports returns reports with status (all when empty), newest first.
func (s *Store) ListReports(ctx context.Context, status ReportStatus, page Page) ([]Report, error) {
	w := NewWhereBuilder().Add("r.status", string(status))
	where, args := w.Build()
	limit, limitArgs := page.clause(w)

	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.question_id, COALESCE(q.body->0->>'text', ''), r.reported_by, r.reason,
			r.status, r.resolved_by, r.resolved_at, r.created_at
		FROM reports r
		JOIN questions q ON q.id = r.question_id`+where+`
		ORDER BY r.created_at DESC`+limit,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]Report, 0)
	for rows.Next() {
		var (
			r            Report
			id, qid      pgtype.UUID
			reportedBy   pgtype.Text
			resolvedBy   pgtype.Text
			resolvedAt   pgtype.Timestamptz
			statusString string
		)
		if err := rows.Scan(&id, &qid, &r.QuestionText, &reportedBy, &r.Reason,
			&statusString, &resolvedBy, &resolvedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ID = uuidString(id)
		r.QuestionID = uuidString(qid)
		r.ReportedBy = reportedBy.String
		r.Status = ReportStatus(statusString)
		r.ResolvedBy = resolvedBy.String
		if resolvedAt.Valid {
			t := resolvedAt.Time
			r.ResolvedAt = &t
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// CloseReport moves an open report to status (resolved or dismissed).
// Reports that are already closed return ErrConflict.
func (s *Store) CloseReport(ctx context.Context, id string, status ReportStatus, by string) error {
	if status != ReportResolved && status != ReportDismissed {
		return fmt.Errorf("close report: invalid status %q", status)
	}
	pgID, ok := pgUUID(id)
	if !ok {
		return ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE reports SET status = $2, resolved_by = $3, resolved_at = now()
		WHERE id = $1 AND status = 'open'`, pgID, string(status), pgText(by))
	if err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1)`, pgID).Scan(&exists); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("%w: report already closed", ErrConflict)
}
