package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// AuditRecord is one row of audit_log (or audit_log_archive).
type AuditRecord struct {
	ID           string         `json:"id"`
	Action       string         `json:"action"`
	Severity     string         `json:"severity"`
	Entity       string         `json:"entity"`
	EntityID     string         `json:"entity_id,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	UserEmail    string         `json:"user_email,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	RowsAffected int            `json:"rows_affected,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditFilter narrows ListAudit.
type AuditFilter struct {
	Action   string
	Entity   string
	Severity string
	Since    time.Time
	Until    time.Time
	Archived bool
	Page
}

// InsertAudit writes rec and returns it with id and timestamp set.
func (s *Store) InsertAudit(ctx context.Context, rec AuditRecord) (AuditRecord, error) {
	var details []byte
	if rec.Details != nil {
		var err error
		if details, err = json.Marshal(rec.Details); err != nil {
			details = nil
		}
	}

	var id pgtype.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO audit_log (action, severity, entity, entity_id, user_id, user_email,
			ip_address, user_agent, rows_affected, details, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		rec.Action, rec.Severity, rec.Entity, pgText(rec.EntityID), pgText(rec.UserID), pgText(rec.UserEmail),
		pgText(rec.IPAddress), pgText(rec.UserAgent), pgInt4(rec.RowsAffected), details, pgText(rec.Reason),
	).Scan(&id, &rec.CreatedAt)
	if err != nil {
		return rec, fmt.Errorf("insert audit: %w", err)
	}
	rec.ID = uuidString(id)
	return rec, nil
}

// ListAudit returns matching entries newest first, plus the total count.
func (s *Store) ListAudit(ctx context.Context, f AuditFilter) ([]AuditRecord, int64, error) {
	table := "audit_log"
	if f.Archived {
		table = "audit_log_archive"
	}

	w := NewWhereBuilder().
		Add("action", f.Action).
		Add("entity", f.Entity).
		Add("severity", f.Severity).
		AddTimestampRange("created_at", f.Since, f.Until)
	where, args := w.Build()

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit: %w", err)
	}

	limit, limitArgs := f.Page.clause(w)
	rows, err := s.pool.Query(ctx, `
		SELECT id, action, severity, entity, entity_id, user_id, user_email, ip_address,
			user_agent, rows_affected, details, reason, created_at
		FROM `+table+where+` ORDER BY created_at DESC`+limit, append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	records := make([]AuditRecord, 0)
	for rows.Next() {
		var (
			rec                                 AuditRecord
			id                                  pgtype.UUID
			entityID, userID, userEmail, ip, ua pgtype.Text
			rowsAffected                        pgtype.Int4
			details                             []byte
			reason                              pgtype.Text
		)
		if err := rows.Scan(&id, &rec.Action, &rec.Severity, &rec.Entity, &entityID, &userID, &userEmail,
			&ip, &ua, &rowsAffected, &details, &reason, &rec.CreatedAt); err != nil {
			return nil, 0, err
		}
		rec.ID = uuidString(id)
		rec.EntityID = entityID.String
		rec.UserID = userID.String
		rec.UserEmail = userEmail.String
		rec.IPAddress = ip.String
		rec.UserAgent = ua.String
		rec.RowsAffected = int(rowsAffected.Int32)
		rec.Reason = reason.String
		if details != nil {
			_ = json.Unmarshal(details, &rec.Details)
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// ArchiveAudit moves up to batchSize entries older than olderThan from
// audit_log to audit_log_archive and returns how many moved.
func (s *Store) ArchiveAudit(ctx context.Context, olderThan time.Time, batchSize int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		WITH moved AS (
			DELETE FROM audit_log
			WHERE id IN (
				SELECT id FROM audit_log WHERE created_at < $1
				ORDER BY created_at LIMIT $2
			)
			RETURNING *
		)
		INSERT INTO audit_log_archive SELECT * FROM moved`, olderThan, batchSize)
	if err != nil {
		return 0, fmt.Errorf("archive audit: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeAuditArchive deletes archived entries older than olderThan.
func (s *Store) PurgeAuditArchive(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_log_archive WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("purge audit archive: %w", err)
	}
	return tag.RowsAffected(), nil
}
