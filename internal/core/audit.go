package core

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/csvimport"
	"github.com/JonMunkholm/quizadmin/internal/store"
)

// AuditAction names an audited operation.
type AuditAction string

const (
	ActionQuestionImport AuditAction = "question_import"
	ActionQuestionCreate AuditAction = "question_create"
	ActionQuestionDelete AuditAction = "question_delete"
	ActionQuizCreate     AuditAction = "quiz_create"
	ActionQuizDelete     AuditAction = "quiz_delete"
	ActionQuizPublish    AuditAction = "quiz_publish"
	ActionQuizUnpublish  AuditAction = "quiz_unpublish"
	ActionTopicCreate    AuditAction = "topic_create"
	ActionTopicDelete    AuditAction = "topic_delete"
	ActionTagDelete      AuditAction = "tag_delete"
	ActionRoleChange     AuditAction = "role_change"
	ActionReportResolve  AuditAction = "report_resolve"
	ActionReportDismiss  AuditAction = "report_dismiss"
)

// AuditSeverity grades an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// SeverityFor returns the severity recorded for action.
func SeverityFor(action AuditAction) AuditSeverity {
	switch action {
	case ActionRoleChange:
		return SeverityCritical
	case ActionQuestionImport, ActionQuestionDelete, ActionQuizDelete, ActionTopicDelete:
		return SeverityHigh
	case ActionQuestionCreate, ActionQuizCreate, ActionTopicCreate, ActionTagDelete:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Entity names used in audit entries.
const (
	EntityQuestion = "question"
	EntityQuiz     = "quiz"
	EntityTopic    = "topic"
	EntityTag      = "tag"
	EntityUser     = "user"
	EntityReport   = "report"
)

// AuditStore is the persistence the audit service needs. *store.Store
// implements it.
type AuditStore interface {
	InsertAudit(ctx context.Context, rec store.AuditRecord) (store.AuditRecord, error)
	ListAudit(ctx context.Context, f store.AuditFilter) ([]store.AuditRecord, int64, error)
	ArchiveAudit(ctx context.Context, olderThan time.Time, batchSize int) (int64, error)
	PurgeAuditArchive(ctx context.Context, olderThan time.Time) (int64, error)
}

// AuditEntry is the caller-supplied part of an audit record. The actor and
// client details are taken from the context.
type AuditEntry struct {
	Action       AuditAction
	Entity       string
	EntityID     string
	RowsAffected int
	Details      map[string]any
	Reason       string
}

// AuditService writes and reads the audit log.
type AuditService struct {
	store AuditStore
}

// NewAuditService creates an audit service backed by s.
func NewAuditService(s AuditStore) *AuditService {
	return &AuditService{store: s}
}

// Log writes e, filling in the principal from auth and the client address
// and user agent from RequestMeta.
func (a *AuditService) Log(ctx context.Context, e AuditEntry) (store.AuditRecord, error) {
	rec := store.AuditRecord{
		Action:       string(e.Action),
		Severity:     string(SeverityFor(e.Action)),
		Entity:       e.Entity,
		EntityID:     e.EntityID,
		RowsAffected: e.RowsAffected,
		Details:      e.Details,
		Reason:       e.Reason,
	}
	if p, ok := auth.PrincipalFrom(ctx); ok {
		rec.UserID = p.UserID
		rec.UserEmail = p.Email
	}
	meta := RequestMetaFrom(ctx)
	rec.IPAddress = normalizeIP(meta.IPAddress)
	rec.UserAgent = meta.UserAgent

	saved, err := a.store.InsertAudit(ctx, rec)
	if err != nil {
		return rec, fmt.Errorf("audit %s: %w", e.Action, err)
	}
	return saved, nil
}

// record logs e and reports failures to the server log only; a failed audit
// write never fails the audited operation.
func (a *AuditService) record(ctx context.Context, e AuditEntry) {
	if a == nil {
		return
	}
	if _, err := a.Log(ctx, e); err != nil {
		slog.Warn("audit write failed", "action", e.Action, "entity_id", e.EntityID, "error", err)
	}
}

// normalizeIP strips a port and drops anything that is not an address.
func normalizeIP(s string) string {
	if s == "" {
		return ""
	}
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return ""
	}
	return addr.String()
}

// ImportAuditEntry describes one finished bulk import.
type ImportAuditEntry struct {
	SessionID string
	FileName  string
	Summary   csvimport.Summary
	Report    csvimport.Report
	Duration  time.Duration
	Err       error
}

// LogImport records a finished bulk import.
func (a *AuditService) LogImport(ctx context.Context, e ImportAuditEntry) {
	details := map[string]any{
		"file_name":   e.FileName,
		"rows":        e.Summary.Total,
		"invalid":     e.Summary.Invalid,
		"success":     e.Report.Success,
		"failed":      e.Report.Failed,
		"cancelled":   e.Report.Cancelled,
		"duration_ms": e.Duration.Milliseconds(),
	}
	if e.Err != nil {
		details["error"] = e.Err.Error()
	}
	a.record(ctx, AuditEntry{
		Action:       ActionQuestionImport,
		Entity:       EntityQuestion,
		EntityID:     e.SessionID,
		RowsAffected: e.Report.Success,
		Details:      details,
		Reason:       fmt.Sprintf("Imported %s: %s", e.FileName, e.Report),
	})
}

// LogDelete records the deletion of one entity.
func (a *AuditService) LogDelete(ctx context.Context, action AuditAction, entity, id string, details map[string]any) {
	a.record(ctx, AuditEntry{
		Action:       action,
		Entity:       entity,
		EntityID:     id,
		RowsAffected: 1,
		Details:      details,
	})
}

// LogCreate records the creation of one entity.
func (a *AuditService) LogCreate(ctx context.Context, action AuditAction, entity, id string) {
	a.record(ctx, AuditEntry{Action: action, Entity: entity, EntityID: id, RowsAffected: 1})
}

// LogRoleChange records a role assignment.
func (a *AuditService) LogRoleChange(ctx context.Context, userID string, from, to auth.Role) {
	a.record(ctx, AuditEntry{
		Action:       ActionRoleChange,
		Entity:       EntityUser,
		EntityID:     userID,
		RowsAffected: 1,
		Details:      map[string]any{"from": string(from), "to": string(to)},
		Reason:       fmt.Sprintf("Role changed from %s to %s", from, to),
	})
}

// LogReportClosed records a report being resolved or dismissed.
func (a *AuditService) LogReportClosed(ctx context.Context, reportID string, status store.ReportStatus) {
	action := ActionReportResolve
	if status == store.ReportDismissed {
		action = ActionReportDismiss
	}
	a.record(ctx, AuditEntry{Action: action, Entity: EntityReport, EntityID: reportID, RowsAffected: 1})
}

// LogQuizPublished records a publish state change.
func (a *AuditService) LogQuizPublished(ctx context.Context, quizID string, published bool) {
	action := ActionQuizPublish
	if !published {
		action = ActionQuizUnpublish
	}
	a.record(ctx, AuditEntry{Action: action, Entity: EntityQuiz, EntityID: quizID, RowsAffected: 1})
}

// List returns audit entries matching f, newest first, with the total count.
func (a *AuditService) List(ctx context.Context, f store.AuditFilter) ([]store.AuditRecord, int64, error) {
	return a.store.ListAudit(ctx, f)
}
