package web

import (
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/store"
)

// auditFilter reads action, entity, severity, from, to (YYYY-MM-DD),
// archived and paging from the query string.
func auditFilter(r *http.Request) store.AuditFilter {
	q := r.URL.Query()
	f := store.AuditFilter{
		Action:   q.Get("action"),
		Entity:   q.Get("entity"),
		Severity: q.Get("severity"),
		Since:    parseDateParam(r, "from", false),
		Until:    parseDateParam(r, "to", true),
		Page:     parsePage(r),
	}
	if archived := parseBoolParam(r, "archived"); archived != nil {
		f.Archived = *archived
	}
	return f
}

type auditPage struct {
	Items []store.AuditRecord `json:"items"`
	Total int64               `json:"total"`
}

// handleAuditLog lists audit entries newest first. ?format=csv downloads
// the page as CSV.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	recs, total, err := s.imports.Audit().List(r.Context(), auditFilter(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if r.URL.Query().Get("format") != "csv" {
		writeJSON(w, http.StatusOK, auditPage{Items: recs, Total: total})
		return
	}

	attachment(w, "text/csv; charset=utf-8", "audit_log", "csv")
	cw := csv.NewWriter(w)
	cw.Write([]string{
		"ID", "Timestamp", "Action", "Severity", "Entity", "Entity ID",
		"User ID", "User Email", "IP Address", "Rows Affected", "Reason",
	})
	for _, e := range recs {
		cw.Write([]string{
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Action,
			e.Severity,
			e.Entity,
			e.EntityID,
			e.UserID,
			e.UserEmail,
			e.IPAddress,
			strconv.Itoa(e.RowsAffected),
			e.Reason,
		})
	}
	cw.Flush()
}

// handleDashboard returns the dashboard aggregates.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.imports.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type meResponse struct {
	UserID      string            `json:"user_id"`
	Email       string            `json:"email,omitempty"`
	Role        auth.Role         `json:"role"`
	Permissions []auth.Permission `json:"permissions"`
	Nav         []auth.NavItem    `json:"nav"`
}

// handleMe describes the caller: role, permissions and menu.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	writeJSON(w, http.StatusOK, meResponse{
		UserID:      p.UserID,
		Email:       p.Email,
		Role:        p.Role,
		Permissions: auth.PermissionsFor(p.Role),
		Nav:         auth.NavItems(p.Role),
	})
}

// handleHealth reports database reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.reader.Ping(ctx); err != nil {
		status, code = "database unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"imports": s.imports.Limiter().Status(),
	})
}
