package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/store"
	"github.com/JonMunkholm/quizadmin/internal/web/templates"
)

// renderPage writes a full page for the current principal.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	p, _ := auth.PrincipalFrom(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Layout(title, r.URL.Path, p, body).Render(r.Context(), w); err != nil {
		s.fail(w, r, err)
	}
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	stats, err := s.imports.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderPage(w, r, "Dashboard", templates.Dashboard(stats))
}

func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "Import questions", templates.ImportForm(s.cfg.Import.MaxFileSize))
}

func (s *Server) handleQuestionsPage(w http.ResponseWriter, r *http.Request) {
	f := questionFilter(r)
	page, err := s.reader.ListQuestions(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rows := make([][]string, len(page.Items))
	for i, q := range page.Items {
		pyq := ""
		if q.PYQ != nil {
			pyq = strconv.Itoa(q.PYQ.Year)
		}
		rows[i] = []string{q.Text(), q.TopicID, string(q.Difficulty), pyq, strings.Join(q.Tags, ", ")}
	}
	more := int64(f.Offset+len(page.Items)) < page.Total
	s.renderPage(w, r, fmt.Sprintf("Questions (%d)", page.Total), templ.Join(
		templates.Table([]string{"Question", "Topic", "Difficulty", "PYQ", "Tags"}, rows),
		pager(r, more),
	))
}

func (s *Server) handleQuizzesPage(w http.ResponseWriter, r *http.Request) {
	quizzes, err := s.reader.ListQuizzes(r.Context(), store.QuizKind(r.URL.Query().Get("kind")), parsePage(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows := make([][]string, len(quizzes))
	for i, z := range quizzes {
		duration := ""
		if z.DurationMinutes > 0 {
			duration = strconv.Itoa(z.DurationMinutes) + " min"
		}
		rows[i] = []string{z.Title, string(z.Kind), strconv.Itoa(len(z.QuestionIDs)), duration, yesNo(z.Published)}
	}
	s.renderPage(w, r, "Quizzes & Exams", templates.Table([]string{"Title", "Kind", "Questions", "Duration", "Published"}, rows))
}

func (s *Server) handleTopicsPage(w http.ResponseWriter, r *http.Request) {
	topics, err := s.reader.ListTopics(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tags, err := s.reader.ListTags(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var topicRows [][]string
	var walk func(ts []*store.Topic, depth int)
	walk = func(ts []*store.Topic, depth int) {
		for _, t := range ts {
			topicRows = append(topicRows, []string{strings.Repeat("- ", depth) + t.Name, t.NameHi, t.ID})
			walk(t.Children, depth+1)
		}
	}
	walk(store.TopicTree(topics), 0)

	tagRows := make([][]string, len(tags))
	for i, t := range tags {
		tagRows[i] = []string{t.Name, strconv.FormatInt(t.Usage, 10)}
	}

	s.renderPage(w, r, "Topics & Tags", templ.Join(
		templates.Table([]string{"Topic", "Hindi", "ID"}, topicRows),
		templates.Table([]string{"Tag", "Questions"}, tagRows),
	))
}

func (s *Server) handleReportsPage(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reader.ListReports(r.Context(), store.ReportOpen, parsePage(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows := make([][]string, len(reports))
	for i, rep := range reports {
		rows[i] = []string{rep.CreatedAt.Format("2006-01-02"), rep.QuestionText, rep.Reason, string(rep.Status)}
	}
	s.renderPage(w, r, "Open reports", templates.Table([]string{"Reported", "Question", "Reason", "Status"}, rows))
}

func (s *Server) handleUsersPage(w http.ResponseWriter, r *http.Request) {
	users, err := s.reader.ListUsers(r.Context(), "", parsePage(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows := make([][]string, len(users))
	for i, u := range users {
		rows[i] = []string{u.Email, u.DisplayName, string(u.Role), u.CreatedAt.Format("2006-01-02")}
	}
	s.renderPage(w, r, "Users", templates.Table([]string{"Email", "Name", "Role", "Joined"}, rows))
}

func (s *Server) handleAuditPage(w http.ResponseWriter, r *http.Request) {
	f := auditFilter(r)
	recs, total, err := s.imports.Audit().List(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows := make([][]string, len(recs))
	for i, rec := range recs {
		rows[i] = []string{
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.Action,
			rec.Severity,
			rec.Entity + " " + rec.EntityID,
			rec.UserEmail,
			rec.Reason,
		}
	}
	more := int64(f.Offset+len(recs)) < total
	s.renderPage(w, r, "Audit log", templ.Join(
		templates.Table([]string{"When", "Action", "Severity", "Target", "User", "Reason"}, rows),
		pager(r, more),
	))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
