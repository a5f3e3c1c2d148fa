package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/core"
	"github.com/JonMunkholm/quizadmin/internal/store"
)

// handleListTopics returns the topic tree; ?flat=true returns the list.
func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.reader.ListTopics(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if flat := parseBoolParam(r, "flat"); flat != nil && *flat {
		writeJSON(w, http.StatusOK, topics)
		return
	}
	writeJSON(w, http.StatusOK, store.TopicTree(topics))
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var in core.TopicInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.catalog.CreateTopic(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteTopic(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.reader.ListTags(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var in core.TagInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.catalog.CreateTag(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteTag(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListQuizzes lists quizzes and exams; ?kind= narrows to one.
func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	kind := store.QuizKind(r.URL.Query().Get("kind"))
	if kind != "" && kind != store.KindQuiz && kind != store.KindExam {
		s.fail(w, r, fmt.Errorf("%w: unknown kind %q", errBadRequest, kind))
		return
	}
	quizzes, err := s.reader.ListQuizzes(r.Context(), kind, parsePage(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	z, err := s.reader.GetQuiz(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, z)
}

func (s *Server) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var in core.QuizInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	z, err := s.catalog.CreateQuiz(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, z)
}

func (s *Server) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteQuiz(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetQuizQuestions(w http.ResponseWriter, r *http.Request) {
	var in core.QuizQuestionsInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.catalog.SetQuizQuestions(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublishQuiz(w http.ResponseWriter, r *http.Request) {
	s.setPublished(w, r, true)
}

func (s *Server) handleUnpublishQuiz(w http.ResponseWriter, r *http.Request) {
	s.setPublished(w, r, false)
}

func (s *Server) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	if err := s.catalog.SetQuizPublished(r.Context(), chi.URLParam(r, "id"), published); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListReports lists reports; ?status= defaults to open.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	status := store.ReportStatus(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = store.ReportOpen
	case "all":
		status = ""
	case store.ReportOpen, store.ReportResolved, store.ReportDismissed:
	default:
		s.fail(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, status))
		return
	}
	reports, err := s.reader.ListReports(r.Context(), status, parsePage(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleResolveReport(w http.ResponseWriter, r *http.Request) {
	s.closeReport(w, r, store.ReportResolved)
}

func (s *Server) handleDismissReport(w http.ResponseWriter, r *http.Request) {
	s.closeReport(w, r, store.ReportDismissed)
}

func (s *Server) closeReport(w http.ResponseWriter, r *http.Request, status store.ReportStatus) {
	if err := s.catalog.CloseReport(r.Context(), chi.URLParam(r, "id"), status); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListUsers lists admin profiles; ?role= narrows to one role.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var role auth.Role
	if v := r.URL.Query().Get("role"); v != "" {
		parsed, ok := auth.ParseRole(v)
		if !ok {
			s.fail(w, r, fmt.Errorf("%w: unknown role %q", errBadRequest, v))
			return
		}
		role = parsed
	}
	users, err := s.reader.ListUsers(r.Context(), role, parsePage(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type roleRequest struct {
	Role auth.Role `json:"role"`
}

func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.catalog.SetUserRole(r.Context(), chi.URLParam(r, "id"), req.Role); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
