package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/quizadmin/internal/csvimport"
	"github.com/JonMunkholm/quizadmin/internal/logging"
	"github.com/JonMunkholm/quizadmin/internal/question"
	"github.com/JonMunkholm/quizadmin/internal/store"
)

// questionFilter reads topic, difficulty, is_pyq, q (search), tag and
// paging from the query string.
func questionFilter(r *http.Request) store.QuestionFilter {
	q := r.URL.Query()
	return store.QuestionFilter{
		TopicID:    q.Get("topic"),
		Difficulty: q.Get("difficulty"),
		IsPYQ:      parseBoolParam(r, "is_pyq"),
		Search:     q.Get("q"),
		Tag:        q.Get("tag"),
		Page:       parsePage(r),
	}
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	page, err := s.reader.ListQuestions(r.Context(), questionFilter(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.reader.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleCreateQuestion stores one question from the create form.
func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var in question.Input
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.catalog.CreateQuestion(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportQuestions streams matching questions in the import template
// layout, so an export can be edited and imported again. Paging is ignored.
func (s *Server) handleExportQuestions(w http.ResponseWriter, r *http.Request) {
	f := questionFilter(r)
	log := logging.WithFields(r.Context(), "export", "questions")

	attachment(w, "text/csv; charset=utf-8", "questions", "csv")
	ex := csvimport.NewExporter(w)

	n := 0
	err := s.reader.EachQuestion(r.Context(), f, func(q question.Question) error {
		n++
		return ex.Write(q)
	})
	if ferr := ex.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		// Headers are gone; the truncated file is all the client gets.
		log.Error("question export failed", "rows", n, "error", err)
		return
	}
	log.Info("questions exported", "rows", n)
}
