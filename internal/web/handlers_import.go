package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/quizadmin/internal/core"
	"github.com/JonMunkholm/quizadmin/internal/csvimport"
)

var (
	errNoFile = errors.New("no file provided")
	errNotCSV = errors.New("not a csv file")
)

// multipartOverhead leaves room for form boundaries and fields beyond the
// file itself.
const multipartOverhead = 1 << 20

// handleImportTemplate downloads the CSV template with one example row.
func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="questions_template.csv"`)
	if err := csvimport.WriteTemplate(w); err != nil {
		s.fail(w, r, err)
	}
}

// handleImportPreview parses and validates the uploaded file and opens an
// import session. Nothing is written.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.fail(w, r, &csvimport.ParseError{Reason: csvimport.ReasonRead, Err: csvimport.ErrTooLarge})
			return
		}
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".csv" && ext != ".txt" {
		s.respondError(w, r, errNotCSV, http.StatusBadRequest)
		return
	}

	preview, err := s.imports.Preview(r.Context(), header.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

type confirmRequest struct {
	Confirmed bool `json:"confirmed"`
}

// handleImportConfirm is the confirmation gate. The batch starts in the
// background; clients follow it via progress or result.
func (s *Server) handleImportConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	id := chi.URLParam(r, "sessionID")
	if err := s.imports.Confirm(r.Context(), id, req.Confirmed); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": id,
		"status":     string(core.PhaseImporting),
		"progress":   "/api/import/" + id + "/progress",
		"result":     "/api/import/" + id + "/result",
	})
}

// handleImportProgress streams session progress as Server-Sent Events.
// Each event id is the completion percentage; a reconnecting client sends
// Last-Event-ID (or ?lastEventId) to skip updates it has seen.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	lastEventID := -1
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		fmt.Sscanf(v, "%d", &lastEventID)
	} else if v := r.URL.Query().Get("lastEventId"); v != "" {
		fmt.Sscanf(v, "%d", &lastEventID)
	}

	updates, unsubscribe, err := s.imports.Subscribe(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer unsubscribe()

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var last core.ImportProgress
	for {
		select {
		case p, ok := <-updates:
			if !ok {
				data, _ := json.Marshal(last)
				fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
				flusher.Flush()
				return
			}
			last = p
			pct := p.Percent()
			if pct <= lastEventID && !p.Phase.Terminal() {
				continue
			}
			data, _ := json.Marshal(p)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", pct, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleImportResult waits for the session to end and returns the result.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.imports.Result(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleImportCancel stops a running batch or discards a previewed session.
func (s *Server) handleImportCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.imports.Cancel(id); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.imports.Progress(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleImportSessions lists live sessions, newest first.
func (s *Server) handleImportSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.imports.Sessions())
}

// handleImportStatus reports import slot usage.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.imports.Limiter().Status())
}
