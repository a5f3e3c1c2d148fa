package web

// Errors are logged with the full technical detail and the request id, then
// returned as a UserMessage from core.MapError: JSON for API routes and
// fetch requests, an HTML alert fragment for the pages.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/core"
	"github.com/JonMunkholm/quizadmin/internal/csvimport"
	"github.com/JonMunkholm/quizadmin/internal/logging"
	"github.com/JonMunkholm/quizadmin/internal/question"
	"github.com/JonMunkholm/quizadmin/internal/store"
	"github.com/JonMunkholm/quizadmin/internal/web/templates"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Action  string               `json:"action,omitempty"`
	Code    string               `json:"code"`
	Fields  question.FieldErrors `json:"fields,omitempty"`
}

// errBadRequest marks malformed request input such as an unreadable body.
var errBadRequest = errors.New("bad request")

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var ferrs question.FieldErrors
	switch {
	case errors.Is(err, csvimport.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case csvimport.IsParseError(err), errors.Is(err, errBadRequest), errors.Is(err, core.ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.As(err, &ferrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrImportStarted), errors.Is(err, core.ErrImportNotStarted), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status statusFor picks.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// respondError logs err and writes the user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Info("request rejected", attrs...)
	}

	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		body := ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code}
		errors.As(err, &body.Fields)
		writeJSON(w, statusCode, body)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if rerr := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); rerr != nil {
		slog.Error("render error alert", "error", rerr)
	}
}

// wantsJSON reports whether the client expects a JSON error body.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
