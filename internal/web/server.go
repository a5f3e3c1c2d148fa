// Package web provides the HTTP server, JSON API and admin pages of the
// question-bank back office.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/config"
	"github.com/JonMunkholm/quizadmin/internal/core"
	"github.com/JonMunkholm/quizadmin/internal/question"
	"github.com/JonMunkholm/quizadmin/internal/store"
	mw "github.com/JonMunkholm/quizadmin/internal/web/middleware"
)

// Reader is the read side of the store used by the handlers. *store.Store
// implements it.
type Reader interface {
	Ping(ctx context.Context) error
	ListQuestions(ctx context.Context, f store.QuestionFilter) (store.QuestionPage, error)
	GetQuestion(ctx context.Context, id string) (question.Question, error)
	EachQuestion(ctx context.Context, f store.QuestionFilter, fn func(question.Question) error) error
	ListTopics(ctx context.Context) ([]store.Topic, error)
	ListTags(ctx context.Context) ([]store.Tag, error)
	ListQuizzes(ctx context.Context, kind store.QuizKind, page store.Page) ([]store.Quiz, error)
	GetQuiz(ctx context.Context, id string) (store.Quiz, error)
	ListReports(ctx context.Context, status store.ReportStatus, page store.Page) ([]store.Report, error)
	ListUsers(ctx context.Context, role auth.Role, page store.Page) ([]store.User, error)
	GetUser(ctx context.Context, id string) (store.User, error)
}

// Deps are the collaborators of the server.
type Deps struct {
	Imports  *core.Service
	Catalog  *core.Catalog
	Reader   Reader
	Verifier mw.TokenVerifier
}

// Server is the HTTP server of the admin back office.
type Server struct {
	cfg      *config.Config
	imports  *core.Service
	catalog  *core.Catalog
	reader   Reader
	verifier mw.TokenVerifier
	router   *chi.Mux
	server   *http.Server
	limiters []*mw.RateLimiter
}

// NewServer creates a Server with its middleware and routes.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		imports:  deps.Imports,
		catalog:  deps.Catalog,
		reader:   deps.Reader,
		verifier: deps.Verifier,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.ClientMeta)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).Handler)
	}

	s.router.Use(mw.Authenticate(&s.cfg.Security, s.verifier, s.lookupRole))
	s.router.Use(mw.CapturePrincipal)
}

func (s *Server) newLimiter(perMinute int) *mw.RateLimiter {
	l := mw.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, l)
	return l
}

func (s *Server) setupRoutes() {
	r := s.router
	require := auth.Require

	r.Get("/healthz", s.handleHealth)

	// Pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
		r.With(require(auth.PermViewDashboard)).Get("/", s.handleDashboardPage)
		r.With(require(auth.PermViewQuestions)).Get("/questions", s.handleQuestionsPage)
		r.With(require(auth.PermImportQuestions)).Get("/import", s.handleImportPage)
		r.With(require(auth.PermViewQuizzes)).Get("/quizzes", s.handleQuizzesPage)
		r.With(require(auth.PermManageTaxonomy)).Get("/topics", s.handleTopicsPage)
		r.With(require(auth.PermViewReports)).Get("/reports", s.handleReportsPage)
		r.With(require(auth.PermViewUsers)).Get("/users", s.handleUsersPage)
		r.With(require(auth.PermViewAuditLog)).Get("/audit", s.handleAuditPage)
	})

	r.Route("/api", func(r chi.Router) {
		// Import sessions. Progress and result hold the connection open, so
		// they sit outside the request timeout.
		r.Route("/import", func(r chi.Router) {
			r.Use(require(auth.PermImportQuestions))
			r.Get("/template", s.handleImportTemplate)
			r.Get("/sessions", s.handleImportSessions)
			r.Get("/status", s.handleImportStatus)

			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					r.Use(s.newLimiter(s.cfg.Rate.ImportLimit).Handler)
				}
				r.Post("/preview", s.handleImportPreview)
				r.Post("/{sessionID}/confirm", s.handleImportConfirm)
			})

			r.Get("/{sessionID}/progress", s.handleImportProgress)
			r.Get("/{sessionID}/result", s.handleImportResult)
			r.Post("/{sessionID}/cancel", s.handleImportCancel)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

			r.With(require(auth.PermViewDashboard)).Get("/dashboard", s.handleDashboard)
			r.With(require(auth.PermViewDashboard)).Get("/me", s.handleMe)

			r.Route("/questions", func(r chi.Router) {
				r.With(require(auth.PermViewQuestions)).Get("/", s.handleListQuestions)
				r.With(require(auth.PermEditQuestions)).Post("/", s.handleCreateQuestion)
				r.With(require(auth.PermExportQuestions)).Get("/export", s.handleExportQuestions)
				r.With(require(auth.PermViewQuestions)).Get("/{id}", s.handleGetQuestion)
				r.With(require(auth.PermDeleteQuestions)).Delete("/{id}", s.handleDeleteQuestion)
			})

			r.Route("/topics", func(r chi.Router) {
				r.With(require(auth.PermViewQuestions)).Get("/", s.handleListTopics)
				r.With(require(auth.PermManageTaxonomy)).Post("/", s.handleCreateTopic)
				r.With(require(auth.PermManageTaxonomy)).Delete("/{id}", s.handleDeleteTopic)
			})

			r.Route("/tags", func(r chi.Router) {
				r.With(require(auth.PermViewQuestions)).Get("/", s.handleListTags)
				r.With(require(auth.PermManageTaxonomy)).Post("/", s.handleCreateTag)
				r.With(require(auth.PermManageTaxonomy)).Delete("/{id}", s.handleDeleteTag)
			})

			r.Route("/quizzes", func(r chi.Router) {
				r.With(require(auth.PermViewQuizzes)).Get("/", s.handleListQuizzes)
				r.With(require(auth.PermEditQuizzes)).Post("/", s.handleCreateQuiz)
				r.With(require(auth.PermViewQuizzes)).Get("/{id}", s.handleGetQuiz)
				r.With(require(auth.PermEditQuizzes)).Delete("/{id}", s.handleDeleteQuiz)
				r.With(require(auth.PermEditQuizzes)).Put("/{id}/questions", s.handleSetQuizQuestions)
				r.With(require(auth.PermPublishQuizzes)).Post("/{id}/publish", s.handlePublishQuiz)
				r.With(require(auth.PermPublishQuizzes)).Post("/{id}/unpublish", s.handleUnpublishQuiz)
			})

			r.Route("/reports", func(r chi.Router) {
				r.With(require(auth.PermViewReports)).Get("/", s.handleListReports)
				r.With(require(auth.PermResolveReports)).Post("/{id}/resolve", s.handleResolveReport)
				r.With(require(auth.PermResolveReports)).Post("/{id}/dismiss", s.handleDismissReport)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(require(auth.PermViewUsers)).Get("/", s.handleListUsers)
				r.With(require(auth.PermManageUsers)).Put("/{id}/role", s.handleSetUserRole)
			})

			r.With(require(auth.PermViewAuditLog)).Get("/audit-log", s.handleAuditLog)
		})
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for open ones to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		}
		next.ServeHTTP(w, r)
	})
}

// lookupRole reads the role from the profile store. Tokens for users
// without a profile are treated as unauthenticated.
func (s *Server) lookupRole(ctx context.Context, userID string) (auth.Role, error) {
	u, err := s.reader.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", auth.ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
