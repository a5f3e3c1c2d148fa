package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/quizadmin/internal/config"
	"github.com/JonMunkholm/quizadmin/internal/csvimport"
	"github.com/JonMunkholm/quizadmin/internal/logging"
	"github.com/JonMunkholm/quizadmin/internal/store"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrNotConfirmed is returned when a batch is started without the
	// operator's confirmation.
	ErrNotConfirmed = csvimport.ErrNotConfirmed

	// ErrImportStarted is returned when confirming a session twice.
	ErrImportStarted = errors.New("import already started")

	// ErrImportNotStarted is returned when asking for the result of a
	// session that was never confirmed.
	ErrImportNotStarted = errors.New("import not started")
)

const listenerBuffer = 16

// Deps are the collaborators of Service. Audit and Dashboards may be nil.
type Deps struct {
	Questions  csvimport.Creator
	Audit      *AuditService
	Dashboards *Dashboards
}

// Service runs CSV import sessions: preview, confirmation, background
// batch, progress fan-out and result retrieval.
type Service struct {
	questions  csvimport.Creator
	audit      *AuditService
	dashboards *Dashboards
	limiter    *ImportLimiter
	cfg        config.ImportConfig

	mu       sync.RWMutex
	sessions map[string]*importSession
}

type importSession struct {
	id       string
	fileName string
	created  time.Time
	results  []csvimport.ValidationResult
	summary  csvimport.Summary

	mu        sync.Mutex
	progress  ImportProgress
	result    *ImportResult
	cancel    context.CancelFunc
	expiry    *time.Timer
	listeners []chan ImportProgress
	closed    bool
	done      chan struct{}
}

// NewService creates an import service.
func NewService(deps Deps, cfg config.ImportConfig) *Service {
	return &Service{
		questions:  deps.Questions,
		audit:      deps.Audit,
		dashboards: deps.Dashboards,
		limiter:    NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		cfg:        cfg,
		sessions:   make(map[string]*importSession),
	}
}

// Limiter exposes the import limiter for health reporting.
func (s *Service) Limiter() *ImportLimiter { return s.limiter }

// Audit returns the audit service, which may be nil.
func (s *Service) Audit() *AuditService { return s.audit }

// Preview parses and validates a CSV and opens a session holding the
// results. Nothing is written. The session is listed as Parsing while the
// upload is read and becomes Validated once every row is checked. Parse
// failures return a *csvimport.ParseError and drop the session.
func (s *Service) Preview(ctx context.Context, fileName string, r io.Reader) (Preview, error) {
	log := logging.WithFields(ctx, "file", fileName)

	id := uuid.NewString()
	sess := &importSession{
		id:       id,
		fileName: fileName,
		created:  time.Now(),
		progress: ImportProgress{
			SessionID: id,
			FileName:  fileName,
			Phase:     PhaseParsing,
		},
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	rows, err := csvimport.ParseReader(csvimport.LimitReader(r, s.cfg.MaxFileSize))
	if err != nil {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		sess.closeListeners()

		log.Info("import preview rejected", "error", err)
		return Preview{}, err
	}

	results := csvimport.ValidateAll(rows)
	summary := csvimport.Summarize(results)

	sess.mu.Lock()
	sess.results = results
	sess.summary = summary
	sess.progress.Phase = PhaseValidated
	sess.progress.Total = summary.Valid
	sess.notifyLocked()
	sess.mu.Unlock()

	s.expireAfter(sess)

	log.Info("import previewed",
		"session_id", id,
		"rows", summary.Total,
		"valid", summary.Valid,
		"invalid", summary.Invalid,
	)

	return Preview{
		SessionID: id,
		FileName:  fileName,
		Summary:   summary,
		Errors:    csvimport.Rejections(results),
		ExpiresAt: sess.created.Add(s.cfg.SessionTTL),
	}, nil
}

// Confirm starts importing the valid rows of a previewed session in the
// background and returns at once. confirmed must be true.
//
// It returns ErrTooManyImports when no import slot frees up in time and
// ErrImportStarted when the session is not waiting for confirmation.
func (s *Service) Confirm(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	if sess.phase() != PhaseValidated {
		return ErrImportStarted
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}

	runCtx, cancel := s.runContext(ctx)

	sess.mu.Lock()
	if sess.progress.Phase != PhaseValidated {
		sess.mu.Unlock()
		cancel()
		s.limiter.Release()
		return ErrImportStarted
	}
	sess.progress.Phase = PhaseImporting
	sess.cancel = cancel
	if sess.expiry != nil {
		sess.expiry.Stop()
	}
	sess.notifyLocked()
	sess.mu.Unlock()

	go s.run(runCtx, cancel, sess)
	return nil
}

// runContext detaches the batch from the request while keeping its values
// (request id, principal, client address) for logging and audit.
func (s *Service) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(base, s.cfg.Timeout)
	}
	return context.WithCancel(base)
}

// run executes the batch. The slot is released and the audit entry
// written before the session is finished, so a caller returning from
// Result sees both.
func (s *Service) run(ctx context.Context, cancel context.CancelFunc, sess *importSession) {
	defer cancel()

	log := logging.WithFields(ctx, "session_id", sess.id, "file", sess.fileName)
	start := time.Now()
	log.Info("import started", "valid_rows", sess.summary.Valid)

	var (
		report csvimport.Report
		runErr error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in import", "panic", r)
				runErr = fmt.Errorf("internal error: %v", r)
			}
		}()
		im := &csvimport.Importer{
			Creator:    s.questions,
			RowTimeout: s.cfg.RowTimeout,
			Logger:     log,
			OnProgress: sess.update,
		}
		report, runErr = im.Run(ctx, sess.results, true)
	}()

	phase := PhaseCompleted
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		phase = PhaseCancelled
	default:
		phase = PhaseFailed
	}

	result := ImportResult{
		SessionID: sess.id,
		FileName:  sess.fileName,
		Phase:     phase,
		Report:    report,
		Duration:  time.Since(start),
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	log.Info("import finished",
		"phase", phase,
		"success", report.Success,
		"failed", report.Failed,
		"cancelled", report.Cancelled,
		"duration_ms", result.Duration.Milliseconds(),
	)

	after := context.WithoutCancel(ctx)
	s.audit.LogImport(after, ImportAuditEntry{
		SessionID: sess.id,
		FileName:  sess.fileName,
		Summary:   sess.summary,
		Report:    report,
		Duration:  result.Duration,
		Err:       runErr,
	})
	if report.Success > 0 {
		s.dashboards.Invalidate(after)
	}

	s.limiter.Release()
	sess.finish(result)
	s.expireAfter(sess)
}

// Subscribe returns a channel of progress updates for a session and a
// function that stops the subscription. The current state is delivered
// first; the channel is closed when the session ends. Slow subscribers
// miss intermediate updates but always see the final one.
func (s *Service) Subscribe(id string) (<-chan ImportProgress, func(), error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan ImportProgress, listenerBuffer)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	ch <- sess.progress
	if sess.closed {
		close(ch)
		return ch, func() {}, nil
	}
	sess.listeners = append(sess.listeners, ch)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { sess.removeListener(ch) })
	}
	return ch, unsubscribe, nil
}

// Progress returns the current state of a session without blocking.
func (s *Service) Progress(id string) (ImportProgress, error) {
	sess, err := s.session(id)
	if err != nil {
		return ImportProgress{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.progress, nil
}

// Result blocks until a confirmed session ends or ctx is done.
func (s *Service) Result(ctx context.Context, id string) (ImportResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return ImportResult{}, err
	}
	if p := sess.phase(); p == PhaseParsing || p == PhaseValidated {
		return ImportResult{}, ErrImportNotStarted
	}

	select {
	case <-sess.done:
	case <-ctx.Done():
		return ImportResult{}, ctx.Err()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return *sess.result, nil
}

// Cancel stops a session. A running batch stops before its next row and
// keeps the rows already created; a session still awaiting confirmation
// ends without writing anything. Cancelling an ended session is a no-op.
func (s *Service) Cancel(id string) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	switch sess.progress.Phase {
	case PhaseImporting:
		cancel := sess.cancel
		sess.mu.Unlock()
		cancel()
		return nil
	case PhaseValidated:
		sess.mu.Unlock()
		sess.finish(ImportResult{
			SessionID: sess.id,
			FileName:  sess.fileName,
			Phase:     PhaseCancelled,
			Report: csvimport.Report{
				Skipped:   sess.summary.Invalid,
				Cancelled: sess.summary.Valid,
			},
		})
		slog.Info("import discarded before confirmation", "session_id", sess.id)
		return nil
	default:
		sess.mu.Unlock()
		return nil
	}
}

// Sessions lists the state of every live session, newest first.
func (s *Service) Sessions() []ImportProgress {
	s.mu.RLock()
	list := make([]*importSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].created.After(list[j].created) })

	out := make([]ImportProgress, len(list))
	for i, sess := range list {
		sess.mu.Lock()
		out[i] = sess.progress
		sess.mu.Unlock()
	}
	return out
}

// Shutdown waits for running batches to finish. If ctx ends first the
// remaining batches are cancelled and ctx.Err() is returned.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.limiter.WaitForDrain(ctx)
	if err == nil {
		return nil
	}

	s.mu.RLock()
	for _, sess := range s.sessions {
		sess.mu.Lock()
		if sess.progress.Phase == PhaseImporting && sess.cancel != nil {
			sess.cancel()
		}
		sess.mu.Unlock()
	}
	s.mu.RUnlock()
	return err
}

// Dashboard returns the dashboard aggregates.
func (s *Service) Dashboard(ctx context.Context) (store.DashboardStats, error) {
	if s.dashboards == nil {
		return store.DashboardStats{}, errors.New("dashboard not configured")
	}
	return s.dashboards.Get(ctx)
}

func (s *Service) session(id string) (*importSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// expireAfter drops the session once SessionTTL passes, unless a batch is
// running at that point; the batch schedules its own expiry when it ends.
func (s *Service) expireAfter(sess *importSession) {
	ttl := s.cfg.SessionTTL
	if ttl <= 0 {
		return
	}
	timer := time.AfterFunc(ttl, func() {
		sess.mu.Lock()
		running := sess.progress.Phase == PhaseImporting
		sess.mu.Unlock()
		if running {
			return
		}

		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()

		sess.closeListeners()
	})

	sess.mu.Lock()
	sess.expiry = timer
	sess.mu.Unlock()
}

func (sess *importSession) phase() Phase {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.progress.Phase
}

// update records importer progress and fans it out.
func (sess *importSession) update(p csvimport.Progress) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.progress.Total = p.Total
	sess.progress.Processed = p.Processed
	sess.progress.Success = p.Success
	sess.progress.Failed = p.Failed
	sess.notifyLocked()
}

// finish stores the result, publishes the final state and releases
// everyone waiting on the session.
func (sess *importSession) finish(r ImportResult) {
	sess.mu.Lock()
	if sess.result != nil {
		sess.mu.Unlock()
		return
	}
	sess.result = &r
	sess.progress.Phase = r.Phase
	sess.progress.Error = r.Error
	sess.progress.Success = r.Report.Success
	sess.progress.Failed = r.Report.Failed
	sess.progress.Processed = r.Report.Attempted()
	sess.notifyLocked()
	sess.closeListenersLocked()
	close(sess.done)
	sess.mu.Unlock()
}

// notifyLocked sends the current progress to every listener. A listener
// with a full buffer has its oldest update dropped.
func (sess *importSession) notifyLocked() {
	for _, ch := range sess.listeners {
		select {
		case ch <- sess.progress:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- sess.progress:
		default:
		}
	}
}

func (sess *importSession) closeListeners() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.closeListenersLocked()
}

func (sess *importSession) closeListenersLocked() {
	if sess.closed {
		return
	}
	for _, ch := range sess.listeners {
		close(ch)
	}
	sess.listeners = nil
	sess.closed = true
}

func (sess *importSession) removeListener(ch chan ImportProgress) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for i, l := range sess.listeners {
		if l == ch {
			sess.listeners = append(sess.listeners[:i], sess.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}
