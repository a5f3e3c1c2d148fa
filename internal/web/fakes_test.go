package web

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/question"
	"github.com/JonMunkholm/quizadmin/internal/store"
)

// memStore is an in-memory stand-in for *store.Store covering the reader,
// catalog, audit and dashboard interfaces.
type memStore struct {
	mu        sync.Mutex
	questions []question.Question
	topics    []store.Topic
	quizzes   map[string]store.Quiz
	users     map[string]store.User
	reports   map[string]store.Report
	audit     []store.AuditRecord
	pingErr   error
	listErr   error
}

func newMemStore() *memStore {
	return &memStore{
		topics: []store.Topic{
			{ID: "gk", Name: "General Knowledge", NameHi: "सामान्य ज्ञान"},
			{ID: "gk-geo", Name: "Geography", NameHi: "भूगोल", ParentID: "gk"},
		},
		quizzes: map[string]store.Quiz{},
		users: map[string]store.User{
			"root-1":   {ID: "root-1", Email: "root@example.com", Role: auth.SuperAdmin},
			"admin-1":  {ID: "admin-1", Email: "admin@example.com", Role: auth.Admin},
			"editor-1": {ID: "editor-1", Email: "editor@example.com", Role: auth.Editor},
			"viewer-1": {ID: "viewer-1", Email: "viewer@example.com", Role: auth.Viewer},
		},
		reports: map[string]store.Report{
			"r1": {ID: "r1", QuestionID: "q1", Reason: "wrong answer", Status: store.ReportOpen},
		},
	}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) ListQuestions(_ context.Context, f store.QuestionFilter) (store.QuestionPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return store.QuestionPage{}, m.listErr
	}
	items := make([]question.Question, 0)
	for _, q := range m.questions {
		if f.TopicID != "" && q.TopicID != f.TopicID {
			continue
		}
		items = append(items, q)
	}
	return store.QuestionPage{Items: items, Total: int64(len(items))}, nil
}

func (m *memStore) GetQuestion(_ context.Context, id string) (question.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return question.Question{}, store.ErrNotFound
}

func (m *memStore) EachQuestion(ctx context.Context, f store.QuestionFilter, fn func(question.Question) error) error {
	page, err := m.ListQuestions(ctx, f)
	if err != nil {
		return err
	}
	for _, q := range page.Items {
		if err := fn(q); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) CreateQuestion(_ context.Context, q question.Question, tags []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = "q" + strconv.Itoa(len(m.questions)+1)
	q.Tags = tags
	m.questions = append(m.questions, q)
	return q.ID, nil
}

func (m *memStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, q := range m.questions {
		if q.ID == id {
			m.questions = append(m.questions[:i], m.questions[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) ListTopics(context.Context) ([]store.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Topic(nil), m.topics...), nil
}

func (m *memStore) CreateTopic(_ context.Context, t store.Topic) (store.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.topics {
		if existing.ID == t.ID {
			return store.Topic{}, store.ErrConflict
		}
	}
	m.topics = append(m.topics, t)
	return t, nil
}

func (m *memStore) DeleteTopic(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.questions {
		if q.TopicID == id {
			return store.ErrConflict
		}
	}
	for i, t := range m.topics {
		if t.ID == id {
			m.topics = append(m.topics[:i], m.topics[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) ListTags(context.Context) ([]store.Tag, error) {
	return []store.Tag{{ID: "t1", Name: "static", Usage: 2}}, nil
}

func (m *memStore) CreateTag(_ context.Context, name string) (store.Tag, error) {
	return store.Tag{ID: "tag-" + name, Name: name}, nil
}

func (m *memStore) DeleteTag(context.Context, string) error { return nil }

func (m *memStore) ListQuizzes(_ context.Context, kind store.QuizKind, _ store.Page) ([]store.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Quiz, 0)
	for _, z := range m.quizzes {
		if kind == "" || z.Kind == kind {
			out = append(out, z)
		}
	}
	return out, nil
}

func (m *memStore) GetQuiz(_ context.Context, id string) (store.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.quizzes[id]
	if !ok {
		return z, store.ErrNotFound
	}
	return z, nil
}

func (m *memStore) CreateQuiz(_ context.Context, z store.Quiz) (store.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z.ID = "00000000-0000-4000-8000-00000000000" + strconv.Itoa(len(m.quizzes)+1)
	m.quizzes[z.ID] = z
	return z, nil
}

func (m *memStore) DeleteQuiz(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.quizzes, id)
	return nil
}

func (m *memStore) SetQuizQuestions(_ context.Context, id string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.quizzes[id]
	if !ok {
		return store.ErrNotFound
	}
	z.QuestionIDs = ids
	m.quizzes[id] = z
	return nil
}

func (m *memStore) SetQuizPublished(_ context.Context, id string, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.quizzes[id]
	if !ok {
		return store.ErrNotFound
	}
	if published && len(z.QuestionIDs) == 0 {
		return store.ErrConflict
	}
	z.Published = published
	m.quizzes[id] = z
	return nil
}

func (m *memStore) ListReports(_ context.Context, status store.ReportStatus, _ store.Page) ([]store.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Report, 0)
	for _, r := range m.reports {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) CloseReport(_ context.Context, id string, status store.ReportStatus, by string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return store.ErrNotFound
	}
	if r.Status != store.ReportOpen {
		return store.ErrConflict
	}
	r.Status, r.ResolvedBy = status, by
	m.reports[id] = r
	return nil
}

func (m *memStore) ListUsers(_ context.Context, role auth.Role, _ store.Page) ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.User, 0)
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return u, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) SetUserRole(_ context.Context, id string, role auth.Role) (auth.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return "", store.ErrNotFound
	}
	prev := u.Role
	u.Role = role
	m.users[id] = u
	return prev, nil
}

func (m *memStore) InsertAudit(_ context.Context, rec store.AuditRecord) (store.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = "a" + strconv.Itoa(len(m.audit)+1)
	rec.CreatedAt = time.Now()
	m.audit = append(m.audit, rec)
	return rec, nil
}

func (m *memStore) ListAudit(_ context.Context, f store.AuditFilter) ([]store.AuditRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.AuditRecord, 0)
	for i := len(m.audit) - 1; i >= 0; i-- {
		if f.Action != "" && m.audit[i].Action != f.Action {
			continue
		}
		out = append(out, m.audit[i])
	}
	return out, int64(len(out)), nil
}

func (m *memStore) ArchiveAudit(context.Context, time.Time, int) (int64, error) { return 0, nil }

func (m *memStore) PurgeAuditArchive(context.Context, time.Time) (int64, error) { return 0, nil }

func (m *memStore) Dashboard(context.Context) (store.DashboardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return store.DashboardStats{
		Questions:    int64(len(m.questions)),
		Users:        int64(len(m.users)),
		ByDifficulty: []store.Count{{Label: "easy", Count: 1}},
		GeneratedAt:  time.Now(),
	}, nil
}

func (m *memStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.audit))
	for i, a := range m.audit {
		out[i] = a.Action
	}
	return out
}

var errBoom = errors.New("connection refused")

// csvBody renders n valid question rows plus the given invalid rows (empty
// English text).
func csvBody(valid, invalid int) string {
	header := "question_text,question_text_hi,option_1_text,option_1_text_hi,option_2_text,option_2_text_hi,correct_option,explanation,explanation_hi,topic_id,difficulty,is_pyq,tags"
	lines := []string{header}
	for i := 0; i < valid; i++ {
		lines = append(lines, "Question "+strconv.Itoa(i+1)+",प्रश्न,A,क,B,ख,1,Because.,क्योंकि।,gk,easy,false,\"gk,static\"")
	}
	for i := 0; i < invalid; i++ {
		lines = append(lines, ",प्रश्न,A,क,B,ख,1,Because.,क्योंकि।,gk,easy,false,")
	}
	return strings.Join(lines, "\n") + "\n"
}
