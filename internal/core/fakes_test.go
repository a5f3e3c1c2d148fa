package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/csvimport"
	"github.com/JonMunkholm/quizadmin/internal/question"
	"github.com/JonMunkholm/quizadmin/internal/store"
)

// fakeQuestions records creates. Questions whose English text is in failOn
// are rejected. When gate is set every create waits for a token or for ctx.
type fakeQuestions struct {
	mu      sync.Mutex
	created []question.Question
	tags    [][]string
	failOn  map[string]bool
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeQuestions) CreateQuestion(ctx context.Context, q question.Question, tags []string) (string, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[q.Text()] {
		return "", errors.New("insert failed: duplicate key value")
	}
	f.created = append(f.created, q)
	f.tags = append(f.tags, tags)
	return "q-" + q.Text(), nil
}

func (f *fakeQuestions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeAuditStore struct {
	mu        sync.Mutex
	records   []store.AuditRecord
	insertErr error

	archiveCutoff time.Time
	archiveBatch  int
	purgeCutoff   time.Time
	archiveErr    error
	purgeErr      error
}

func (f *fakeAuditStore) InsertAudit(_ context.Context, rec store.AuditRecord) (store.AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return rec, f.insertErr
	}
	rec.ID = "audit-" + string(rune('a'+len(f.records)))
	rec.CreatedAt = time.Now()
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeAuditStore) ListAudit(_ context.Context, flt store.AuditFilter) ([]store.AuditRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.AuditRecord
	for _, r := range f.records {
		if flt.Action != "" && r.Action != flt.Action {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAuditStore) ArchiveAudit(_ context.Context, olderThan time.Time, batchSize int) (int64, error) {
	f.archiveCutoff, f.archiveBatch = olderThan, batchSize
	if f.archiveErr != nil {
		return 0, f.archiveErr
	}
	return 12, nil
}

func (f *fakeAuditStore) PurgeAuditArchive(_ context.Context, olderThan time.Time) (int64, error) {
	f.purgeCutoff = olderThan
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	return 3, nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.records))
	for i, r := range f.records {
		out[i] = r.Action
	}
	return out
}

func (f *fakeAuditStore) last() store.AuditRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		return store.AuditRecord{}
	}
	return f.records[len(f.records)-1]
}

type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	deletes int
	sets    int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.deletes++
	return nil
}

func (c *fakeCache) deleteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

type fakeStats struct {
	calls int
	stats store.DashboardStats
	err   error
}

func (f *fakeStats) Dashboard(context.Context) (store.DashboardStats, error) {
	f.calls++
	return f.stats, f.err
}

// fakeCatalog implements CatalogStore in memory.
type fakeCatalog struct {
	fakeQuestions
	deleted   []string
	roles     map[string]auth.Role
	quizzes   map[string]store.Quiz
	closed    map[string]string
	deleteErr error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		roles:   map[string]auth.Role{"u1": auth.Viewer, "u2": auth.Editor},
		quizzes: map[string]store.Quiz{},
		closed:  map[string]string{},
	}
}

func (f *fakeCatalog) DeleteQuestion(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCatalog) CreateTopic(_ context.Context, t store.Topic) (store.Topic, error) {
	return t, nil
}

func (f *fakeCatalog) DeleteTopic(_ context.Context, id string) error {
	if strings.HasPrefix(id, "used") {
		return store.ErrConflict
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCatalog) CreateTag(_ context.Context, name string) (store.Tag, error) {
	return store.Tag{ID: "tag-" + name, Name: name}, nil
}

func (f *fakeCatalog) DeleteTag(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCatalog) CreateQuiz(_ context.Context, z store.Quiz) (store.Quiz, error) {
	z.ID = "quiz-1"
	f.quizzes[z.ID] = z
	return z, nil
}

func (f *fakeCatalog) DeleteQuiz(_ context.Context, id string) error {
	if _, ok := f.quizzes[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.quizzes, id)
	return nil
}

func (f *fakeCatalog) SetQuizQuestions(_ context.Context, id string, ids []string) error {
	z, ok := f.quizzes[id]
	if !ok {
		return store.ErrNotFound
	}
	z.QuestionIDs = ids
	f.quizzes[id] = z
	return nil
}

func (f *fakeCatalog) SetQuizPublished(_ context.Context, id string, published bool) error {
	z, ok := f.quizzes[id]
	if !ok {
		return store.ErrNotFound
	}
	if published && len(z.QuestionIDs) == 0 {
		return store.ErrConflict
	}
	z.Published = published
	f.quizzes[id] = z
	return nil
}

func (f *fakeCatalog) SetUserRole(_ context.Context, id string, role auth.Role) (auth.Role, error) {
	prev, ok := f.roles[id]
	if !ok {
		return "", store.ErrNotFound
	}
	f.roles[id] = role
	return prev, nil
}

func (f *fakeCatalog) CloseReport(_ context.Context, id string, status store.ReportStatus, by string) error {
	if _, done := f.closed[id]; done {
		return store.ErrConflict
	}
	f.closed[id] = string(status) + ":" + by
	return nil
}

// questionCSV renders a CSV with the given question texts. An empty text
// produces a row that fails validation.
func questionCSV(texts ...string) string {
	lines := []string{strings.Join(csvimport.Columns, ",")}
	for _, text := range texts {
		cells := map[string]string{
			csvimport.ColQuestionText:   text,
			csvimport.ColQuestionTextHi: "प्रश्न",
			csvimport.OptionCol(1):      "A",
			csvimport.OptionColHi(1):    "क",
			csvimport.OptionCol(2):      "B",
			csvimport.OptionColHi(2):    "ख",
			csvimport.ColCorrectOption:  "0",
			csvimport.ColExplanation:    "Because.",
			csvimport.ColExplanationHi:  "क्योंकि।",
			csvimport.ColTopicID:        "gk",
			csvimport.ColDifficulty:     "medium",
			csvimport.ColIsPYQ:          "false",
			csvimport.ColTags:           "gk,static",
		}
		record := make([]string, len(csvimport.Columns))
		for i, c := range csvimport.Columns {
			record[i] = cells[c]
			if strings.Contains(record[i], ",") {
				record[i] = `"` + record[i] + `"`
			}
		}
		lines = append(lines, strings.Join(record, ","))
	}
	return strings.Join(lines, "\n") + "\n"
}
