package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/question"
	"github.com/JonMunkholm/quizadmin/internal/store"
)

// CatalogStore is the write side of the question bank. *store.Store
// implements it.
type CatalogStore interface {
	CreateQuestion(ctx context.Context, q question.Question, tags []string) (string, error)
	DeleteQuestion(ctx context.Context, id string) error
	CreateTopic(ctx context.Context, t store.Topic) (store.Topic, error)
	DeleteTopic(ctx context.Context, id string) error
	CreateTag(ctx context.Context, name string) (store.Tag, error)
	DeleteTag(ctx context.Context, id string) error
	CreateQuiz(ctx context.Context, z store.Quiz) (store.Quiz, error)
	DeleteQuiz(ctx context.Context, id string) error
	SetQuizQuestions(ctx context.Context, id string, questionIDs []string) error
	SetQuizPublished(ctx context.Context, id string, published bool) error
	SetUserRole(ctx context.Context, id string, role auth.Role) (auth.Role, error)
	CloseReport(ctx context.Context, id string, status store.ReportStatus, by string) error
}

// Catalog applies admin edits to the question bank. Every edit is audited
// and edits that change dashboard numbers drop the cached aggregates.
type Catalog struct {
	store      CatalogStore
	validator  *question.Validator
	audit      *AuditService
	dashboards *Dashboards
}

// NewCatalog creates a Catalog. audit and dashboards may be nil.
func NewCatalog(s CatalogStore, v *question.Validator, audit *AuditService, dashboards *Dashboards) *Catalog {
	return &Catalog{store: s, validator: v, audit: audit, dashboards: dashboards}
}

// CreateQuestion validates a single-question form and stores it. Invalid
// input returns question.FieldErrors.
func (c *Catalog) CreateQuestion(ctx context.Context, in question.Input) (string, error) {
	if err := c.validator.Check(in); err != nil {
		return "", err
	}
	q := in.Build()
	id, err := c.store.CreateQuestion(ctx, q, question.SplitTags(strings.Join(in.Tags, ",")))
	if err != nil {
		return "", err
	}
	c.audit.LogCreate(ctx, ActionQuestionCreate, EntityQuestion, id)
	c.dashboards.Invalidate(ctx)
	return id, nil
}

// DeleteQuestion removes a question.
func (c *Catalog) DeleteQuestion(ctx context.Context, id string) error {
	if err := c.store.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	c.audit.LogDelete(ctx, ActionQuestionDelete, EntityQuestion, id, nil)
	c.dashboards.Invalidate(ctx)
	return nil
}

// TopicInput is the create-topic payload.
type TopicInput struct {
	ID       string `json:"id" validate:"required,notblank,max=64"`
	Name     string `json:"name" validate:"required,notblank"`
	NameHi   string `json:"name_hi" validate:"required,notblank"`
	ParentID string `json:"parent_id"`
}

// CreateTopic validates and stores a topic or subtopic.
func (c *Catalog) CreateTopic(ctx context.Context, in TopicInput) (store.Topic, error) {
	if err := c.validator.Struct(in); err != nil {
		return store.Topic{}, err
	}
	t, err := c.store.CreateTopic(ctx, store.Topic{ID: in.ID, Name: in.Name, NameHi: in.NameHi, ParentID: in.ParentID})
	if err != nil {
		return t, err
	}
	c.audit.LogCreate(ctx, ActionTopicCreate, EntityTopic, t.ID)
	return t, nil
}

// DeleteTopic removes a topic and its subtopics. Topics still referenced
// by questions return store.ErrConflict.
func (c *Catalog) DeleteTopic(ctx context.Context, id string) error {
	if err := c.store.DeleteTopic(ctx, id); err != nil {
		return err
	}
	c.audit.LogDelete(ctx, ActionTopicDelete, EntityTopic, id, nil)
	c.dashboards.Invalidate(ctx)
	return nil
}

// TagInput is the create-tag payload.
type TagInput struct {
	Name string `json:"name" validate:"required,notblank,max=64"`
}

// CreateTag stores a tag.
func (c *Catalog) CreateTag(ctx context.Context, in TagInput) (store.Tag, error) {
	if err := c.validator.Struct(in); err != nil {
		return store.Tag{}, err
	}
	return c.store.CreateTag(ctx, in.Name)
}

// DeleteTag removes a tag from every question.
func (c *Catalog) DeleteTag(ctx context.Context, id string) error {
	if err := c.store.DeleteTag(ctx, id); err != nil {
		return err
	}
	c.audit.LogDelete(ctx, ActionTagDelete, EntityTag, id, nil)
	return nil
}

// QuizInput is the create payload for quizzes and exams.
type QuizInput struct {
	Kind            string   `json:"kind" validate:"required,oneof=quiz exam"`
	Title           string   `json:"title" validate:"required,notblank"`
	TitleHi         string   `json:"title_hi" validate:"required,notblank"`
	TopicID         string   `json:"topic_id"`
	DurationMinutes int      `json:"duration_minutes" validate:"min=0,max=600"`
	QuestionIDs     []string `json:"question_ids" validate:"dive,uuid"`
}

// CreateQuiz stores a quiz or exam with its ordered question list.
func (c *Catalog) CreateQuiz(ctx context.Context, in QuizInput) (store.Quiz, error) {
	if err := c.validator.Struct(in); err != nil {
		return store.Quiz{}, err
	}
	if in.Kind == string(store.KindExam) && in.DurationMinutes == 0 {
		return store.Quiz{}, question.FieldErrors{{Field: "duration_minutes", Message: "duration_minutes is required for exams"}}
	}

	z, err := c.store.CreateQuiz(ctx, store.Quiz{
		Kind:            store.QuizKind(in.Kind),
		Title:           in.Title,
		TitleHi:         in.TitleHi,
		TopicID:         in.TopicID,
		DurationMinutes: in.DurationMinutes,
	})
	if err != nil {
		return z, err
	}
	if len(in.QuestionIDs) > 0 {
		if err := c.store.SetQuizQuestions(ctx, z.ID, in.QuestionIDs); err != nil {
			return z, fmt.Errorf("quiz %s created without questions: %w", z.ID, err)
		}
		z.QuestionIDs = in.QuestionIDs
	}
	c.audit.LogCreate(ctx, ActionQuizCreate, EntityQuiz, z.ID)
	c.dashboards.Invalidate(ctx)
	return z, nil
}

// QuizQuestionsInput replaces a quiz's question list.
type QuizQuestionsInput struct {
	QuestionIDs []string `json:"question_ids" validate:"dive,uuid"`
}

// SetQuizQuestions replaces the ordered question list of a quiz.
func (c *Catalog) SetQuizQuestions(ctx context.Context, id string, in QuizQuestionsInput) error {
	if err := c.validator.Struct(in); err != nil {
		return err
	}
	return c.store.SetQuizQuestions(ctx, id, in.QuestionIDs)
}

// SetQuizPublished publishes or unpublishes a quiz. Publishing a quiz with
// no questions returns store.ErrConflict.
func (c *Catalog) SetQuizPublished(ctx context.Context, id string, published bool) error {
	if err := c.store.SetQuizPublished(ctx, id, published); err != nil {
		return err
	}
	c.audit.LogQuizPublished(ctx, id, published)
	c.dashboards.Invalidate(ctx)
	return nil
}

// DeleteQuiz removes a quiz or exam.
func (c *Catalog) DeleteQuiz(ctx context.Context, id string) error {
	if err := c.store.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	c.audit.LogDelete(ctx, ActionQuizDelete, EntityQuiz, id, nil)
	c.dashboards.Invalidate(ctx)
	return nil
}

// SetUserRole changes a user's role. Nobody can change their own role.
func (c *Catalog) SetUserRole(ctx context.Context, userID string, role auth.Role) error {
	if _, ok := auth.ParseRole(string(role)); !ok {
		return question.FieldErrors{{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}}
	}
	if p, ok := auth.PrincipalFrom(ctx); ok && p.UserID == userID {
		return fmt.Errorf("%w: cannot change your own role", auth.ErrForbidden)
	}

	prev, err := c.store.SetUserRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if prev != role {
		c.audit.LogRoleChange(ctx, userID, prev, role)
		c.dashboards.Invalidate(ctx)
	}
	return nil
}

// CloseReport resolves or dismisses an open report on behalf of the
// current principal.
func (c *Catalog) CloseReport(ctx context.Context, id string, status store.ReportStatus) error {
	var by string
	if p, ok := auth.PrincipalFrom(ctx); ok {
		by = p.UserID
	}
	if err := c.store.CloseReport(ctx, id, status, by); err != nil {
		return err
	}
	c.audit.LogReportClosed(ctx, id, status)
	c.dashboards.Invalidate(ctx)
	return nil
}
