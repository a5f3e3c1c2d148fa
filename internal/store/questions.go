package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/quizadmin/internal/question"
)

// QuestionFilter narrows ListQuestions. Zero values match everything.
type QuestionFilter struct {
	TopicID    string
	Difficulty string
	IsPYQ      *bool
	Search     string
	Tag        string
	Page
}

// QuestionPage is one page of questions plus the unpaged match count.
type QuestionPage struct {
	Items []question.Question `json:"items"`
	Total int64               `json:"total"`
}

const questionColumns = `q.id, q.body, q.options, q.correct_option, q.explanation, q.explanation_hi,
	q.difficulty, q.topic_id, q.subtopic_id, q.is_pyq, q.pyq_year, q.pyq_tier, q.pyq_shift,
	q.created_at,
	COALESCE((SELECT array_agg(t.name ORDER BY t.name) FROM question_tags qt
		JOIN tags t ON t.id = qt.tag_id WHERE qt.question_id = q.id), '{}')`

// CreateQuestion inserts q and links its tags, creating missing tags.
// It runs in one transaction and returns the new id.
func (s *Store) CreateQuestion(ctx context.Context, q question.Question, tags []string) (string, error) {
	body, err := json.Marshal(q.Body)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	options, err := json.Marshal(q.Options)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}

	var (
		year        pgtype.Int4
		tier, shift pgtype.Text
	)
	if q.IsPYQ && q.PYQ != nil {
		year = pgInt4(q.PYQ.Year)
		tier = pgText(q.PYQ.Tier)
		shift = pgText(q.PYQ.Shift)
	}

	var id pgtype.UUID
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO questions (body, options, correct_option, explanation, explanation_hi,
				difficulty, topic_id, subtopic_id, is_pyq, pyq_year, pyq_tier, pyq_shift)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			body, options, q.CorrectOption, q.Explanation, q.ExplanationHi,
			string(q.Difficulty), q.TopicID, pgText(q.SubtopicID), q.IsPYQ, year, tier, shift,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		return linkTags(ctx, tx, id, tags)
	})
	if err != nil {
		return "", err
	}
	return uuidString(id), nil
}

func linkTags(ctx context.Context, tx pgx.Tx, questionID pgtype.UUID, tags []string) error {
	for _, name := range tags {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var tagID pgtype.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO tags (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, name).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("upsert tag %q: %w", name, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO question_tags (question_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, questionID, tagID); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

// GetQuestion returns one question or ErrNotFound.
func (s *Store) GetQuestion(ctx context.Context, id string) (question.Question, error) {
	pgID, ok := pgUUID(id)
	if !ok {
		return question.Question{}, ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions q WHERE q.id = $1`, pgID)
	q, err := scanQuestion(row)
	if err != nil {
		return question.Question{}, notFound(err)
	}
	return q, nil
}

// DeleteQuestion removes a question. Quiz membership, tags links and
// reports go with it.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	pgID, ok := pgUUID(id)
	if !ok {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, pgID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func questionWhere(f QuestionFilter) *WhereBuilder {
	w := NewWhereBuilder().
		Add("q.topic_id", f.TopicID).
		Add("q.difficulty", f.Difficulty).
		AddBool("q.is_pyq", f.IsPYQ)
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		w.AddRaw("(q.body->0->>'text' ILIKE ? OR q.body->0->>'text_hi' ILIKE ?)", pattern, pattern)
	}
	if f.Tag != "" {
		w.AddRaw(`EXISTS (SELECT 1 FROM question_tags qt JOIN tags t ON t.id = qt.tag_id
			WHERE qt.question_id = q.id AND t.name = ?)`, f.Tag)
	}
	return w
}

// ListQuestions returns questions matching f, newest first.
func (s *Store) ListQuestions(ctx context.Context, f QuestionFilter) (QuestionPage, error) {
	w := questionWhere(f)
	where, args := w.Build()

	var page QuestionPage
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions q`+where, args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count questions: %w", err)
	}

	limit, limitArgs := f.Page.clause(w)
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions q`+where+` ORDER BY q.created_at DESC, q.id`+limit,
		append(args, limitArgs...)...)
	if err != nil {
		return page, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	page.Items = make([]question.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, q)
	}
	return page, rows.Err()
}

// EachQuestion streams every question matching f (ignoring paging) to fn,
// oldest first. Iteration stops at the first error from fn.
func (s *Store) EachQuestion(ctx context.Context, f QuestionFilter, fn func(question.Question) error) error {
	where, args := questionWhere(f).Build()
	rows, err := s.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions q`+where+` ORDER BY q.created_at, q.id`, args...)
	if err != nil {
		return fmt.Errorf("export questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return err
		}
		if err := fn(q); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanQuestion(row pgx.Row) (question.Question, error) {
	var (
		q          question.Question
		id         pgtype.UUID
		body       []byte
		options    []byte
		difficulty string
		subtopic   pgtype.Text
		year       pgtype.Int4
		tier       pgtype.Text
		shift      pgtype.Text
		createdAt  time.Time
		tags       []string
	)
	err := row.Scan(&id, &body, &options, &q.CorrectOption, &q.Explanation, &q.ExplanationHi,
		&difficulty, &q.TopicID, &subtopic, &q.IsPYQ, &year, &tier, &shift, &createdAt, &tags)
	if err != nil {
		return q, err
	}

	if err := json.Unmarshal(body, &q.Body); err != nil {
		return q, fmt.Errorf("decode body: %w", err)
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return q, fmt.Errorf("decode options: %w", err)
	}

	q.ID = uuidString(id)
	q.Difficulty = question.Difficulty(difficulty)
	q.SubtopicID = subtopic.String
	q.CreatedAt = createdAt
	if len(tags) > 0 {
		q.Tags = tags
	}
	if q.IsPYQ {
		q.PYQ = &question.PYQ{Year: int(year.Int32), Tier: tier.String, Shift: shift.String}
	}
	return q, nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
