package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// QuizKind distinguishes practice quizzes from timed exams.
type QuizKind string

const (
	KindQuiz QuizKind = "quiz"
	KindExam QuizKind = "exam"
)

// Quiz is a quiz or exam: an ordered list of questions.
type Quiz struct {
	ID              string    `json:"id"`
	Kind            QuizKind  `json:"kind"`
	Title           string    `json:"title"`
	TitleHi         string    `json:"title_hi"`
	TopicID         string    `json:"topic_id,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Published       bool      `json:"published"`
	QuestionIDs     []string  `json:"question_ids"`
	CreatedAt       time.Time `json:"created_at"`
}

const quizColumns = `z.id, z.kind, z.title, z.title_hi, z.topic_id, z.duration_minutes, z.published, z.created_at,
	COALESCE((SELECT array_agg(zq.question_id::text ORDER BY zq.position)
		FROM quiz_questions zq WHERE zq.quiz_id = z.id), '{}')`

func scanQuiz(row pgx.Row) (Quiz, error) {
	var (
		z     Quiz
		id    pgtype.UUID
		kind  string
		topic pgtype.Text
	)
	err := row.Scan(&id, &kind, &z.Title, &z.TitleHi, &topic, &z.DurationMinutes, &z.Published, &z.CreatedAt, &z.QuestionIDs)
	if err != nil {
		return z, err
	}
	z.ID = uuidString(id)
	z.Kind = QuizKind(kind)
	z.TopicID = topic.String
	return z, nil
}

// ListQuizzes returns quizzes of kind (or all when empty), newest first.
func (s *Store) ListQuizzes(ctx context.Context, kind QuizKind, page Page) ([]Quiz, error) {
	w := NewWhereBuilder().Add("z.kind", string(kind))
	where, args := w.Build()
	limit, limitArgs := page.clause(w)

	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes z`+where+` ORDER BY z.created_at DESC`+limit,
		append(args, limitArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := make([]Quiz, 0)
	for rows.Next() {
		z, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, z)
	}
	return quizzes, rows.Err()
}

// GetQuiz returns one quiz with its ordered question ids.
func (s *Store) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	pgID, ok := pgUUID(id)
	if !ok {
		return Quiz{}, ErrNotFound
	}
	z, err := scanQuiz(s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes z WHERE z.id = $1`, pgID))
	if err != nil {
		return Quiz{}, notFound(err)
	}
	return z, nil
}

// CreateQuiz inserts an unpublished quiz with no questions.
func (s *Store) CreateQuiz(ctx context.Context, z Quiz) (Quiz, error) {
	var id pgtype.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO quizzes (kind, title, title_hi, topic_id, duration_minutes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		string(z.Kind), z.Title, z.TitleHi, pgText(z.TopicID), z.DurationMinutes,
	).Scan(&id, &z.CreatedAt)
	if err != nil {
		return z, mapWriteError("create quiz", err)
	}
	z.ID = uuidString(id)
	z.Published = false
	z.QuestionIDs = []string{}
	return z, nil
}

// DeleteQuiz removes a quiz.
func (s *Store) DeleteQuiz(ctx context.Context, id string) error {
	pgID, ok := pgUUID(id)
	if !ok {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, pgID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetQuizQuestions replaces the quiz's question list with questionIDs,
// in order. Unknown question ids return ErrConflict.
func (s *Store) SetQuizQuestions(ctx context.Context, id string, questionIDs []string) error {
	pgID, ok := pgUUID(id)
	if !ok {
		return ErrNotFound
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id = $1)`, pgID).Scan(&exists); err != nil {
			return fmt.Errorf("lookup quiz: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM quiz_questions WHERE quiz_id = $1`, pgID); err != nil {
			return fmt.Errorf("clear quiz questions: %w", err)
		}

		batch := &pgx.Batch{}
		for pos, qid := range questionIDs {
			qUUID, ok := pgUUID(qid)
			if !ok {
				return fmt.Errorf("%w: invalid question id %q", ErrConflict, qid)
			}
			batch.Queue(`INSERT INTO quiz_questions (quiz_id, question_id, position) VALUES ($1, $2, $3)`,
				pgID, qUUID, pos)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return mapWriteError("set quiz questions", err)
		}
		return nil
	})
}

// SetQuizPublished publishes or unpublishes a quiz. Publishing an empty
// quiz returns ErrConflict.
func (s *Store) SetQuizPublished(ctx context.Context, id string, published bool) error {
	pgID, ok := pgUUID(id)
	if !ok {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE quizzes SET published = $2
		WHERE id = $1
		  AND (NOT $2 OR EXISTS (SELECT 1 FROM quiz_questions WHERE quiz_id = $1))`, pgID, published)
	if err != nil {
		return fmt.Errorf("publish quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetQuiz(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: quiz has no questions", ErrConflict)
	}
	return nil
}
