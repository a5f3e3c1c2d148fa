package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrConflict is returned when a write collides with an existing row or
// would orphan dependent rows.
var ErrConflict = errors.New("conflict")

// Topic is a node of the topic tree. Subtopics have a ParentID.
type Topic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NameHi    string    `json:"name_hi"`
	ParentID  string    `json:"parent_id,omitempty"`
	Questions int64     `json:"questions"`
	Children  []*Topic  `json:"children,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag is a free-form question label.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Usage     int64     `json:"usage"`
	CreatedAt time.Time `json:"created_at"`
}

// ListTopics returns every topic with its question count, flat and
// ordered by name.
func (s *Store) ListTopics(ctx context.Context) ([]Topic, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.name, t.name_hi, t.parent_id, t.created_at,
			(SELECT COUNT(*) FROM questions q WHERE q.topic_id = t.id OR q.subtopic_id = t.id)
		FROM topics t
		ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	topics := make([]Topic, 0)
	for rows.Next() {
		var (
			t      Topic
			parent pgtype.Text
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.NameHi, &parent, &t.CreatedAt, &t.Questions); err != nil {
			return nil, err
		}
		t.ParentID = parent.String
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// TopicTree nests a flat topic list under its parents. Topics whose parent
// is missing from the list are returned as roots.
func TopicTree(flat []Topic) []*Topic {
	byID := make(map[string]*Topic, len(flat))
	for i := range flat {
		t := flat[i]
		t.Children = nil
		byID[t.ID] = &t
	}

	roots := make([]*Topic, 0)
	for i := range flat {
		t := byID[flat[i].ID]
		if parent, ok := byID[t.ParentID]; ok && t.ParentID != t.ID {
			parent.Children = append(parent.Children, t)
			continue
		}
		roots = append(roots, t)
	}
	return roots
}

// CreateTopic inserts a topic. A duplicate id returns ErrConflict.
func (s *Store) CreateTopic(ctx context.Context, t Topic) (Topic, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO topics (id, name, name_hi, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		t.ID, t.Name, t.NameHi, pgText(t.ParentID),
	).Scan(&t.CreatedAt)
	if err != nil {
		return t, mapWriteError("create topic", err)
	}
	return t, nil
}

// DeleteTopic removes a topic and its subtopics. Topics still referenced
// by questions return ErrConflict.
func (s *Store) DeleteTopic(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete topic", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTags returns every tag with the number of questions using it.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.name, t.created_at, COUNT(qt.question_id)
		FROM tags t
		LEFT JOIN question_tags qt ON qt.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		var (
			t  Tag
			id pgtype.UUID
		)
		if err := rows.Scan(&id, &t.Name, &t.CreatedAt, &t.Usage); err != nil {
			return nil, err
		}
		t.ID = uuidString(id)
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CreateTag inserts a tag. A duplicate name returns ErrConflict.
func (s *Store) CreateTag(ctx context.Context, name string) (Tag, error) {
	t := Tag{Name: name}
	var id pgtype.UUID
	err := s.pool.QueryRow(ctx, `INSERT INTO tags (name) VALUES ($1) RETURNING id, created_at`, name).
		Scan(&id, &t.CreatedAt)
	if err != nil {
		return t, mapWriteError("create tag", err)
	}
	t.ID = uuidString(id)
	return t, nil
}

// DeleteTag removes a tag and unlinks it from every question.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	pgID, ok := pgUUID(id)
	if !ok {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, pgID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// mapWriteError turns unique and foreign-key violations into ErrConflict.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
