package store

import (
	"context"
	"fmt"
	"time"
)

// Count is a labelled aggregate.
type Count struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// DailyCount is an aggregate for one calendar day.
type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// DashboardStats are the headline aggregates of the admin dashboard.
type DashboardStats struct {
	Questions      int64        `json:"questions"`
	PYQs           int64        `json:"pyqs"`
	Quizzes        int64        `json:"quizzes"`
	Exams          int64        `json:"exams"`
	Published      int64        `json:"published"`
	OpenReports    int64        `json:"open_reports"`
	Users          int64        `json:"users"`
	Imports30d     int64        `json:"imports_30d"`
	ByDifficulty   []Count      `json:"by_difficulty"`
	ByTopic        []Count      `json:"by_topic"`
	UsersByRole    []Count      `json:"users_by_role"`
	QuestionsAdded []DailyCount `json:"questions_added"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// TopTopics is the number of topics listed in DashboardStats.ByTopic.
const TopTopics = 10

// Dashboard runs the dashboard aggregate queries.
func (s *Store) Dashboard(ctx context.Context) (DashboardStats, error) {
	var st DashboardStats

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM questions WHERE is_pyq),
			(SELECT COUNT(*) FROM quizzes WHERE kind = 'quiz'),
			(SELECT COUNT(*) FROM quizzes WHERE kind = 'exam'),
			(SELECT COUNT(*) FROM quizzes WHERE published),
			(SELECT COUNT(*) FROM reports WHERE status = 'open'),
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(*) FROM audit_log
				WHERE action = 'question_import' AND created_at >= now() - interval '30 days')`,
	).Scan(&st.Questions, &st.PYQs, &st.Quizzes, &st.Exams, &st.Published, &st.OpenReports, &st.Users, &st.Imports30d)
	if err != nil {
		return st, fmt.Errorf("dashboard totals: %w", err)
	}

	if st.ByDifficulty, err = s.counts(ctx, `
		SELECT difficulty, COUNT(*) FROM questions GROUP BY difficulty ORDER BY difficulty`); err != nil {
		return st, fmt.Errorf("dashboard by difficulty: %w", err)
	}
	if st.ByTopic, err = s.counts(ctx, `
		SELECT t.name, COUNT(*) FROM questions q JOIN topics t ON t.id = q.topic_id
		GROUP BY t.name ORDER BY COUNT(*) DESC, t.name LIMIT $1`, TopTopics); err != nil {
		return st, fmt.Errorf("dashboard by topic: %w", err)
	}
	if st.UsersByRole, err = s.counts(ctx, `
		SELECT role, COUNT(*) FROM profiles GROUP BY role ORDER BY role`); err != nil {
		return st, fmt.Errorf("dashboard users by role: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day, COUNT(*)
		FROM questions
		WHERE created_at >= now() - interval '30 days'
		GROUP BY day ORDER BY day`)
	if err != nil {
		return st, fmt.Errorf("dashboard questions added: %w", err)
	}
	defer rows.Close()
	st.QuestionsAdded = make([]DailyCount, 0)
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return st, err
		}
		st.QuestionsAdded = append(st.QuestionsAdded, d)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	st.GeneratedAt = time.Now().UTC()
	return st, nil
}

func (s *Store) counts(ctx context.Context, query string, args ...any) ([]Count, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Count, 0)
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
