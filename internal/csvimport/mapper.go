package csvimport

import "github.com/JonMunkholm/quizadmin/internal/question"

// Map converts a row that passed Validate into a question.
//
// The body is a single bilingual text block. Options are taken from the
// present slots in slot order; absent slots are skipped, not padded, so
// correct_option indexes the compacted list. PYQ metadata is set only when
// is_pyq is true. Tags travel separately; see Importer.
//
// Map does not validate. Behavior on an invalid row is unspecified.
func Map(row QuestionRow) question.Question {
	q := question.Question{
		Body:          []question.ContentBlock{question.TextBlock(row.QuestionText, row.QuestionTextHi)},
		Explanation:   row.Explanation,
		ExplanationHi: row.ExplanationHi,
		Difficulty:    question.Difficulty(row.Difficulty),
		TopicID:       row.TopicID,
		SubtopicID:    row.SubtopicID,
		IsPYQ:         row.IsPYQ,
	}

	q.Options = make([]question.Option, 0, OptionSlots)
	for _, o := range row.Options {
		if !o.Present() {
			continue
		}
		q.Options = append(q.Options, question.Option{Text: o.Text, TextHi: o.TextHi})
	}

	if row.CorrectOption != nil {
		q.CorrectOption = *row.CorrectOption
	}

	if row.IsPYQ {
		pyq := &question.PYQ{Tier: row.Tier, Shift: row.Shift}
		if row.Year != nil {
			pyq.Year = *row.Year
		}
		q.PYQ = pyq
	}

	return q
}
