// Package csvimport implements the question bulk-import pipeline:
// parse CSV text into typed rows, validate each row, map valid rows to
// question.Question values, and submit them one at a time.
//
// Parsing and validation never touch storage. Only Importer.Run writes, and
// it refuses to start without explicit confirmation.
package csvimport

import (
	"strconv"
	"strings"
)

// Template column names. Columns holds them in template order.
const (
	ColQuestionText   = "question_text"
	ColQuestionTextHi = "question_text_hi"
	ColCorrectOption  = "correct_option"
	ColExplanation    = "explanation"
	ColExplanationHi  = "explanation_hi"
	ColTopicID        = "topic_id"
	ColSubtopicID     = "subtopic_id"
	ColDifficulty     = "difficulty"
	ColIsPYQ          = "is_pyq"
	ColYear           = "year"
	ColTier           = "tier"
	ColShift          = "shift"
	ColTags           = "tags"
)

// OptionSlots is the number of option column pairs in the template.
const OptionSlots = 4

// OptionCol returns the English column name of option slot n (1-based).
func OptionCol(n int) string { return "option_" + strconv.Itoa(n) + "_text" }

// OptionColHi returns the Hindi column name of option slot n (1-based).
func OptionColHi(n int) string { return OptionCol(n) + "_hi" }

// Columns is the documented template header.
var Columns = func() []string {
	cols := []string{ColQuestionText, ColQuestionTextHi}
	for n := 1; n <= OptionSlots; n++ {
		cols = append(cols, OptionCol(n), OptionColHi(n))
	}
	return append(cols,
		ColCorrectOption,
		ColExplanation, ColExplanationHi,
		ColTopicID, ColSubtopicID,
		ColDifficulty,
		ColIsPYQ, ColYear, ColTier, ColShift,
		ColTags,
	)
}()

// RawRow maps column name to cell text for one data line.
// It is not modified after parsing.
type RawRow map[string]string

// Get returns the cell for col, or "" when the column was not in the header.
func (r RawRow) Get(col string) string { return r[col] }

// OptionText is one option slot of a row.
type OptionText struct {
	Text   string
	TextHi string
}

// Present reports whether the slot counts as a provided option.
// Only the English half decides.
func (o OptionText) Present() bool { return o.Text != "" }

// QuestionRow is the typed projection of a RawRow.
//
// CorrectOption and Year are nil when the cell was blank or not an integer.
type QuestionRow struct {
	Raw RawRow

	QuestionText   string
	QuestionTextHi string
	Options        [OptionSlots]OptionText
	CorrectOption  *int
	Explanation    string
	ExplanationHi  string
	TopicID        string
	SubtopicID     string
	Difficulty     string
	IsPYQ          bool
	Year           *int
	Tier           string
	Shift          string
	Tags           string
}

// PresentOptions returns the number of option slots whose English text is
// non-empty.
func (r QuestionRow) PresentOptions() int {
	n := 0
	for _, o := range r.Options {
		if o.Present() {
			n++
		}
	}
	return n
}

// newQuestionRow projects raw cells onto typed fields.
func newQuestionRow(raw RawRow) QuestionRow {
	row := QuestionRow{
		Raw:            raw,
		QuestionText:   raw.Get(ColQuestionText),
		QuestionTextHi: raw.Get(ColQuestionTextHi),
		CorrectOption:  parseInt(raw.Get(ColCorrectOption)),
		Explanation:    raw.Get(ColExplanation),
		ExplanationHi:  raw.Get(ColExplanationHi),
		TopicID:        raw.Get(ColTopicID),
		SubtopicID:     raw.Get(ColSubtopicID),
		Difficulty:     raw.Get(ColDifficulty),
		IsPYQ:          parseBool(raw.Get(ColIsPYQ)),
		Year:           parseInt(raw.Get(ColYear)),
		Tier:           raw.Get(ColTier),
		Shift:          raw.Get(ColShift),
		Tags:           raw.Get(ColTags),
	}
	for n := 1; n <= OptionSlots; n++ {
		row.Options[n-1] = OptionText{
			Text:   raw.Get(OptionCol(n)),
			TextHi: raw.Get(OptionColHi(n)),
		}
	}
	return row
}

// parseInt returns nil for blank or non-integer cells.
func parseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &i
}

// parseBool accepts "true" in any case; everything else is false.
func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
