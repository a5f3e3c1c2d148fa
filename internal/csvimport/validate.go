package csvimport

import "fmt"

// Validation messages. Rules run in the order listed and none stops the
// others, so the message list for a row is deterministic.
const (
	MsgQuestionTextRequired   = "question_text is required"
	MsgQuestionTextHiRequired = "question_text_hi is required"
	MsgMinOptions             = "At least 2 options are required"
	MsgCorrectOptionRange     = "correct_option must be between 0 and 3"
	MsgExplanationRequired    = "explanation is required"
	MsgTopicRequired          = "topic_id is required"
	MsgDifficultyInvalid      = "difficulty must be easy, medium, or hard"
	MsgYearRequired           = "year is required for PYQ questions"

	MsgExplanationHiRequired = "explanation_hi is required"
	MsgCorrectOptionAbsent   = "correct_option must reference one of the provided options"
	MsgYearInvalid           = "year must be a four-digit year"
)

// MinOptions is the least number of present options a question may have.
const MinOptions = 2

// MinYear and MaxYear bound a plausible PYQ year.
const (
	MinYear = 1900
	MaxYear = 2100
)

// MsgOptionHiRequired is the message for slot n (1-based) having English
// text but no Hindi text.
func MsgOptionHiRequired(n int) string {
	return fmt.Sprintf("%s is required when %s is present", OptionColHi(n), OptionCol(n))
}

// ValidationResult pairs a parsed row with its violations. Index is the
// 0-based position of the row among the data rows.
type ValidationResult struct {
	Index  int
	Row    QuestionRow
	Errors []string
}

// Valid reports whether the row had no violations.
func (r ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// DisplayRow is the 1-based row number shown to users.
func (r ValidationResult) DisplayRow() int { return r.Index + 1 }

// Validate returns every rule violation of row, or nil when the row is
// importable. It has no side effects.
func Validate(row QuestionRow) []string {
	var errs []string

	if row.QuestionText == "" {
		errs = append(errs, MsgQuestionTextRequired)
	}
	if row.QuestionTextHi == "" {
		errs = append(errs, MsgQuestionTextHiRequired)
	}
	present := row.PresentOptions()
	if present < MinOptions {
		errs = append(errs, MsgMinOptions)
	}
	if row.CorrectOption == nil || *row.CorrectOption < 0 || *row.CorrectOption > OptionSlots-1 {
		errs = append(errs, MsgCorrectOptionRange)
	}
	if row.Explanation == "" {
		errs = append(errs, MsgExplanationRequired)
	}
	if row.TopicID == "" {
		errs = append(errs, MsgTopicRequired)
	}
	switch row.Difficulty {
	case "easy", "medium", "hard":
	default:
		errs = append(errs, MsgDifficultyInvalid)
	}
	if row.IsPYQ && row.Year == nil {
		errs = append(errs, MsgYearRequired)
	}

	// Bilingual completeness and cross-field checks.
	if row.ExplanationHi == "" {
		errs = append(errs, MsgExplanationHiRequired)
	}
	for i, o := range row.Options {
		if o.Present() && o.TextHi == "" {
			errs = append(errs, MsgOptionHiRequired(i+1))
		}
	}
	if row.CorrectOption != nil && *row.CorrectOption >= 0 && *row.CorrectOption <= OptionSlots-1 &&
		*row.CorrectOption >= present {
		errs = append(errs, MsgCorrectOptionAbsent)
	}
	if row.IsPYQ && row.Year != nil && (*row.Year < MinYear || *row.Year > MaxYear) {
		errs = append(errs, MsgYearInvalid)
	}

	return errs
}

// ValidateAll validates every row in order.
func ValidateAll(rows []QuestionRow) []ValidationResult {
	results := make([]ValidationResult, len(rows))
	for i, row := range rows {
		results[i] = ValidationResult{Index: i, Row: row, Errors: Validate(row)}
	}
	return results
}
