package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/quizadmin/internal/question"
)

// ExampleRow is the filled-in row written below the template header.
var ExampleRow = map[string]string{
	ColQuestionText:   "What is the capital of India?",
	ColQuestionTextHi: "भारत की राजधानी क्या है?",
	OptionCol(1):      "Mumbai",
	OptionColHi(1):    "मुंबई",
	OptionCol(2):      "New Delhi",
	OptionColHi(2):    "नई दिल्ली",
	OptionCol(3):      "Kolkata",
	OptionColHi(3):    "कोलकाता",
	OptionCol(4):      "Chennai",
	OptionColHi(4):    "चेन्नई",
	ColCorrectOption:  "1",
	ColExplanation:    "New Delhi is the capital of India.",
	ColExplanationHi:  "नई दिल्ली भारत की राजधानी है।",
	ColTopicID:        "general-knowledge",
	ColSubtopicID:     "indian-geography",
	ColDifficulty:     "easy",
	ColIsPYQ:          "true",
	ColYear:           "2022",
	ColTier:           "Tier 1",
	ColShift:          "Shift 2",
	ColTags:           "capitals,geography",
}

// WriteTemplate writes the template header and one example row.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	example := make([]string, len(Columns))
	for i, c := range Columns {
		example[i] = ExampleRow[c]
	}
	if err := cw.Write(example); err != nil {
		return fmt.Errorf("write example: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// Exporter writes questions in the template layout so that an export can
// be edited and imported again.
type Exporter struct {
	cw     *csv.Writer
	header bool
}

// NewExporter returns an Exporter writing to w.
func NewExporter(w io.Writer) *Exporter {
	return &Exporter{cw: csv.NewWriter(w)}
}

// Write appends one question, writing the header first if needed.
// Options past the template's four slots are dropped.
func (e *Exporter) Write(q question.Question) error {
	if !e.header {
		if err := e.cw.Write(Columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		e.header = true
	}
	if err := e.cw.Write(Record(q)); err != nil {
		return fmt.Errorf("write question %s: %w", q.ID, err)
	}
	return nil
}

// Flush flushes buffered rows. A header is written even when no
// question was.
func (e *Exporter) Flush() error {
	if !e.header {
		if err := e.cw.Write(Columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		e.header = true
	}
	e.cw.Flush()
	return e.cw.Error()
}

// Record renders q as one template row.
func Record(q question.Question) []string {
	cells := map[string]string{
		ColQuestionText:   q.Text(),
		ColQuestionTextHi: q.TextHi(),
		ColCorrectOption:  strconv.Itoa(q.CorrectOption),
		ColExplanation:    q.Explanation,
		ColExplanationHi:  q.ExplanationHi,
		ColTopicID:        q.TopicID,
		ColSubtopicID:     q.SubtopicID,
		ColDifficulty:     string(q.Difficulty),
		ColIsPYQ:          strconv.FormatBool(q.IsPYQ),
	}
	for i, o := range q.Options {
		if i >= OptionSlots {
			break
		}
		cells[OptionCol(i+1)] = o.Text
		cells[OptionColHi(i+1)] = o.TextHi
	}
	if q.IsPYQ && q.PYQ != nil {
		if q.PYQ.Year != 0 {
			cells[ColYear] = strconv.Itoa(q.PYQ.Year)
		}
		cells[ColTier] = q.PYQ.Tier
		cells[ColShift] = q.PYQ.Shift
	}
	if len(q.Tags) > 0 {
		cells[ColTags] = strings.Join(q.Tags, ",")
	}

	record := make([]string, len(Columns))
	for i, c := range Columns {
		record[i] = cells[c]
	}
	return record
}
