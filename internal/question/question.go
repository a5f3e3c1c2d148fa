// Package question defines the question-bank entities shared by the importer,
// the store, and the admin web layer.
//
// All learner-facing text is bilingual: every English field has a parallel
// Hindi field carrying the same content.
package question

import (
	"strings"
	"time"
)

// Difficulty is the coarse difficulty tag attached to every question.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the accepted difficulty values in display order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty reports whether s names a known difficulty.
// Matching is exact; "Easy" is not accepted.
func ParseDifficulty(s string) (Difficulty, bool) {
	for _, d := range Difficulties {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// BlockType identifies the kind of a content block in a question body.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
)

// ContentBlock is one element of a question body. Text blocks carry parallel
// English/Hindi strings; image blocks reference an object-storage URL.
type ContentBlock struct {
	Type   BlockType `json:"type"`
	Text   string    `json:"text,omitempty"`
	TextHi string    `json:"text_hi,omitempty"`
	URL    string    `json:"url,omitempty"`
	Alt    string    `json:"alt,omitempty"`
}

// TextBlock builds a bilingual text block.
func TextBlock(en, hi string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: en, TextHi: hi}
}

// Option is one answer choice.
type Option struct {
	Text   string `json:"text"`
	TextHi string `json:"text_hi"`
}

// PYQ is the provenance of a previous-year question.
type PYQ struct {
	Year  int    `json:"year"`
	Tier  string `json:"tier,omitempty"`
	Shift string `json:"shift,omitempty"`
}

// Question is the persisted question entity.
type Question struct {
	ID            string         `json:"id,omitempty"`
	Body          []ContentBlock `json:"body"`
	Options       []Option       `json:"options"`
	CorrectOption int            `json:"correct_option"`
	Explanation   string         `json:"explanation"`
	ExplanationHi string         `json:"explanation_hi"`
	Difficulty    Difficulty     `json:"difficulty"`
	TopicID       string         `json:"topic_id"`
	SubtopicID    string         `json:"subtopic_id,omitempty"`
	IsPYQ         bool           `json:"is_pyq"`
	PYQ           *PYQ           `json:"pyq,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	CreatedAt     time.Time      `json:"created_at,omitempty"`
}

// Text returns the English text of the first text block of the body.
func (q Question) Text() string {
	for _, b := range q.Body {
		if b.Type == BlockText {
			return b.Text
		}
	}
	return ""
}

// TextHi returns the Hindi text of the first text block of the body.
func (q Question) TextHi() string {
	for _, b := range q.Body {
		if b.Type == BlockText {
			return b.TextHi
		}
	}
	return ""
}

// SplitTags splits a comma-separated tag list, trimming blanks and
// dropping duplicates while keeping first-seen order.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	seen := make(map[string]bool)
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		tags = append(tags, t)
	}
	return tags
}
