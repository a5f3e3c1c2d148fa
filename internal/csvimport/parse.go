package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseError reports input that cannot be read as a question CSV at all.
// No row is examined when parsing fails.
type ParseError struct {
	Line   int // 1-based input line, 0 when not tied to a line
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse csv: " + e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("parse csv: line %d: %s", e.Line, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseError reasons.
const (
	ReasonMalformed  = "malformed record"
	ReasonRead       = "read input"
	ReasonEmptyInput = "input is empty"
	ReasonNoDataRows = "no data rows after header"
)

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Parse parses CSV text into rows. See ParseReader.
func Parse(text string) ([]QuestionRow, error) {
	return ParseReader(strings.NewReader(text))
}

// ParseReader reads a question CSV.
//
// The first non-blank line is the header. Every following non-blank line
// yields one QuestionRow, in input order. Header names are matched
// case-insensitively; unknown columns are kept in RawRow but otherwise
// ignored. Cells are trimmed of surrounding whitespace.
//
// Input with no header, or a header and no data lines, fails with a
// *ParseError.
func ParseReader(r io.Reader) ([]QuestionRow, error) {
	cr := csv.NewReader(NewCleanReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		header []string
		rows   []QuestionRow
	)

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{Line: csvErr.StartLine, Reason: ReasonMalformed, Err: csvErr.Err}
			}
			return nil, &ParseError{Reason: ReasonRead, Err: err}
		}

		if isEmptyRow(record) {
			continue
		}

		if header == nil {
			header = normalizeHeader(record)
			continue
		}

		rows = append(rows, newQuestionRow(makeRawRow(header, record)))
	}

	if header == nil {
		return nil, &ParseError{Reason: ReasonEmptyInput}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Line: 1, Reason: ReasonNoDataRows}
	}

	return rows, nil
}

func normalizeHeader(record []string) []string {
	header := make([]string, len(record))
	for i, h := range record {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return header
}

// makeRawRow pairs cells with header names by position. Missing trailing
// cells read as empty; cells past the header are dropped.
func makeRawRow(header, record []string) RawRow {
	raw := make(RawRow, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		if i < len(record) {
			raw[name] = strings.TrimSpace(record[i])
		} else {
			raw[name] = ""
		}
	}
	return raw
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
