package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/quizadmin/internal/config"
	"github.com/JonMunkholm/quizadmin/internal/core"
	"github.com/JonMunkholm/quizadmin/internal/csvimport"
	"github.com/JonMunkholm/quizadmin/internal/question"
)

const header = "question_text,question_text_hi,option_1_text,option_1_text_hi,option_2_text,option_2_text_hi,correct_option,explanation,explanation_hi,topic_id,difficulty,is_pyq"

const sampleCSV = header + `
Largest planet?,सबसे बड़ा ग्रह?,Mars,मंगल,Jupiter,बृहस्पति,1,Jupiter is largest.,बृहस्पति सबसे बड़ा है।,science,easy,false
,सबसे छोटा ग्रह?,Mercury,बुध,Venus,शुक्र,0,Mercury is smallest.,बुध सबसे छोटा है।,science,easy,false
Red planet?,लाल ग्रह?,Mars,मंगल,Venus,शुक्र,0,Iron oxide.,आयरन ऑक्साइड।,science,medium,false
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTemplateCmd(t *testing.T) {
	out, err := execute(t, "template")
	if err != nil {
		t.Fatalf("template error = %v", err)
	}
	first := strings.SplitN(out, "\n", 2)[0]
	if strings.TrimSpace(first) != strings.Join(csvimport.Columns, ",") {
		t.Errorf("header = %q", first)
	}
}

func TestTemplateCmd_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tpl.csv")
	if _, err := execute(t, "template", "-o", path); err != nil {
		t.Fatalf("template error = %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), csvimport.ColQuestionText) {
		t.Errorf("file starts with %q", string(b[:20]))
	}
}

func TestValidateCmd(t *testing.T) {
	path := writeFile(t, sampleCSV)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"lenient", []string{"validate", path}, nil},
		{"strict", []string{"validate", "--strict", path}, errInvalidRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(out, "3 rows, 2 valid, 1 invalid") {
				t.Errorf("summary missing: %s", out)
			}
			if !strings.Contains(out, "row 2: "+csvimport.MsgQuestionTextRequired) {
				t.Errorf("row error missing: %s", out)
			}
		})
	}
}

func TestValidateCmd_ParseError(t *testing.T) {
	path := writeFile(t, header+"\n")
	_, err := execute(t, "validate", path)
	if !csvimport.IsParseError(err) {
		t.Errorf("error = %v, want parse error", err)
	}
}

// recordingCreator stores questions in memory.
type recordingCreator struct {
	mu    sync.Mutex
	texts []string
}

func (c *recordingCreator) CreateQuestion(_ context.Context, q question.Question, _ []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, q.Text())
	return "id", nil
}

func newImports(c csvimport.Creator) *core.Service {
	return core.NewService(core.Deps{Questions: c}, config.ImportConfig{
		MaxFileSize:   1 << 20,
		MaxConcurrent: 1,
		MaxWaitTime:   time.Second,
		RowTimeout:    time.Second,
		Timeout:       time.Minute,
		SessionTTL:    time.Minute,
	})
}

func withTerminal(t *testing.T, tty bool) {
	t.Helper()
	prev := isTerminal
	isTerminal = func(io.Reader) bool { return tty }
	t.Cleanup(func() { isTerminal = prev })
}

func TestImportWith(t *testing.T) {
	tests := []struct {
		name      string
		tty       bool
		input     string
		yes       bool
		wantErr   error
		wantRows  int
		wantInOut string
	}{
		{"yes flag", false, "", true, nil, 2, "2 imported, 0 failed"},
		{"confirmed at prompt", true, "y\n", false, nil, 2, "Import 2 questions? [y/N]"},
		{"declined at prompt", true, "n\n", false, nil, 0, "aborted, nothing was written"},
		{"no terminal", false, "", false, errNotInteractive, 0, "2 valid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withTerminal(t, tt.tty)
			creator := &recordingCreator{}
			var out bytes.Buffer

			err := importWith(context.Background(), newImports(creator), strings.NewReader(tt.input), &out,
				"questions.csv", strings.NewReader(sampleCSV), tt.yes)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if len(creator.texts) != tt.wantRows {
				t.Errorf("created %d questions, want %d", len(creator.texts), tt.wantRows)
			}
			if !strings.Contains(out.String(), tt.wantInOut) {
				t.Errorf("output missing %q:\n%s", tt.wantInOut, out.String())
			}
		})
	}
}

func TestImportWith_NothingValid(t *testing.T) {
	creator := &recordingCreator{}
	var out bytes.Buffer
	csv := header + "\n,,,,,,,,,science,easy,false\n"

	err := importWith(context.Background(), newImports(creator), strings.NewReader(""), &out,
		"bad.csv", strings.NewReader(csv), true)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(out.String(), "nothing to import") || len(creator.texts) != 0 {
		t.Errorf("output = %s, created = %d", out.String(), len(creator.texts))
	}
}

func TestImportWith_ParseErrorIsUserFacing(t *testing.T) {
	var out bytes.Buffer
	err := importWith(context.Background(), newImports(&recordingCreator{}), strings.NewReader(""), &out,
		"empty.csv", strings.NewReader(""), true)
	if err == nil || !strings.Contains(err.Error(), "FILE005") {
		t.Errorf("error = %v, want FILE005 message", err)
	}
}

func TestConfirm(t *testing.T) {
	withTerminal(t, true)

	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"\n", false},
		{"no\n", false},
		{"", false},
	}

	for _, tt := range tests {
		got, err := confirm(strings.NewReader(tt.input), io.Discard, "Go?")
		if err != nil {
			t.Fatalf("confirm(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
