package parse

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const headerLine = `{"user_name":"Alex","character_name":"Seraphina","create_date":"2024-06-05@15h45m00s","chat_metadata":{"note_depth":4}}`

func msgLine(name, mes string) string {
	return `{"name":"` + name + `","is_user":false,"mes":"` + mes + `","send_date":"June 5, 2024 3:45pm"}`
}

const badLine = `{"name":"Broken","is_user":true,"send_date":"June 5, 2024 3:45pm"}`

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			t.Fatal(err)
		}
	}
}

func convertLines(lines []string, opts Options) (*ChatDocument, error) {
	return Convert(strings.NewReader(strings.Join(lines, "\n")), opts)
}

func TestConvert_Basic(t *testing.T) {
	doc, err := convertLines([]string{headerLine, msgLine("A", "one"), msgLine("B", "two")}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Header.CharacterName != "Seraphina" || doc.Header.Metadata.NoteDepth != 4 {
		t.Errorf("header = %+v", doc.Header)
	}
	if doc.Header.LineCount != 3 {
		t.Errorf("LineCount = %d, want 3", doc.Header.LineCount)
	}
	if len(doc.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(doc.Messages))
	}
	for i, m := range doc.Messages {
		if m.FileLine != i+1 {
			t.Errorf("Messages[%d].FileLine = %d, want %d", i, m.FileLine, i+1)
		}
	}
}

func TestConvert_BlankLinesDoNotShiftNumbering(t *testing.T) {
	lines := []string{
		headerLine,
		"",
		"   ",
		msgLine("A", "one"),
		"",
		"garbage {",
		msgLine("B", "two"),
		"",
		"",
	}
	doc, err := convertLines(lines, Options{Strict: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Header.LineCount != 3 {
		t.Errorf("LineCount = %d, want 3", doc.Header.LineCount)
	}
	if doc.Messages[0].FileLine != 1 || doc.Messages[1].FileLine != 2 {
		t.Errorf("FileLine = %d, %d, want 1, 2", doc.Messages[0].FileLine, doc.Messages[1].FileLine)
	}
	if doc.Messages[0].SourceLine != 4 || doc.Messages[1].SourceLine != 7 {
		t.Errorf("SourceLine = %d, %d, want 4, 7", doc.Messages[0].SourceLine, doc.Messages[1].SourceLine)
	}
}

func TestConvert_LenientDropsBadLine(t *testing.T) {
	lines := []string{headerLine, msgLine("A", "one"), badLine, msgLine("B", "two")}

	var dropped []*LineError
	doc, err := convertLines(lines, Options{OnLineError: func(e *LineError) { dropped = append(dropped, e) }})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(doc.Messages))
	}
	if doc.Messages[0].Message != "one" || doc.Messages[1].Message != "two" {
		t.Errorf("messages = %q, %q", doc.Messages[0].Message, doc.Messages[1].Message)
	}
	// the dropped line still counts and still consumes an index
	if doc.Header.LineCount != 4 {
		t.Errorf("LineCount = %d, want 4", doc.Header.LineCount)
	}
	if doc.Messages[1].FileLine != 3 {
		t.Errorf("Messages[1].FileLine = %d, want 3", doc.Messages[1].FileLine)
	}

	if len(dropped) != 1 {
		t.Fatalf("expected 1 dropped line, got %d", len(dropped))
	}
	if dropped[0].Index != 2 || dropped[0].Line != 3 || !errors.Is(dropped[0], ErrMissingField) {
		t.Errorf("dropped = %+v", dropped[0])
	}
}

func TestConvert_LongMessageLine(t *testing.T) {
	long := msgLine("A", strings.Repeat("x", 11*1024*1024))
	lines := []string{headerLine, msgLine("A", "one"), long, msgLine("B", "two")}

	doc, err := convertLines(lines, Options{Strict: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(doc.Messages))
	}
	if len(doc.Messages[1].Message) != 11*1024*1024 {
		t.Errorf("long message truncated to %d bytes", len(doc.Messages[1].Message))
	}
	if doc.Messages[2].FileLine != 3 || doc.Messages[2].Message != "two" {
		t.Errorf("Messages[2] = %d %q", doc.Messages[2].FileLine, doc.Messages[2].Message)
	}
}

func TestConvert_StrictFailsAtomically(t *testing.T) {
	lines := []string{headerLine, msgLine("A", "one"), badLine, msgLine("B", "two")}

	called := false
	doc, err := convertLines(lines, Options{Strict: true, OnLineError: func(*LineError) { called = true }})
	if doc != nil {
		t.Fatalf("expected no document, got %+v", doc)
	}
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("error = %v, want ErrMissingField", err)
	}
	var le *LineError
	if !errors.As(err, &le) || le.Index != 2 {
		t.Errorf("error = %v, want LineError at index 2", err)
	}
	if called {
		t.Error("OnLineError must not be called in strict mode")
	}
}

func TestConvert_HeaderFailureAlwaysFatal(t *testing.T) {
	lines := []string{`{"character_name":"C"}`, msgLine("A", "one")}
	for _, strict := range []bool{false, true} {
		_, err := convertLines(lines, Options{Strict: strict})
		if !errors.Is(err, ErrMissingField) {
			t.Fatalf("strict=%v: error = %v, want ErrMissingField", strict, err)
		}
		var le *LineError
		if !errors.As(err, &le) || le.Index != 0 {
			t.Errorf("strict=%v: error = %v, want header LineError", strict, err)
		}
	}
}

func TestConvert_RequireCreateDate(t *testing.T) {
	lines := []string{`{"user_name":"U","character_name":"C"}`, msgLine("A", "one")}

	doc, err := convertLines(lines, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Header.CreationDate.Valid {
		t.Error("CreationDate should be absent")
	}

	if _, err := convertLines(lines, Options{RequireCreateDate: true}); !errors.Is(err, ErrMissingField) {
		t.Fatalf("error = %v, want ErrMissingField", err)
	}
}

func TestConvert_NoLines(t *testing.T) {
	for _, input := range []string{"", "\n\n   \n", "not json\n{broken"} {
		_, err := Convert(strings.NewReader(input), Options{})
		if !errors.Is(err, ErrMalformedFile) || !strings.Contains(err.Error(), "no lines were parsed") {
			t.Errorf("Convert(%q) error = %v, want no lines were parsed", input, err)
		}
	}
}

func TestConvert_NoMessages(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"header only", []string{headerLine}},
		{"header and blanks", []string{headerLine, "", "  "}},
		{"every message bad", []string{headerLine, badLine, badLine}},
	}
	for _, tt := range tests {
		for _, strict := range []bool{false, true} {
			_, err := convertLines(tt.lines, Options{Strict: strict})
			if !errors.Is(err, ErrMalformedFile) && !(strict && errors.Is(err, ErrMissingField)) {
				t.Errorf("%s strict=%v: error = %v, want ErrMalformedFile", tt.name, strict, err)
			}
			if !strict && !strings.Contains(err.Error(), "no messages were parsed") {
				t.Errorf("%s: error = %v, want no messages were parsed", tt.name, err)
			}
		}
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.jsonl")
	writeLines(t, path, []string{headerLine, msgLine("A", "one")})

	doc, err := ConvertFile(path, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Messages) != 1 || doc.Messages[0].Name != "A" {
		t.Errorf("messages = %+v", doc.Messages)
	}
}

func TestConvertFile_ErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.jsonl")
	writeLines(t, path, []string{headerLine})

	_, err := ConvertFile(path, Options{})
	if !errors.Is(err, ErrMalformedFile) {
		t.Fatalf("error = %v, want ErrMalformedFile", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q should name %s", err, path)
	}
}

func TestConvertFile_Missing(t *testing.T) {
	_, err := ConvertFile(filepath.Join(t.TempDir(), "nope.jsonl"), Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want os.ErrNotExist", err)
	}
}
