package parse

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, input string) []Record {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var recs []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		recs = append(recs, rec)
	}
}

func TestReader_SkipsBlankAndInvalidLines(t *testing.T) {
	input := strings.Join([]string{
		`{"user_name":"U"}`,
		``,
		`   `,
		`{"name":"a"}`,
		`not json at all`,
		`{"name":"b"`,
		`null`,
		"\t",
		`{"name":"c"}`,
		``,
	}, "\n")

	recs := readAll(t, input)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}

	wantLines := []int{1, 4, 9}
	for i, rec := range recs {
		if rec.Index != i {
			t.Errorf("recs[%d].Index = %d, want %d", i, rec.Index, i)
		}
		if rec.Line != wantLines[i] {
			t.Errorf("recs[%d].Line = %d, want %d", i, rec.Line, wantLines[i])
		}
	}
	if string(recs[2].Raw) != `{"name":"c"}` {
		t.Errorf("recs[2].Raw = %s", recs[2].Raw)
	}
}

func TestReader_StripsBOMAndCRLF(t *testing.T) {
	input := "\xEF\xBB\xBF{\"user_name\":\"U\"}\r\n{\"name\":\"a\"}\r\n"
	recs := readAll(t, input)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if string(recs[0].Raw) != `{"user_name":"U"}` {
		t.Errorf("header raw = %q", recs[0].Raw)
	}
	if string(recs[1].Raw) != `{"name":"a"}` {
		t.Errorf("message raw = %q", recs[1].Raw)
	}
}

func TestReader_Empty(t *testing.T) {
	r := NewReader(strings.NewReader("\n\n  \n"))
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if r.Accepted() != 0 {
		t.Errorf("Accepted() = %d, want 0", r.Accepted())
	}
}

func TestReader_RawSurvivesNextCall(t *testing.T) {
	r := NewReader(strings.NewReader("{\"a\":1}\n{\"b\":2}\n"))
	first, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	if string(first.Raw) != `{"a":1}` {
		t.Errorf("first record was overwritten: %s", first.Raw)
	}
}

func TestReader_LongLine(t *testing.T) {
	long := `{"name":"a","mes":"` + strings.Repeat("x", 11*1024*1024) + `"}`
	recs := readAll(t, "{\"user_name\":\"U\"}\n"+long+"\n{\"name\":\"b\"}")
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if len(recs[1].Raw) != len(long) {
		t.Errorf("long record truncated to %d bytes", len(recs[1].Raw))
	}
	if recs[2].Line != 3 || string(recs[2].Raw) != `{"name":"b"}` {
		t.Errorf("last record = line %d %s", recs[2].Line, recs[2].Raw)
	}
}
