package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Zuo-Peng/tavern-chat/internal/parse"
)

const testHeader = `{"user_name":"Alex","character_name":"Seraphina","create_date":"2024-06-05@15h45m00s","chat_metadata":{}}`

func writeChat(t *testing.T, root, character, name string, lines []string) string {
	t.Helper()
	dir := filepath.Join(root, character)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name+".jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func chatLines() []string {
	return []string{
		testHeader,
		`{"name":"Alex","is_user":true,"mes":"Tell me about the forest","send_date":"June 5, 2024 3:45pm"}`,
		`{"name":"Seraphina","is_user":false,"mes":"The glade is quiet tonight","send_date":"June 5, 2024 3:46pm","extra":{"api":"openai","model":"gpt-4o","token_count":12},"swipe_id":0,"swipes":["The glade is quiet tonight","Another"]}`,
		`{"name":"Broken","is_user":true}`,
	}
}

func TestIndexAll(t *testing.T) {
	root := t.TempDir()
	writeChat(t, root, "Seraphina", "first", chatLines())
	writeChat(t, root, "Aqua", "second", chatLines()[:2])
	db := openTestDB(t)

	stats, err := IndexAll(context.Background(), db, root, Options{Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Scanned != 2 || stats.Updated != 2 || stats.Errors != 0 {
		t.Errorf("stats = %s", stats)
	}
	if stats.Dropped != 1 {
		t.Errorf("expected 1 dropped line, got %d", stats.Dropped)
	}

	chats, _ := db.ChatCount()
	msgs, _ := db.MessageCount()
	fts, _ := db.FTSCount()
	if chats != 2 || msgs != 3 || fts != 3 {
		t.Errorf("chats=%d messages=%d fts=%d", chats, msgs, fts)
	}

	chat, err := db.GetChatByKey("Seraphina/first")
	if err != nil || chat == nil {
		t.Fatalf("GetChatByKey: %v %v", chat, err)
	}
	if chat.LineCount != 4 || chat.MessageCount != 2 || chat.Dropped != 1 {
		t.Errorf("chat = %+v", chat)
	}
	if chat.CreatedAt != "2024-06-05T15:45:00" || chat.UpdatedAt != "2024-06-05T15:46:00" {
		t.Errorf("dates = %s %s", chat.CreatedAt, chat.UpdatedAt)
	}
	if chat.Summary != "Tell me about the forest" {
		t.Errorf("summary = %q", chat.Summary)
	}

	rows, err := db.GetMessages("Seraphina/first")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(rows))
	}
	if rows[1].Role != "char" || rows[1].Model != "gpt-4o" || rows[1].SwipeCount != 2 || rows[1].SwipeID != 0 {
		t.Errorf("row = %+v", rows[1])
	}
	if rows[0].SwipeID != -1 || rows[0].SourceLine != 2 {
		t.Errorf("row = %+v", rows[0])
	}

	// second run skips unchanged files
	stats, err = IndexAll(context.Background(), db, root, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 2 || stats.Updated != 0 {
		t.Errorf("second run stats = %s", stats)
	}
}

func TestIndexAll_PrunesAndCountsErrors(t *testing.T) {
	root := t.TempDir()
	keep := writeChat(t, root, "Seraphina", "keep", chatLines())
	gone := writeChat(t, root, "Seraphina", "gone", chatLines())
	db := openTestDB(t)

	if _, err := IndexAll(context.Background(), db, root, Options{}); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	// header only: no messages, the chat cannot be converted
	if err := os.WriteFile(keep, []byte(testHeader+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	os.Chtimes(keep, future, future)

	stats, err := IndexAll(context.Background(), db, root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pruned != 1 || stats.Errors != 1 {
		t.Errorf("stats = %s", stats)
	}
	if c, _ := db.GetChatByKey("Seraphina/gone"); c != nil {
		t.Error("pruned chat still present")
	}
}

func TestIndexAll_StrictFailsWholeFile(t *testing.T) {
	root := t.TempDir()
	writeChat(t, root, "Seraphina", "strict", chatLines())
	db := openTestDB(t)

	stats, err := IndexAll(context.Background(), db, root, Options{Convert: parse.Options{Strict: true}})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Errors != 1 || stats.Updated != 0 {
		t.Errorf("stats = %s", stats)
	}
}

func TestGetMessagesWindow(t *testing.T) {
	root := t.TempDir()
	lines := []string{testHeader}
	for i := 0; i < 10; i++ {
		lines = append(lines, `{"name":"A","is_user":true,"mes":"m","send_date":"June 5, 2024 3:45pm"}`)
	}
	writeChat(t, root, "C", "long", lines)
	db := openTestDB(t)
	if _, err := IndexAll(context.Background(), db, root, Options{}); err != nil {
		t.Fatal(err)
	}

	msgs, hitIdx, startPos, total, err := db.GetMessagesWindow("C/long", 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 10 || startPos != 2 || len(msgs) != 5 || hitIdx != 2 {
		t.Errorf("window: total=%d start=%d len=%d hit=%d", total, startPos, len(msgs), hitIdx)
	}
	if msgs[hitIdx].FileLine != 5 {
		t.Errorf("hit FileLine = %d", msgs[hitIdx].FileLine)
	}

	msgs, hitIdx, _, _, err = db.GetMessagesWindow("C/long", -1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 10 || hitIdx != -1 {
		t.Errorf("no hit: len=%d hit=%d", len(msgs), hitIdx)
	}
}

func TestIndexAll_CJKTruncation(t *testing.T) {
	root := t.TempDir()
	summary := "a" + strings.Repeat("森", 100)
	long := strings.Repeat("湖", 4000)
	writeChat(t, root, "Aqua", "lake", []string{
		testHeader,
		`{"name":"Alex","is_user":true,"mes":"` + summary + `","send_date":"June 5, 2024 3:45pm"}`,
		`{"name":"Aqua","is_user":false,"mes":"` + long + `","send_date":"June 5, 2024 3:46pm"}`,
	})
	db := openTestDB(t)

	if _, err := IndexAll(context.Background(), db, root, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chat, err := db.GetChatByKey("Aqua/lake")
	if err != nil || chat == nil {
		t.Fatalf("GetChatByKey: %v %v", chat, err)
	}
	if !utf8.ValidString(chat.Summary) || chat.Summary != summary[:199] {
		t.Errorf("summary = %q (%d bytes)", chat.Summary, len(chat.Summary))
	}

	rows, err := db.GetMessages("Aqua/lake")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(rows))
	}
	if !utf8.ValidString(rows[1].Text) || len(rows[1].Text) > maxTextSize {
		t.Errorf("stored text is %d bytes, valid=%v", len(rows[1].Text), utf8.ValidString(rows[1].Text))
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 4, "abcd"},
		{"a森林", 2, "a"},
		{"a森林", 4, "a森"},
		{"森", 2, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
