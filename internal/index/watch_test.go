package index

import (
	"context"
	"testing"
	"time"
)

func TestWatch_ReindexesOnChange(t *testing.T) {
	root := t.TempDir()
	writeChat(t, root, "Seraphina", "first", chatLines())
	db := openTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan Stats, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, db, root, Options{}, func(s Stats, err error) {
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			select {
			case runs <- s:
			default:
			}
		})
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	writeChat(t, root, "Seraphina", "second", chatLines())

	select {
	case s := <-runs:
		if s.Updated < 1 {
			t.Errorf("stats = %s", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reindex after file change")
	}

	if c, _ := db.GetChatByKey("Seraphina/second"); c == nil {
		t.Error("new chat not indexed")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWatch_MissingRoot(t *testing.T) {
	db := openTestDB(t)
	err := Watch(context.Background(), db, t.TempDir()+"/missing", Options{}, nil)
	if err == nil {
		t.Error("expected error for missing root")
	}
}
