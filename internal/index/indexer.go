package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Zuo-Peng/tavern-chat/internal/parse"
	"github.com/Zuo-Peng/tavern-chat/internal/scan"
)

const (
	maxTextSize    = 8 * 1024 // 8KB for FTS index
	maxSummarySize = 200
)

type Stats struct {
	Scanned int
	Updated int
	Skipped int
	Pruned  int
	Dropped int // message lines discarded by lenient conversion
	Errors  int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d updated=%d skipped=%d pruned=%d dropped=%d errors=%d",
		s.Scanned, s.Updated, s.Skipped, s.Pruned, s.Dropped, s.Errors)
}

type Options struct {
	Convert parse.Options // OnLineError is replaced per file
	Workers int
	Logger  *slog.Logger
}

type converted struct {
	file    scan.FileInfo
	doc     *parse.ChatDocument
	dropped int
	err     error
}

// IndexAll converts every changed chat under root and writes it to db.
// Files convert in parallel; all writes happen on the calling goroutine.
func IndexAll(ctx context.Context, db *DB, root string, opts Options) (Stats, error) {
	var stats Stats
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	files, err := scan.ScanRoot(root)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	stats.Scanned = len(files)

	// track which files we see, for pruning
	seenKeys := make(map[string]struct{}, len(files))
	var todo []scan.FileInfo
	for _, fi := range files {
		seenKeys[fi.Key()] = struct{}{}
		needs, err := needsUpdate(db, fi.Key(), fi.Mtime, fi.Size)
		if err != nil {
			stats.Errors++
			continue
		}
		if !needs {
			stats.Skipped++
			continue
		}
		todo = append(todo, fi)
	}

	results := make([]converted, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, fi := range todo {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = convertOne(fi, opts.Convert)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for _, r := range results {
		if r.err != nil {
			stats.Errors++
			logger.Warn("convert failed", "file", r.file.Path, "error", r.err)
			continue
		}
		if err := indexChat(db, r); err != nil {
			stats.Errors++
			logger.Warn("index failed", "file", r.file.Path, "error", err)
			continue
		}
		stats.Updated++
		stats.Dropped += r.dropped
		if r.dropped > 0 {
			logger.Info("dropped malformed messages", "chat", r.file.Key(), "count", r.dropped)
		}
	}

	// prune chats whose files no longer exist
	pruned, err := pruneChats(db, seenKeys)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	stats.Pruned = pruned

	return stats, nil
}

func convertOne(fi scan.FileInfo, opts parse.Options) converted {
	r := converted{file: fi}
	opts.OnLineError = func(*parse.LineError) { r.dropped++ }
	r.doc, r.err = parse.ConvertFile(fi.Path, opts)
	return r
}

func needsUpdate(db *DB, chatKey string, mtime, size int64) (bool, error) {
	info, err := db.GetChatInfo(chatKey)
	if err != nil {
		return false, err
	}
	if info == nil {
		return true, nil // new chat
	}
	return info.Mtime != mtime || info.Size != size, nil
}

func indexChat(db *DB, r converted) error {
	doc := r.doc
	key := r.file.Key()

	// delete old data first
	if err := db.DeleteChat(key); err != nil {
		return err
	}

	tx, err := db.Raw().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	first, last := doc.Span()
	created := doc.Header.CreationDate.Or(first)

	_, err = tx.Exec(
		`INSERT INTO chats (chat_key, character, file_path, user_name, character_name, created_at, updated_at,
		                    line_count, message_count, dropped, summary, mtime, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key,
		r.file.Character,
		r.file.Path,
		doc.Header.UserName,
		doc.Header.CharacterName,
		created.Format(timeFormat),
		last.Format(timeFormat),
		doc.Header.LineCount,
		len(doc.Messages),
		r.dropped,
		summarize(doc),
		r.file.Mtime,
		r.file.Size,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO messages (chat_key, file_line, source_line, name, role, send_date, api, model,
		                       token_count, swipe_id, swipe_count, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range doc.Messages {
		text := truncate(m.ActiveText(), maxTextSize)
		_, err := stmt.Exec(
			key,
			m.FileLine,
			m.SourceLine,
			m.Name,
			m.Role(),
			m.Metadata.SendDate.Format(timeFormat),
			m.Metadata.API.Or(""),
			m.Metadata.Model.Or(""),
			m.Metadata.TokenCount.Or(0),
			m.SwipeID.Or(-1),
			len(m.Swipes),
			text,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// summarize takes the first user message, or the first message.
func summarize(doc *parse.ChatDocument) string {
	s := doc.Messages[0].Message
	for _, m := range doc.Messages {
		if m.IsUser && strings.TrimSpace(m.Message) != "" {
			s = m.Message
			break
		}
	}
	s = truncate(s, maxSummarySize)
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func pruneChats(db *DB, seenKeys map[string]struct{}) (int, error) {
	allKeys, err := db.AllChatKeys()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for key := range allKeys {
		if _, ok := seenKeys[key]; !ok {
			if err := db.DeleteChat(key); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}
