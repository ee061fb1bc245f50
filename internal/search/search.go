package search

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/Zuo-Peng/tavern-chat/internal/index"
)

type Result struct {
	ChatKey   string
	FileLine  int // -1 when the result is a whole chat
	UpdatedAt string
	Character string
	FilePath  string
	Name      string
	Summary   string
	Snippet   string
	Role      string
	Rank      float64
}

type Options struct {
	Query     string
	Character string // "" = all
	Role      string // "" = all, "user", "char", "system"
	Since     string // "" = no filter, e.g. "2024-01-01"
	Limit     int
}

// containsCJK returns true if the string contains any CJK Unified Ideograph.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	lower := strings.ToLower(text)
	qLower := strings.ToLower(query)
	idx := strings.Index(lower, qLower)
	if idx < 0 || len(lower) != len(text) {
		// no match (or case folding moved byte offsets), return head
		if len([]rune(text)) > contextChars*2 {
			return string([]rune(text)[:contextChars*2]) + "..."
		}
		return text
	}
	runes := []rune(text)
	qRunes := []rune(query)
	runePos := len([]rune(text[:idx]))
	start := max(runePos-contextChars, 0)
	end := min(runePos+len(qRunes)+contextChars, len(runes))
	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	// wrap the matched part with markers
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+len(qRunes)]) + "<<<" +
		string(runes[runePos+len(qRunes):end])
	return prefix + snippet + suffix
}

func Search(db *index.DB, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	// Fetch more results before dedup so we still have enough after
	origLimit := opts.Limit
	opts.Limit = origLimit * 3

	var results []Result
	var err error
	if containsCJK(opts.Query) {
		results, err = searchLike(db, opts)
	} else {
		results, err = searchFTS(db, opts)
	}
	if err != nil {
		return nil, err
	}

	// Deduplicate: keep only the best-ranked result per chat
	seen := make(map[string]bool)
	var deduped []Result
	for _, r := range results {
		if seen[r.ChatKey] {
			continue
		}
		seen[r.ChatKey] = true
		deduped = append(deduped, r)
		if len(deduped) >= origLimit {
			break
		}
	}
	return deduped, nil
}

// ListAll returns one result per chat, newest first. A non-empty query
// filters on summary, character and file path.
func ListAll(db *index.DB, opts Options) ([]Result, error) {
	chats, err := db.ListChats(opts.Character, 0)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	q := strings.ToLower(opts.Query)

	var results []Result
	for _, c := range chats {
		if opts.Since != "" && c.UpdatedAt < opts.Since {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Summary+" "+c.ChatKey), q) {
			continue
		}
		results = append(results, Result{
			ChatKey:   c.ChatKey,
			FileLine:  -1,
			UpdatedAt: c.UpdatedAt,
			Character: c.Character,
			FilePath:  c.FilePath,
			Name:      c.CharacterName,
			Summary:   c.Summary,
			Snippet:   fmt.Sprintf("%d messages with %s", c.MessageCount, c.UserName),
		})
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}
	return results, nil
}

func filters(opts Options) ([]string, []any) {
	var conditions []string
	var args []any

	if opts.Character != "" {
		conditions = append(conditions, "c.character = ?")
		args = append(args, opts.Character)
	}
	if opts.Role != "" {
		conditions = append(conditions, "m.role = ?")
		args = append(args, opts.Role)
	}
	if opts.Since != "" {
		conditions = append(conditions, "c.updated_at >= ?")
		args = append(args, opts.Since)
	}
	return conditions, args
}

func searchFTS(db *index.DB, opts Options) ([]Result, error) {
	conditions := []string{"messages_fts MATCH ?"}
	args := []any{opts.Query}
	fc, fa := filters(opts)
	conditions = append(conditions, fc...)
	args = append(args, fa...)

	query := fmt.Sprintf(`
		SELECT
			m.chat_key,
			m.file_line,
			c.updated_at,
			c.character,
			c.file_path,
			m.name,
			c.summary,
			snippet(messages_fts, 0, '>>>','<<<', '...', 40) as snip,
			m.role,
			bm25(messages_fts, 1.0) as rank
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.rowid
		JOIN chats c ON m.chat_key = c.chat_key
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func searchLike(db *index.DB, opts Options) ([]Result, error) {
	// LIKE match for CJK substring search
	conditions := []string{"m.text LIKE ?"}
	args := []any{"%" + opts.Query + "%"}
	fc, fa := filters(opts)
	conditions = append(conditions, fc...)
	args = append(args, fa...)

	query := fmt.Sprintf(`
		SELECT
			m.chat_key,
			m.file_line,
			c.updated_at,
			c.character,
			c.file_path,
			m.name,
			c.summary,
			m.text,
			m.role
		FROM messages m
		JOIN chats c ON m.chat_key = c.chat_key
		WHERE %s
		ORDER BY c.updated_at DESC
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var fullText string
		if err := rows.Scan(
			&r.ChatKey, &r.FileLine, &r.UpdatedAt,
			&r.Character, &r.FilePath, &r.Name, &r.Summary,
			&fullText, &r.Role,
		); err != nil {
			return nil, err
		}
		r.Snippet = makeSnippet(fullText, opts.Query, 30)
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.ChatKey, &r.FileLine, &r.UpdatedAt,
			&r.Character, &r.FilePath, &r.Name, &r.Summary,
			&r.Snippet, &r.Role, &r.Rank,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
