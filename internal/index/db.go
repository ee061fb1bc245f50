package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS chats (
    chat_key       TEXT PRIMARY KEY,
    character      TEXT NOT NULL,
    file_path      TEXT NOT NULL,
    user_name      TEXT NOT NULL DEFAULT '',
    character_name TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL DEFAULT '',
    updated_at     TEXT NOT NULL DEFAULT '',
    line_count     INTEGER NOT NULL DEFAULT 0,
    message_count  INTEGER NOT NULL DEFAULT 0,
    dropped        INTEGER NOT NULL DEFAULT 0,
    summary        TEXT NOT NULL DEFAULT '',
    mtime          INTEGER NOT NULL DEFAULT 0,
    size           INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    chat_key    TEXT NOT NULL,
    file_line   INTEGER NOT NULL,
    source_line INTEGER NOT NULL DEFAULT 0,
    name        TEXT NOT NULL,
    role        TEXT NOT NULL,
    send_date   TEXT NOT NULL DEFAULT '',
    api         TEXT NOT NULL DEFAULT '',
    model       TEXT NOT NULL DEFAULT '',
    token_count INTEGER NOT NULL DEFAULT 0,
    swipe_id    INTEGER NOT NULL DEFAULT -1,
    swipe_count INTEGER NOT NULL DEFAULT 0,
    text        TEXT NOT NULL,
    PRIMARY KEY (chat_key, file_line)
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    text,
    content=messages,
    content_rowid=rowid,
    tokenize='unicode61'
);

-- triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, text) VALUES('delete', old.rowid, old.text);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, text) VALUES('delete', old.rowid, old.text);
    INSERT INTO messages_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

// timeFormat is how timestamps are stored; wall clock, no zone.
const timeFormat = "2006-01-02T15:04:05"

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db: db}
	d.migrateSchemaVersion()

	return d, nil
}

// schemaVersion should be bumped whenever conversion logic changes
// to force a full re-index.
const schemaVersion = "1"

func (d *DB) migrateSchemaVersion() {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err != nil || ver != schemaVersion {
		// force re-index by resetting all chat mtime/size to 0
		d.db.Exec("UPDATE chats SET mtime = 0, size = 0")
		d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	}
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

type ChatInfo struct {
	Mtime int64
	Size  int64
}

func (d *DB) GetChatInfo(chatKey string) (*ChatInfo, error) {
	var info ChatInfo
	err := d.db.QueryRow(
		"SELECT mtime, size FROM chats WHERE chat_key = ?",
		chatKey,
	).Scan(&info.Mtime, &info.Size)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (d *DB) AllChatKeys() (map[string]struct{}, error) {
	rows, err := d.db.Query("SELECT chat_key FROM chats")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

func (d *DB) DeleteChat(chatKey string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE chat_key = ?", chatKey); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM chats WHERE chat_key = ?", chatKey); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) ChatCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&n)
	return n, err
}

func (d *DB) MessageCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n)
	return n, err
}

// FTSCount is the number of rows in the full-text index.
func (d *DB) FTSCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM messages_fts").Scan(&n)
	return n, err
}

type ChatRow struct {
	ChatKey       string
	Character     string
	FilePath      string
	UserName      string
	CharacterName string
	CreatedAt     string
	UpdatedAt     string
	LineCount     int
	MessageCount  int
	Dropped       int
	Summary       string
}

const chatColumns = "chat_key, character, file_path, user_name, character_name, created_at, updated_at, line_count, message_count, dropped, summary"

func scanChat(row interface{ Scan(...any) error }) (ChatRow, error) {
	var c ChatRow
	err := row.Scan(&c.ChatKey, &c.Character, &c.FilePath, &c.UserName, &c.CharacterName,
		&c.CreatedAt, &c.UpdatedAt, &c.LineCount, &c.MessageCount, &c.Dropped, &c.Summary)
	return c, err
}

func (d *DB) GetChatByKey(chatKey string) (*ChatRow, error) {
	c, err := scanChat(d.db.QueryRow("SELECT "+chatColumns+" FROM chats WHERE chat_key = ?", chatKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChats returns chats newest first, optionally for one character.
func (d *DB) ListChats(character string, limit int) ([]ChatRow, error) {
	query := "SELECT " + chatColumns + " FROM chats"
	var args []any
	if character != "" {
		query += " WHERE character = ?"
		args = append(args, character)
	}
	query += " ORDER BY updated_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []ChatRow
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

type MessageRow struct {
	ChatKey    string
	FileLine   int
	SourceLine int
	Name       string
	Role       string
	SendDate   string
	API        string
	Model      string
	TokenCount int
	SwipeID    int
	SwipeCount int
	Text       string
}

const messageColumns = "chat_key, file_line, source_line, name, role, send_date, api, model, token_count, swipe_id, swipe_count, text"

func scanMessages(rows *sql.Rows) ([]MessageRow, error) {
	var msgs []MessageRow
	for rows.Next() {
		var m MessageRow
		if err := rows.Scan(&m.ChatKey, &m.FileLine, &m.SourceLine, &m.Name, &m.Role, &m.SendDate,
			&m.API, &m.Model, &m.TokenCount, &m.SwipeID, &m.SwipeCount, &m.Text); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (d *DB) GetMessages(chatKey string) ([]MessageRow, error) {
	rows, err := d.db.Query(
		"SELECT "+messageColumns+" FROM messages WHERE chat_key = ? ORDER BY file_line",
		chatKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// GetMessagesWindow returns a window of messages around the hit file line.
// startPos is the number of messages before the returned window and
// totalCount the number of messages in the chat.
func (d *DB) GetMessagesWindow(chatKey string, hitLine, context int) (msgs []MessageRow, hitIdx int, startPos int, totalCount int, err error) {
	err = d.db.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE chat_key = ?", chatKey,
	).Scan(&totalCount)
	if err != nil {
		return nil, -1, 0, 0, err
	}

	// 0-based position of the hit message
	hitPos := -1
	if hitLine >= 0 {
		err = d.db.QueryRow(`
			SELECT pos FROM (
				SELECT file_line, ROW_NUMBER() OVER (ORDER BY file_line) - 1 AS pos
				FROM messages WHERE chat_key = ?
			) WHERE file_line = ?`,
			chatKey, hitLine,
		).Scan(&hitPos)
		if err == sql.ErrNoRows {
			hitPos = -1
			err = nil
		} else if err != nil {
			return nil, -1, 0, 0, err
		}
	}

	startPos = 0
	limit := totalCount
	if hitPos >= 0 {
		startPos = max(hitPos-context, 0)
		endPos := min(hitPos+context+1, totalCount)
		limit = endPos - startPos
	}

	rows, err := d.db.Query(
		"SELECT "+messageColumns+" FROM messages WHERE chat_key = ? ORDER BY file_line LIMIT ? OFFSET ?",
		chatKey, limit, startPos,
	)
	if err != nil {
		return nil, -1, 0, 0, err
	}
	defer rows.Close()

	msgs, err = scanMessages(rows)
	if err != nil {
		return nil, -1, 0, 0, err
	}
	hitIdx = -1
	for i, m := range msgs {
		if m.FileLine == hitLine {
			hitIdx = i
			break
		}
	}
	return msgs, hitIdx, startPos, totalCount, nil
}
