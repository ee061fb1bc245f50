package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Zuo-Peng/tavern-chat/internal/index"
	"github.com/Zuo-Peng/tavern-chat/internal/parse"
	"github.com/mattn/go-runewidth"
)

const (
	colorReset   = "\033[0m"
	colorUser    = "\033[1;34m" // bold blue
	colorChar    = "\033[1;32m" // bold green
	colorSystem  = "\033[2;35m" // dim magenta
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

const dateLayout = "2006-01-02 15:04"

type Options struct {
	HitLine int    // FileLine of the hit message, -1 for none
	Context int    // messages before/after hit to show
	Width   int    // wrap width (0 = no wrap)
	Query   string // search query for keyword highlighting
	Swipes  bool   // show alternative swipes below each message
}

// Message is the rendered view of one chat message, from either a
// converted document or the index.
type Message struct {
	FileLine   int
	Name       string
	Role       string
	Date       string
	Model      string
	Text       string
	Swipes     []string
	SwipeID    int
	SwipeCount int
}

func fromRecord(m *parse.MessageRecord) Message {
	var model string
	if m.Metadata.Generated() {
		model = m.Metadata.Model.Or(m.Metadata.API.Or(""))
	}
	return Message{
		FileLine:   m.FileLine,
		Name:       m.Name,
		Role:       m.Role(),
		Date:       m.Metadata.SendDate.Format(dateLayout),
		Model:      model,
		Text:       m.ActiveText(),
		Swipes:     m.Swipes,
		SwipeID:    m.SwipeID.Or(-1),
		SwipeCount: len(m.Swipes),
	}
}

func fromRow(r index.MessageRow) Message {
	date := r.SendDate
	if len(date) >= len(dateLayout) {
		date = strings.Replace(date[:len(dateLayout)], "T", " ", 1)
	}
	return Message{
		FileLine:   r.FileLine,
		Name:       r.Name,
		Role:       r.Role,
		Date:       date,
		Model:      r.Model,
		Text:       r.Text,
		SwipeID:    r.SwipeID,
		SwipeCount: r.SwipeCount,
	}
}

// fts5Operators are FTS5 operators that should not be highlighted as keywords.
var fts5Operators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
	"and": true, "or": true, "not": true, "near": true,
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	var terms []string
	for _, t := range strings.Fields(query) {
		t = strings.Trim(t, `"*()`)
		if t != "" && !fts5Operators[t] {
			terms = append(terms, t)
		}
	}
	for _, term := range terms {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			rest := strings.ToLower(text[i:])
			if len(rest) != len(text[i:]) {
				break // folding changed byte lengths, offsets would be wrong
			}
			idx := strings.Index(rest, lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			replacement := colorBoldRed + text[pos:pos+len(term)] + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

func normalize(opts Options) Options {
	if opts.Context == 0 {
		opts.Context = 10
	}
	if opts.Context < 0 {
		opts.Context = 1000000 // no limit
	}
	return opts
}

// RenderDocument renders a converted chat and returns the content and the
// 0-based line number of the hit message header (-1 if no hit).
func RenderDocument(doc *parse.ChatDocument, opts Options) (string, int) {
	opts = normalize(opts)

	hitPos := -1
	for i := range doc.Messages {
		if doc.Messages[i].FileLine == opts.HitLine {
			hitPos = i
			break
		}
	}
	start, end := 0, len(doc.Messages)
	if hitPos >= 0 {
		start = max(hitPos-opts.Context, 0)
		end = min(hitPos+opts.Context+1, len(doc.Messages))
	}

	msgs := make([]Message, 0, end-start)
	for i := start; i < end; i++ {
		msgs = append(msgs, fromRecord(&doc.Messages[i]))
	}
	title := fmt.Sprintf("%s & %s", doc.Header.UserName, doc.Header.CharacterName)
	if d, ok := doc.Header.CreationDate.Get(); ok {
		title += " " + d.Format(dateLayout)
	}
	hitIdx := -1
	if hitPos >= 0 {
		hitIdx = hitPos - start
	}
	return render(title, msgs, hitIdx, start, len(doc.Messages), opts)
}

// RenderIndexed renders an indexed chat from the database.
func RenderIndexed(db *index.DB, chatKey string, opts Options) (string, int, error) {
	opts = normalize(opts)

	chat, err := db.GetChatByKey(chatKey)
	if err != nil {
		return "", -1, fmt.Errorf("get chat: %w", err)
	}
	if chat == nil {
		return "", -1, fmt.Errorf("chat not found: %s", chatKey)
	}

	rows, hitIdx, startPos, totalCount, err := db.GetMessagesWindow(chatKey, opts.HitLine, opts.Context)
	if err != nil {
		return "", -1, fmt.Errorf("get messages: %w", err)
	}
	msgs := make([]Message, len(rows))
	for i, r := range rows {
		msgs[i] = fromRow(r)
	}
	title := fmt.Sprintf("%s [%s & %s] %s", chatKey, chat.UserName, chat.CharacterName, chat.CreatedAt)
	out, hitLine := render(title, msgs, hitIdx, startPos, totalCount, opts)
	return out, hitLine, nil
}

func render(title string, msgs []Message, hitIdx, startPos, totalCount int, opts Options) (string, int) {
	if totalCount == 0 {
		return "(empty chat)", -1
	}

	skipAfter := totalCount - startPos - len(msgs)

	var b strings.Builder
	hitLine := -1
	lineCount := 0
	separator := colorDim + "--------------------------------------------------" + colorReset

	// helper to track line count; wraps long lines if Width is set
	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	writeLine(fmt.Sprintf("%s--- %s ---%s", colorDim, title, colorReset))

	if startPos > 0 {
		writeLine(fmt.Sprintf("%s... (%d messages before) ...%s", colorDim, startPos, colorReset))
	}

	for i, m := range msgs {
		isHit := i == hitIdx

		if i > 0 {
			writeLine(separator)
		}
		if isHit {
			hitLine = lineCount
		}

		var roleColor string
		switch m.Role {
		case "user":
			roleColor = colorUser
		case "char":
			roleColor = colorChar
		default:
			roleColor = colorSystem
		}

		meta := m.Date
		if m.Model != "" {
			meta += " " + m.Model
		}
		if m.SwipeCount > 1 {
			meta += fmt.Sprintf(" swipe %d/%d", m.SwipeID+1, m.SwipeCount)
		}

		if isHit {
			writeLine(fmt.Sprintf("%s>> %s > %s <<%s", colorHit, m.Name, meta, colorReset))
		} else {
			writeLine(fmt.Sprintf("%s%s >%s %s%s%s", roleColor, m.Name, colorReset, colorDim, meta, colorReset))
		}

		text := m.Text
		if m.Role == "system" {
			text = colorDim + text + colorReset
		}
		for _, tl := range strings.Split(indentLines(highlightKeywords(text, opts.Query), "  "), "\n") {
			writeLine(tl)
		}

		if opts.Swipes {
			for si, s := range m.Swipes {
				marker := " "
				if si == m.SwipeID {
					marker = "*"
				}
				writeLine(fmt.Sprintf("%s  %s[%d]%s", colorDim, marker, si+1, colorReset))
				for _, tl := range strings.Split(indentLines(highlightKeywords(s, opts.Query), "      "), "\n") {
					writeLine(tl)
				}
			}
		}
		writeLine("") // blank line after message
	}

	if skipAfter > 0 {
		writeLine(fmt.Sprintf("%s... (%d messages after) ...%s", colorDim, skipAfter, colorReset))
	}

	return b.String(), hitLine
}
