package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zuo-Peng/tavern-chat/internal/index"
	"github.com/Zuo-Peng/tavern-chat/internal/search"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const debounceDelay = 200 * time.Millisecond

type tuiMode int

const (
	modeSearch tuiMode = iota
	modeList
)

// roleCycle is the order the role filter steps through.
var roleCycle = []string{"", "user", "char", "system"}

type resultsMsg struct {
	query   string
	role    string
	results []search.Result
	err     error
}

type queryTickMsg struct {
	query string
}

type model struct {
	db         *index.DB
	opts       search.Options
	mode       tuiMode
	query      string
	results    []search.Result
	cursor     int
	listOffset int
	input      textinput.Model
	preview    viewport.Model
	previewKey string // chat and line currently in the preview
	width      int
	height     int
	ready      bool
	quitting   bool
	selected   *search.Result
}

func newModel(db *index.DB, mode tuiMode, query string, opts search.Options) model {
	ti := textinput.New()
	ti.Placeholder = "Search messages..."
	if mode == modeList {
		ti.Placeholder = "Filter chats..."
	}
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256
	ti.SetValue(query)
	ti.Focus()

	return model{
		db:      db,
		opts:    opts,
		mode:    mode,
		query:   query,
		input:   ti,
		preview: viewport.New(0, 0),
	}
}

// Run opens the search picker with query prefilled. Enter copies the
// selected message to the clipboard.
func Run(db *index.DB, query string, opts search.Options) error {
	return run(db, newModel(db, modeSearch, query, opts))
}

// RunList opens the picker over every indexed chat, newest first. Typing
// switches to a message search.
func RunList(db *index.DB, opts search.Options) error {
	return run(db, newModel(db, modeList, "", opts))
}

func run(db *index.DB, m model) error {
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	if r := final.(model).selected; r != nil {
		return copySelection(db, *r)
	}
	return nil
}

// copySelection copies the selected message text, or the chat file path
// when the result is a whole chat. Without a clipboard it prints instead.
func copySelection(db *index.DB, r search.Result) error {
	text, err := selectionText(db, r)
	if err != nil {
		return err
	}
	if err := clipboard.WriteAll(text); err != nil {
		fmt.Println(text)
		return nil
	}
	fmt.Printf("Copied to clipboard: %s@%d\n", r.ChatKey, r.FileLine)
	return nil
}

func selectionText(db *index.DB, r search.Result) (string, error) {
	if r.FileLine < 0 {
		return r.FilePath, nil
	}
	msgs, err := db.GetMessages(r.ChatKey)
	if err != nil {
		return "", fmt.Errorf("get messages: %w", err)
	}
	for _, m := range msgs {
		if m.FileLine == r.FileLine {
			return m.Text, nil
		}
	}
	return "", fmt.Errorf("message %d not found in %s", r.FileLine, r.ChatKey)
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.fetch())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		l := m.layout()
		m.preview = newViewport(l.previewW, l.panelH)
		m.previewKey = ""
		return m, m.loadCurrentPreview()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case queryTickMsg:
		if msg.query != m.query {
			return m, nil
		}
		return m, m.fetch()

	case resultsMsg:
		if msg.query != m.query || msg.role != m.opts.Role {
			return m, nil
		}
		m.results, m.cursor, m.listOffset = msg.results, 0, 0
		m.previewKey = ""
		switch {
		case msg.err != nil:
			m.results = nil
			m.preview.SetContent("Error: " + msg.err.Error())
		case len(m.results) == 0:
			m.preview.SetContent("")
		}
		return m, m.loadCurrentPreview()

	case previewRenderedMsg:
		key := previewCacheKey(msg.chatKey, msg.fileLine)
		if key == m.previewKey || key != m.currentKey() {
			return m, nil
		}
		if msg.err != nil {
			m.preview.SetContent("Preview error: " + msg.err.Error())
		} else {
			m.preview.SetContent(msg.content)
			if msg.hitLine > 0 {
				m.preview.SetYOffset(msg.hitLine)
			} else {
				m.preview.GotoTop()
			}
		}
		m.previewKey = key
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	panelH := m.layout().panelH

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Enter):
		if m.cursor < len(m.results) {
			r := m.results[m.cursor]
			m.selected = &r
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		return m.moveCursor(m.cursor - 1)

	case key.Matches(msg, keys.Down):
		return m.moveCursor(m.cursor + 1)

	case key.Matches(msg, keys.Role):
		m.opts.Role = nextRole(m.opts.Role)
		return m, m.fetch()

	case key.Matches(msg, keys.PreviewUp):
		m.preview.LineUp(panelH / 2)
		return m, nil

	case key.Matches(msg, keys.PreviewDn):
		m.preview.LineDown(panelH / 2)
		return m, nil

	case key.Matches(msg, keys.PageUp):
		m.preview.LineUp(panelH)
		return m, nil

	case key.Matches(msg, keys.PageDown):
		m.preview.LineDown(panelH)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if q := m.input.Value(); q != m.query {
		m.query = q
		cmd = tea.Batch(cmd, tea.Tick(debounceDelay, func(time.Time) tea.Msg {
			return queryTickMsg{query: q}
		}))
	}
	return m, cmd
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.ready || len(m.results) == 0 {
		return m, nil
	}
	region, item := m.hitTest(msg.X, msg.Y)

	switch region {
	case regionList:
		switch {
		case msg.Button == tea.MouseButtonWheelUp:
			m.listOffset = max(m.listOffset-1, 0)
		case msg.Button == tea.MouseButtonWheelDown:
			maxOffset := max(len(m.results)-m.layout().panelH/linesPerItem, 0)
			m.listOffset = min(m.listOffset+1, maxOffset)
		case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			return m.moveCursor(item)
		}
	case regionPreview:
		if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
			var cmd tea.Cmd
			m.preview, cmd = m.preview.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// moveCursor selects result i, if it exists, and loads its preview.
func (m model) moveCursor(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.results) || i == m.cursor {
		return m, nil
	}
	m.cursor = i
	m.adjustListScroll(m.layout().panelH)
	return m, m.loadCurrentPreview()
}

func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}
	l := m.layout()

	list := stylePanelBorder.Width(l.listW).Height(l.panelH).Render(m.renderList(l.listW, l.panelH))

	m.preview.Width, m.preview.Height = l.previewW, l.panelH
	preview := styleActiveBorder.Width(l.previewW).Height(l.panelH).Render(m.preview.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.input.View(),
		lipgloss.JoinHorizontal(lipgloss.Top, list, preview),
		m.statusBar(),
	)
}

// layout holds the panel sizes for the current terminal. The list gets
// 40% of the width and the preview the rest, less borders.
type layout struct {
	listW, previewW, panelH int
}

func (m model) layout() layout {
	l := layout{listW: 40, previewW: 60, panelH: 20}
	if m.width > 0 {
		l.listW = max(m.width*40/100-4, 20)
		l.previewW = max(m.width*60/100-4, 20)
	}
	if m.height > 0 {
		// input row, status bar and two borders
		l.panelH = max(m.height-6, 5)
	}
	return l
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel and, in the list, the
// index of the result under the pointer.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	l := m.layout()
	top := 2 // input row and top border
	if y < top || y >= top+l.panelH {
		return regionNone, -1
	}
	switch {
	case x >= 1 && x <= l.listW:
		return regionList, m.listOffset + (y-top)/linesPerItem
	case x > l.listW+2:
		return regionPreview, -1
	}
	return regionNone, -1
}

func (m model) statusBar() string {
	parts := []string{fmt.Sprintf("%d results", len(m.results))}
	if m.opts.Character != "" {
		parts = append(parts, "character: "+m.opts.Character)
	}
	role := m.opts.Role
	if role == "" {
		role = "any"
	}
	parts = append(parts,
		"role: "+role+" (tab)",
		"up/dn navigate",
		"C-u/C-d preview",
		"Enter copy",
		"Esc quit",
	)
	return styleStatusBar.Render(strings.Join(parts, " | "))
}

// fetch runs the current query. An empty query lists whole chats in list
// mode and shows nothing in search mode.
func (m model) fetch() tea.Cmd {
	db, opts := m.db, m.opts
	opts.Query = m.query
	mode := m.mode
	return func() tea.Msg {
		msg := resultsMsg{query: opts.Query, role: opts.Role}
		switch {
		case opts.Query != "":
			msg.results, msg.err = search.Search(db, opts)
		case mode == modeList:
			msg.results, msg.err = search.ListAll(db, opts)
		}
		return msg
	}
}

func (m model) currentKey() string {
	if m.cursor >= len(m.results) {
		return ""
	}
	r := m.results[m.cursor]
	return previewCacheKey(r.ChatKey, r.FileLine)
}

func (m model) loadCurrentPreview() tea.Cmd {
	key := m.currentKey()
	if key == "" || key == m.previewKey {
		return nil
	}
	return loadPreviewCmd(m.db, m.results[m.cursor], m.query, m.layout().previewW)
}

func previewCacheKey(chatKey string, fileLine int) string {
	return fmt.Sprintf("%s:%d", chatKey, fileLine)
}

func nextRole(role string) string {
	for i, r := range roleCycle {
		if r == role {
			return roleCycle[(i+1)%len(roleCycle)]
		}
	}
	return roleCycle[0]
}
