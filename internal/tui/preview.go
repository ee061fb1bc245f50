package tui

import (
	"github.com/Zuo-Peng/tavern-chat/internal/index"
	"github.com/Zuo-Peng/tavern-chat/internal/render"
	"github.com/Zuo-Peng/tavern-chat/internal/search"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	chatKey  string
	fileLine int
	content  string
	hitLine  int
	err      error
}

// loadPreviewCmd returns a tea.Cmd that renders the chat preview async.
func loadPreviewCmd(db *index.DB, r search.Result, query string, width int) tea.Cmd {
	return func() tea.Msg {
		content, hitLine, err := render.RenderIndexed(db, r.ChatKey, render.Options{
			HitLine: r.FileLine,
			Context: -1,
			Width:   width,
			Query:   query,
		})
		return previewRenderedMsg{
			chatKey:  r.ChatKey,
			fileLine: r.FileLine,
			content:  content,
			hitLine:  hitLine,
			err:      err,
		}
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
