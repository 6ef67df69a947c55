package components

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/tui/styles"
)

// History displays recently played tracks, newest first.
type History struct {
	now func() time.Time
}

// NewHistory creates a new History component
func NewHistory() *History {
	return &History{now: time.Now}
}

// Render renders the history panel
func (h *History) Render(st *styles.Styles, entries []core.HistoryEntry, width, height int, focused bool) string {
	title := st.PanelTitle("History", focused)

	var content string
	if len(entries) == 0 {
		content = st.Muted.Render("No history yet")
	} else {
		content = h.renderHistory(st, entries, width-4, height-4)
	}

	return st.Panel(focused).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", content))
}

func (h *History) renderHistory(st *styles.Styles, entries []core.HistoryEntry, width, maxLines int) string {
	lines := make([]string, 0, min(len(entries), maxLines))
	now := h.now()

	for i, e := range entries {
		if i >= maxLines {
			break
		}

		ago := humanize.RelTime(e.PlayedAt, now, "ago", "from now")
		info := Truncate(e.Track.Title+" — "+e.Track.Artist, width-lipgloss.Width(ago)-3)
		pad := max(width-2-lipgloss.Width(info)-lipgloss.Width(ago), 1)

		lines = append(lines, st.Dim.Render("✓")+" "+info+lipgloss.NewStyle().Width(pad).Render("")+st.Dim.Render(ago))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
