package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/tui/styles"
)

// Queue displays the playback queue in stored order.
type Queue struct {
	offset   int
	selected int
}

// NewQueue creates a new Queue component
func NewQueue() *Queue {
	return &Queue{}
}

// SelectNext moves the cursor down.
func (q *Queue) SelectNext(n int) {
	if q.selected < n-1 {
		q.selected++
	}
}

// SelectPrev moves the cursor up.
func (q *Queue) SelectPrev() {
	if q.selected > 0 {
		q.selected--
	}
}

// Selected returns the selected index
func (q *Queue) Selected() int {
	return q.selected
}

// Render renders the queue panel
func (q *Queue) Render(st *styles.Styles, tracks []core.Track, current *core.Track, width, height int, focused bool) string {
	title := st.PanelTitle(fmt.Sprintf("Queue (%d)", len(tracks)), focused)

	var content string
	if len(tracks) == 0 {
		content = st.Muted.Render("Queue is empty")
	} else {
		content = q.renderQueue(st, tracks, current, width-4, height-4, focused)
	}

	return st.Panel(focused).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", content))
}

func (q *Queue) renderQueue(st *styles.Styles, tracks []core.Track, current *core.Track, width, maxLines int, focused bool) string {
	q.selected = min(q.selected, len(tracks)-1)
	playing := -1
	if _, i, ok := lo.FindIndexOf(tracks, func(t core.Track) bool { return t.SameAs(current) }); ok {
		playing = i
	}

	visible := max(maxLines-1, 1)
	// Keep the cursor on screen.
	if q.selected < q.offset {
		q.offset = q.selected
	}
	if q.selected >= q.offset+visible {
		q.offset = q.selected - visible + 1
	}
	end := min(q.offset+visible, len(tracks))

	lines := make([]string, 0, end-q.offset+1)
	for i := q.offset; i < end; i++ {
		t := tracks[i]
		num := fmt.Sprintf("%2d.", i+1)
		label := Truncate(t.Title+" — "+t.Artist, width-6)

		var line string
		if i == playing {
			line = st.Playing.Render(fmt.Sprintf("%s ▶ %s", num, label))
		} else {
			line = fmt.Sprintf("%s   %s", st.Dim.Render(num), label)
		}
		if focused && i == q.selected {
			line = st.Selected.Render(line)
		}
		lines = append(lines, line)
	}

	if end < len(tracks) {
		lines = append(lines, st.Dim.Render(fmt.Sprintf("    ... and %d more", len(tracks)-end)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
