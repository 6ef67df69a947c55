package wizard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/tui/components"
	"github.com/tessro/vibe/internal/tui/styles"
)

// PickModel lets the user choose tracks from search results. Space marks
// tracks; enter confirms the marked tracks, or the one under the cursor
// when nothing is marked.
type PickModel struct {
	styles   *styles.Styles
	title    string
	tracks   []core.Track
	cursor   int
	marked   map[int]bool
	chosen   []core.Track
	canceled bool
	width    int
	height   int
}

// NewPickModel creates a picker over tracks.
func NewPickModel(st *styles.Styles, title string, tracks []core.Track) PickModel {
	return PickModel{
		styles: st,
		title:  title,
		tracks: tracks,
		marked: make(map[int]bool),
		width:  80,
		height: 20,
	}
}

func (m PickModel) Init() tea.Cmd {
	return nil
}

func (m PickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.canceled = true
			return m, tea.Quit

		case "enter":
			if len(m.tracks) == 0 {
				return m, nil
			}
			m.chosen = m.selection()
			return m, tea.Quit

		case " ", "x":
			if len(m.tracks) > 0 {
				m.marked[m.cursor] = !m.marked[m.cursor]
			}

		case "a":
			all := len(lo.PickBy(m.marked, func(_ int, v bool) bool { return v })) == len(m.tracks)
			m.marked = make(map[int]bool)
			if !all {
				for i := range m.tracks {
					m.marked[i] = true
				}
			}

		case "up", "k", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j", "ctrl+n":
			if m.cursor < len(m.tracks)-1 {
				m.cursor++
			}

		case "home", "g":
			m.cursor = 0

		case "end", "G":
			m.cursor = max(len(m.tracks)-1, 0)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// selection returns the marked tracks in result order.
func (m PickModel) selection() []core.Track {
	picked := lo.Filter(m.tracks, func(_ core.Track, i int) bool { return m.marked[i] })
	if len(picked) == 0 {
		return []core.Track{m.tracks[m.cursor]}
	}
	return picked
}

func (m PickModel) View() string {
	st := m.styles
	var b strings.Builder

	b.WriteString(st.Title.Render("♪ " + m.title))
	b.WriteString("\n\n")

	if len(m.tracks) == 0 {
		b.WriteString(st.Muted.Render("No results"))
		b.WriteString("\n")
	}

	// Keep the cursor on screen.
	visible := max(m.height-6, 1)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.tracks))

	for i := start; i < end; i++ {
		t := m.tracks[i]
		mark := "○"
		if m.marked[i] {
			mark = st.Highlight.Render("●")
		}
		line := fmt.Sprintf("%s %s %s",
			mark,
			components.Truncate(t.Title+" - "+t.Artist, m.width-16),
			st.Dim.Render(components.FormatDuration(t.Duration)))

		if i == m.cursor {
			b.WriteString(st.Selected.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(st.Muted.Render("↑/↓ navigate • space mark • a all • enter confirm • esc cancel"))
	return b.String()
}

// Chosen returns the confirmed tracks, or nil if the picker was cancelled.
func (m PickModel) Chosen() []core.Track {
	if m.canceled {
		return nil
	}
	return m.chosen
}

// PickTracks runs the picker and returns the chosen tracks. It returns nil
// without error when the user cancels.
func PickTracks(theme, title string, tracks []core.Track) ([]core.Track, error) {
	model := NewPickModel(styles.New(theme), title, tracks)
	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(PickModel).Chosen(), nil
}
