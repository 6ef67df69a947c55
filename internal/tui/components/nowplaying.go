package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/tui/styles"
)

// NowPlaying displays the current track and transport state.
type NowPlaying struct{}

// NewNowPlaying creates a new NowPlaying component
func NewNowPlaying() *NowPlaying {
	return &NowPlaying{}
}

// Render renders the now playing panel
func (n *NowPlaying) Render(st *styles.Styles, state *core.PlaybackState, width, height int, focused bool) string {
	title := st.PanelTitle("Now Playing", focused)

	var content string
	if !state.HasTrack() {
		content = st.Muted.Render("Nothing playing. Press / to search.")
	} else {
		content = n.renderTrack(st, state, width-4)
	}

	return st.Panel(focused).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", content))
}

func (n *NowPlaying) renderTrack(st *styles.Styles, state *core.PlaybackState, width int) string {
	track := state.Track

	icon := st.StatusIcon(state.IsPlaying)
	title := st.Title.Width(max(width-4, 1)).Render(Truncate(track.Title, width-4))

	progressWidth := max(width-14, 10)
	progress := fmt.Sprintf("%s %s %s",
		FormatDuration(state.Position),
		st.ProgressBar(state.ProgressPercent(), progressWidth),
		FormatDuration(state.Duration))

	lines := []string{
		icon + " " + title,
		"  " + st.Subtitle.Render(track.Artist),
		"  " + st.Dim.Render(track.Album),
		"",
		progress,
		"",
		n.renderModes(st, state),
		styles.Swatch(state.Ambient.Hex()) + " " + st.Dim.Render(state.Ambient.String()),
	}
	if state.Error != "" {
		lines = append(lines, st.Error.Render("⚠ "+Truncate(state.Error, width-2)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (n *NowPlaying) renderModes(st *styles.Styles, state *core.PlaybackState) string {
	toggle := func(label string, on bool) string {
		if on {
			return st.Highlight.Render(label)
		}
		return st.Dim.Render(label)
	}

	repeat := "🔁"
	if state.Repeat == core.RepeatOne {
		repeat = "🔂"
	}

	return fmt.Sprintf("%s  %s  %s %d%%",
		toggle("🔀", state.Shuffle),
		toggle(repeat, state.Repeat != core.RepeatOff),
		st.Muted.Render("🔊"),
		state.VolumePercent())
}

// FormatDuration renders d as m:ss.
func FormatDuration(d time.Duration) string {
	d = max(d, 0).Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
