// Package tui implements the interactive dashboard: now playing tinted with
// the ambient color, the queue, recent history and a search overlay.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tessro/vibe/internal/core"
	"github.com/tessro/vibe/internal/tui/components"
	"github.com/tessro/vibe/internal/tui/styles"
)

// Panel represents which panel is focused
type Panel int

const (
	PanelNowPlaying Panel = iota
	PanelQueue
	PanelHistory
	panelCount
)

const (
	searchDebounce = 300 * time.Millisecond
	volumeStep     = 0.05
	seekStep       = 5 * time.Second
	commandTimeout = 5 * time.Second
	errorTTL       = 5 * time.Second
	historyLimit   = 20
)

// HistorySource lists recent plays.
type HistorySource interface {
	Recent(ctx context.Context, listener string, limit int) ([]core.HistoryEntry, error)
}

// Options configures the dashboard. Catalog and History are optional.
type Options struct {
	Player      core.Player
	Catalog     core.Catalog
	History     HistorySource
	Listener    string
	Theme       string
	Refresh     time.Duration
	SearchLimit int
}

// Model is the main TUI model
type Model struct {
	opts   Options
	styles *styles.Styles
	width  int
	height int

	focusedPanel Panel

	states <-chan core.PlaybackState
	stop   func()

	state   *core.PlaybackState
	history []core.HistoryEntry

	nowPlaying  *components.NowPlaying
	queueView   *components.Queue
	historyView *components.History

	showHelp bool

	showSearch    bool
	searchInput   textinput.Model
	searchResults []core.Track
	searchCursor  int
	searching     bool
	lastQuery     string
	searchErr     error

	lastError   error
	errorExpiry time.Time

	quitting bool
}

// NewModel creates a new TUI model
func NewModel(opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = 500 * time.Millisecond
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 20
	}

	ti := textinput.New()
	ti.Placeholder = "Search tracks..."
	ti.CharLimit = 100
	ti.Width = 50

	states, stop := opts.Player.Subscribe()

	return Model{
		opts:         opts,
		styles:       styles.New(opts.Theme),
		focusedPanel: PanelNowPlaying,
		states:       states,
		stop:         stop,
		nowPlaying:   components.NewNowPlaying(),
		queueView:    components.NewQueue(),
		historyView:  components.NewHistory(),
		searchInput:  ti,
	}
}

// Messages
type (
	stateMsg        core.PlaybackState
	playerClosedMsg struct{}
	tickMsg         time.Time
	historyMsg      []core.HistoryEntry
	errMsg          struct{ err error }
)

type searchDebounceMsg struct{ query string }
type searchResultsMsg struct {
	query   string
	results []core.Track
	err     error
}

func (m Model) waitForState() tea.Cmd {
	ch := m.states
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return playerClosedMsg{}
		}
		return stateMsg(s)
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchHistory() tea.Cmd {
	if m.opts.History == nil {
		return nil
	}
	src, listener := m.opts.History, m.opts.Listener
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		entries, err := src.Recent(ctx, listener, historyLimit)
		if err != nil {
			return errMsg{err}
		}
		return historyMsg(entries)
	}
}

func (m Model) doSearch(query string) tea.Cmd {
	cat, limit := m.opts.Catalog, m.opts.SearchLimit
	return func() tea.Msg {
		if query == "" {
			return searchResultsMsg{query: query}
		}
		if cat == nil {
			return searchResultsMsg{query: query, err: fmt.Errorf("search is not available")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		tracks, err := cat.Search(ctx, query, limit)
		return searchResultsMsg{query: query, results: tracks, err: err}
	}
}

// run issues a player command off the UI goroutine. State changes arrive
// through the subscription, so only failures produce a message.
func (m Model) run(fn func(ctx context.Context, p core.Player) error) tea.Cmd {
	p := m.opts.Player
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := fn(ctx, p); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForState(), m.tick(), m.fetchHistory())
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateMsg:
		s := core.PlaybackState(msg)
		changed := m.state == nil || !m.state.Track.SameAs(s.Track)
		m.state = &s
		m.styles = m.styles.WithAccent(s.Ambient.Hex())
		if fetch := m.fetchHistory(); changed && fetch != nil {
			// Give the recorder a moment before re-reading history.
			return m, tea.Batch(m.waitForState(), tea.Tick(time.Second, func(time.Time) tea.Msg {
				return fetch()
			}))
		}
		return m, m.waitForState()

	case playerClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case tickMsg:
		if !m.errorExpiry.IsZero() && time.Time(msg).After(m.errorExpiry) {
			m.lastError = nil
			m.errorExpiry = time.Time{}
		}
		return m, m.tick()

	case historyMsg:
		m.history = msg
		return m, nil

	case errMsg:
		m.lastError = msg.err
		m.errorExpiry = time.Now().Add(errorTTL)
		return m, nil

	case searchDebounceMsg:
		if msg.query == m.searchInput.Value() && msg.query != m.lastQuery {
			m.lastQuery = msg.query
			m.searching = true
			return m, m.doSearch(msg.query)
		}
		return m, nil

	case searchResultsMsg:
		if msg.query != m.lastQuery {
			return m, nil
		}
		m.searching = false
		m.searchResults = msg.results
		m.searchErr = msg.err
		m.searchCursor = 0
		return m, nil
	}

	if m.showSearch {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.stop != nil {
		m.stop()
	}
	return m, tea.Quit
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	if m.showSearch {
		return m.handleSearchKeyPress(msg)
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "?":
		m.showHelp = true
		return m, nil
	case "/":
		m.showSearch = true
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		m.searchResults = nil
		m.searchCursor = 0
		m.lastQuery = ""
		m.searchErr = nil
		return m, textinput.Blink
	case "tab":
		m.focusedPanel = (m.focusedPanel + 1) % panelCount
		return m, nil
	case "shift+tab":
		m.focusedPanel = (m.focusedPanel + panelCount - 1) % panelCount
		return m, nil
	}

	switch msg.String() {
	case " ":
		return m, m.run(func(ctx context.Context, p core.Player) error { return p.TogglePlay(ctx) })
	case "n":
		return m, m.run(func(ctx context.Context, p core.Player) error { return p.Next(ctx) })
	case "p":
		return m, m.run(func(ctx context.Context, p core.Player) error { return p.Previous(ctx) })
	case "s":
		return m, m.run(func(ctx context.Context, p core.Player) error { return p.ToggleShuffle(ctx) })
	case "r":
		return m, m.run(func(ctx context.Context, p core.Player) error { return p.ToggleRepeat(ctx) })
	case "+", "=":
		return m, m.volume(volumeStep)
	case "-":
		return m, m.volume(-volumeStep)
	case "right", "l":
		return m, m.seek(seekStep)
	case "left", "h":
		return m, m.seek(-seekStep)
	}

	if m.focusedPanel == PanelQueue && m.state != nil {
		switch msg.String() {
		case "j", "down":
			m.queueView.SelectNext(len(m.state.Queue))
		case "k", "up":
			m.queueView.SelectPrev()
		case "enter":
			if i := m.queueView.Selected(); i >= 0 && i < len(m.state.Queue) {
				t := m.state.Queue[i]
				return m, m.run(func(ctx context.Context, p core.Player) error { return p.PlayTrack(ctx, t) })
			}
		}
	}

	return m, nil
}

func (m Model) volume(delta float64) tea.Cmd {
	if m.state == nil {
		return nil
	}
	level := m.state.Volume + delta
	return m.run(func(ctx context.Context, p core.Player) error { return p.SetVolume(ctx, level) })
}

func (m Model) seek(delta time.Duration) tea.Cmd {
	if !m.state.HasTrack() {
		return nil
	}
	pos := m.state.Position + delta
	return m.run(func(ctx context.Context, p core.Player) error { return p.Seek(ctx, pos) })
}

func (m Model) handleSearchKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.showSearch = false
		m.searchInput.Blur()
		return m, nil

	case "enter", "ctrl+q":
		if m.searchCursor >= len(m.searchResults) {
			return m, nil
		}
		t := m.searchResults[m.searchCursor]
		m.showSearch = false
		m.searchInput.Blur()
		if msg.String() == "ctrl+q" {
			return m, m.run(func(ctx context.Context, p core.Player) error { return p.AddToQueue(ctx, t) })
		}
		// Enqueue too so next/previous can find the track again.
		return m, m.run(func(ctx context.Context, p core.Player) error {
			if err := p.AddToQueue(ctx, t); err != nil {
				return err
			}
			return p.PlayTrack(ctx, t)
		})

	case "up", "ctrl+p":
		if m.searchCursor > 0 {
			m.searchCursor--
		}
		return m, nil

	case "down", "ctrl+n":
		if m.searchCursor < len(m.searchResults)-1 {
			m.searchCursor++
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var inputCmd tea.Cmd
	m.searchInput, inputCmd = m.searchInput.Update(msg)
	cmds = append(cmds, inputCmd)

	if q := m.searchInput.Value(); q != m.lastQuery {
		cmds = append(cmds, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
			return searchDebounceMsg{query: q}
		}))
	}

	return m, tea.Batch(cmds...)
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.showSearch {
		return m.renderSearch()
	}

	leftWidth := m.width * 60 / 100
	rightWidth := m.width - leftWidth - 2
	topHeight := m.height * 45 / 100
	bottomHeight := m.height - topHeight - 2

	var (
		queue   []core.Track
		current *core.Track
	)
	if m.state != nil {
		queue, current = m.state.Queue, m.state.Track
	}

	nowPlaying := m.nowPlaying.Render(m.styles, m.state, leftWidth-2, topHeight-2, m.focusedPanel == PanelNowPlaying)
	queueView := m.queueView.Render(m.styles, queue, current, leftWidth-2, bottomHeight-2, m.focusedPanel == PanelQueue)
	historyView := m.historyView.Render(m.styles, m.history, rightWidth-2, m.height-4, m.focusedPanel == PanelHistory)

	leftCol := lipgloss.JoinVertical(lipgloss.Left, nowPlaying, queueView)
	main := lipgloss.JoinHorizontal(lipgloss.Top, leftCol, historyView)

	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m Model) renderStatusBar() string {
	status := m.styles.Dim.Render("q:quit  ?:help  /:search  space:play/pause  n/p:next/prev  ←/→:seek  +/-:volume  s:shuffle  r:repeat")
	if m.lastError != nil {
		status = m.styles.Error.Render("Error: " + m.lastError.Error())
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1).
		Render(status)
}

func (m Model) renderHelp() string {
	title := "vibe - Keyboard Shortcuts"

	help := `
  ` + title + `
  ` + strings.Repeat("═", len(title)) + `

  Global
  ──────
  q, Ctrl+C    Quit
  ?            Toggle help
  /            Search
  Tab          Next panel
  Shift+Tab    Previous panel

  Playback
  ────────
  Space        Play/Pause
  n            Next track
  p            Previous track
  ←/→          Seek 5s
  +/=          Volume up
  -            Volume down
  s            Toggle shuffle
  r            Cycle repeat (off, all, one)

  Queue Panel
  ───────────
  j/↓          Select next
  k/↑          Select previous
  Enter        Play selected

  Search
  ──────
  Enter        Play and enqueue
  Ctrl+q       Enqueue

  Press ? or Esc to close
`

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(m.styles.Border.Render(help))
}

func (m Model) renderSearch() string {
	st := m.styles
	var b strings.Builder

	b.WriteString(st.Highlight.Render("Search"))
	if m.opts.Catalog != nil {
		b.WriteString(st.Dim.Render(" · " + string(m.opts.Catalog.Name())))
	}
	b.WriteString("\n\n")
	b.WriteString(m.searchInput.View())
	b.WriteString("\n\n")

	switch {
	case m.searchErr != nil:
		b.WriteString(st.Error.Render("Error: " + m.searchErr.Error()))
	case m.searching:
		b.WriteString(st.Muted.Render("Searching..."))
	case len(m.searchResults) == 0 && m.lastQuery != "":
		b.WriteString(st.Muted.Render("No playable tracks found"))
	default:
		const maxResults = 10
		for i, t := range m.searchResults {
			if i >= maxResults {
				b.WriteString(st.Muted.Render("  ...and more"))
				break
			}

			line := t.Title + " " + st.Muted.Render(t.Artist)
			if i == m.searchCursor {
				b.WriteString(st.Selected.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(st.Muted.Render("↑/↓:nav  Enter:play  Ctrl+q:queue  Esc:close"))

	content := lipgloss.NewStyle().
		Width(60).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(st.FocusedBorder.Render(content))
}

// Run starts the dashboard and blocks until the user quits or the player
// stops.
func Run(opts Options) error {
	model := NewModel(opts)
	p := tea.NewProgram(model, tea.WithAltScreen())

	_, err := p.Run()
	model.stop()
	return err
}
