// Package styles holds the dashboard palette. Colors come from a
// catppuccin flavor; the accent follows the ambient color of the current
// cover.
package styles

import (
	"strings"

	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
)

// Themes lists the accepted theme names.
var Themes = []string{"auto", "latte", "frappe", "macchiato", "mocha"}

// Flavor resolves a theme name. "auto" picks latte on light terminals and
// mocha otherwise.
func Flavor(theme string) catppuccin.Flavor {
	switch theme {
	case "latte":
		return catppuccin.Latte
	case "frappe":
		return catppuccin.Frappe
	case "macchiato":
		return catppuccin.Macchiato
	case "mocha":
		return catppuccin.Mocha
	default:
		if !lipgloss.HasDarkBackground() {
			return catppuccin.Latte
		}
		return catppuccin.Mocha
	}
}

// Styles is the set of styles used by every panel.
type Styles struct {
	flavor catppuccin.Flavor
	accent lipgloss.Color

	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Label     lipgloss.Style
	Highlight lipgloss.Style
	Muted     lipgloss.Style
	Dim       lipgloss.Style
	Playing   lipgloss.Style
	Paused    lipgloss.Style
	Error     lipgloss.Style
	Selected  lipgloss.Style

	Border        lipgloss.Style
	FocusedBorder lipgloss.Style
}

// New builds styles for a theme, accented with the flavor's mauve.
func New(theme string) *Styles {
	f := Flavor(theme)
	return build(f, lipgloss.Color(f.Mauve().Hex))
}

// WithAccent returns a copy of s using hex as the accent. An empty hex
// keeps the current accent.
func (s *Styles) WithAccent(hex string) *Styles {
	if hex == "" || lipgloss.Color(hex) == s.accent {
		return s
	}
	return build(s.flavor, lipgloss.Color(hex))
}

// Accent is the current accent color.
func (s *Styles) Accent() lipgloss.Color {
	return s.accent
}

func build(f catppuccin.Flavor, accent lipgloss.Color) *Styles {
	text := lipgloss.Color(f.Text().Hex)
	subtext := lipgloss.Color(f.Subtext0().Hex)
	overlay := lipgloss.Color(f.Overlay0().Hex)
	surface := lipgloss.Color(f.Surface1().Hex)

	return &Styles{
		flavor: f,
		accent: accent,

		Title:     lipgloss.NewStyle().Bold(true).Foreground(text),
		Subtitle:  lipgloss.NewStyle().Foreground(subtext),
		Label:     lipgloss.NewStyle().Foreground(overlay),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(accent),
		Muted:     lipgloss.NewStyle().Foreground(subtext),
		Dim:       lipgloss.NewStyle().Foreground(overlay),
		Playing:   lipgloss.NewStyle().Foreground(accent),
		Paused:    lipgloss.NewStyle().Foreground(lipgloss.Color(f.Yellow().Hex)),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(f.Red().Hex)),
		Selected:  lipgloss.NewStyle().Background(surface),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(surface),
		FocusedBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent),
	}
}

// Panel returns the frame for a panel.
func (s *Styles) Panel(focused bool) lipgloss.Style {
	if focused {
		return s.FocusedBorder.Padding(0, 1)
	}
	return s.Border.Padding(0, 1)
}

// PanelTitle renders a panel heading.
func (s *Styles) PanelTitle(title string, focused bool) string {
	style := s.Label
	if focused {
		style = s.Highlight
	}
	return style.Render(" " + title + " ")
}

// ProgressBar renders a bar of width cells filled to percent.
func (s *Styles) ProgressBar(percent float64, width int) string {
	if width < 0 {
		width = 0
	}
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))

	return lipgloss.NewStyle().Foreground(s.accent).Render(strings.Repeat("━", filled)) +
		s.Dim.Render(strings.Repeat("─", width-filled))
}

// StatusIcon returns the transport icon.
func (s *Styles) StatusIcon(playing bool) string {
	if playing {
		return s.Playing.Render("▶")
	}
	return s.Paused.Render("⏸")
}

// Swatch renders a small block in the given color.
func Swatch(hex string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("██")
}
