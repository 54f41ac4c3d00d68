package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const helpKeyColumnWidth = 14 // includes padding

// HelpOverlay displays keyboard shortcuts in a centered overlay
type HelpOverlay struct {
	visible bool
	width   int
	height  int
	keys    KeyMap
	version string
}

// NewHelpOverlay creates a new help overlay component
func NewHelpOverlay(keys KeyMap, version string) HelpOverlay {
	return HelpOverlay{keys: keys, version: version}
}

// Toggle toggles the visibility of the help overlay
func (h *HelpOverlay) Toggle() {
	h.visible = !h.visible
}

// SetVisible sets the visibility of the help overlay
func (h *HelpOverlay) SetVisible(visible bool) {
	h.visible = visible
}

// IsVisible returns whether the help overlay is visible
func (h HelpOverlay) IsVisible() bool {
	return h.visible
}

// SetSize sets the dimensions of the help overlay
func (ho *HelpOverlay) SetSize(w, h int) {
	ho.width = w
	ho.height = h
}

// View renders the help overlay from the key map's full help
func (h HelpOverlay) View() string {
	if !h.visible {
		return ""
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 3)
	sectionStyle := lipgloss.NewStyle().
		Foreground(ColorMuted).
		MarginTop(1)
	descStyle := lipgloss.NewStyle().Foreground(ColorText)
	dimStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	nameStyle := lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	var content strings.Builder
	content.WriteString(nameStyle.Render("shr"))
	if h.version != "" {
		content.WriteString(dimStyle.Render(" " + h.version))
	}
	content.WriteString("\n")

	sections := []string{"Movement", "Paging", "Navigation", "Files", "General"}
	for i, group := range h.keys.FullHelp() {
		if i < len(sections) {
			content.WriteString(sectionStyle.Render(sections[i]))
			content.WriteString("\n")
		}
		for _, b := range group {
			help := b.Help()
			content.WriteString(HelpOverlayKey.Width(helpKeyColumnWidth).Render(help.Key))
			content.WriteString(descStyle.Render(help.Desc))
			content.WriteString("\n")
		}
	}

	content.WriteString("\n")
	content.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(h.width, h.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(content.String()))
}

// HelpBar renders a bottom help bar with key hints
func HelpBar(width int) string {
	descStyle := lipgloss.NewStyle().Foreground(ColorDim)

	type hint struct {
		key  string
		desc string
	}

	fullHints := []hint{
		{"↑↓", "select"},
		{"Enter", "open"},
		{"Esc", "parent"},
		{"t", "treemap"},
		{"Space", "open file"},
		{"o", "reveal"},
		{"?", "help"},
		{"q", "quit"},
	}
	compactHints := []hint{
		{"↑↓", "nav"},
		{"Enter", "in"},
		{"Esc", "out"},
		{"?", "help"},
		{"q", "quit"},
	}
	minimalHints := []hint{
		{"?", "help"},
		{"q", "quit"},
	}

	var hints []hint
	switch {
	case width >= 100:
		hints = fullHints
	case width >= 60:
		hints = compactHints
	default:
		hints = minimalHints
	}

	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, HelpKey.Render(h.key)+" "+descStyle.Render(h.desc))
	}

	separator := "   "
	if width < 80 {
		separator = "  "
	}
	return HelpStyle.Width(width).MaxHeight(1).Render(strings.Join(parts, separator))
}
