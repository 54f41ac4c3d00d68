package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lumipallolabs/shr/internal/model"
	"github.com/lumipallolabs/shr/internal/paths"
)

const listRatioBarWidth = 10

// ListPanel shows the focused node's children ranked by share
type ListPanel struct {
	rows    []model.ChildView
	cursor  int
	offset  int // scroll offset
	width   int
	height  int
	focused bool
}

// NewListPanel creates an empty list panel
func NewListPanel() ListPanel {
	return ListPanel{focused: true}
}

// SetRows replaces the rows. The cursor stays on the same entry when it is
// still present, so live re-ranking does not move the selection.
func (l *ListPanel) SetRows(rows []model.ChildView) {
	var keep paths.ID
	if sel, ok := l.Selected(); ok {
		keep = sel.ID
	}
	l.rows = rows
	if keep != paths.None {
		for i := range rows {
			if rows[i].ID == keep {
				l.cursor = i
				l.ensureVisible()
				return
			}
		}
	}
	l.clamp()
}

// Reset moves the cursor to the first row, used after the focus changes
func (l *ListPanel) Reset() {
	l.rows = nil
	l.cursor = 0
	l.offset = 0
}

// SetSize sets the panel dimensions
func (l *ListPanel) SetSize(w, h int) {
	l.width = w
	l.height = h
	l.ensureVisible()
}

// SetFocused sets focus state
func (l *ListPanel) SetFocused(focused bool) {
	l.focused = focused
}

// Selected returns the row under the cursor
func (l ListPanel) Selected() (model.ChildView, bool) {
	if l.cursor < 0 || l.cursor >= len(l.rows) {
		return model.ChildView{}, false
	}
	return l.rows[l.cursor], true
}

// Select moves the cursor to the row with id
func (l *ListPanel) Select(id paths.ID) {
	for i := range l.rows {
		if l.rows[i].ID == id {
			l.cursor = i
			l.ensureVisible()
			return
		}
	}
}

// MoveUp moves the cursor up
func (l *ListPanel) MoveUp() {
	l.cursor--
	l.clamp()
}

// MoveDown moves the cursor down
func (l *ListPanel) MoveDown() {
	l.cursor++
	l.clamp()
}

// PageUp moves the cursor up by one page
func (l *ListPanel) PageUp() {
	l.cursor -= l.pageSize()
	l.clamp()
}

// PageDown moves the cursor down by one page
func (l *ListPanel) PageDown() {
	l.cursor += l.pageSize()
	l.clamp()
}

// GoToTop moves the cursor to the first row
func (l *ListPanel) GoToTop() {
	l.cursor = 0
	l.clamp()
}

// GoToBottom moves the cursor to the last row
func (l *ListPanel) GoToBottom() {
	l.cursor = len(l.rows) - 1
	l.clamp()
}

// pageSize is the number of rows that fit inside the border
func (l ListPanel) pageSize() int {
	if l.height > 1 {
		return l.height
	}
	return 1
}

func (l *ListPanel) clamp() {
	if l.cursor >= len(l.rows) {
		l.cursor = len(l.rows) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.ensureVisible()
}

func (l *ListPanel) ensureVisible() {
	page := l.pageSize()
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+page {
		l.offset = l.cursor - page + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// View renders the visible rows
func (l ListPanel) View() string {
	style := ListPanelStyle.Width(l.width).Height(l.height)
	if l.focused {
		style = style.BorderForeground(ColorPrimary)
	}
	if len(l.rows) == 0 {
		return style.Render(LabelStyle.Render("Empty"))
	}

	maxW := l.width - 2
	var lines []string
	for i := l.offset; i < len(l.rows) && len(lines) < l.pageSize(); i++ {
		lines = append(lines, l.renderRow(l.rows[i], i == l.cursor, maxW))
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (l ListPanel) renderRow(row model.ChildView, selected bool, maxW int) string {
	name := row.Name
	if !row.IsFile {
		name += "/"
	}
	prefix := fmt.Sprintf("%5.1f%% %7s ", row.Ratio*100, row.HumanSize)
	nameW := maxW - listRatioBarWidth - 1 - lipgloss.Width(prefix)
	name = truncate(name, nameW)

	if selected && l.focused {
		filled := min(max(int(row.Ratio*listRatioBarWidth), 0), listRatioBarWidth)
		plain := strings.Repeat("█", filled) + strings.Repeat("░", listRatioBarWidth-filled)
		return ListItemSelected.Width(maxW).MaxWidth(maxW).Render(plain + " " + prefix + name)
	}

	var nameStyle lipgloss.Style
	switch {
	case row.IsFile:
		nameStyle = lipgloss.NewStyle().Foreground(ColorFile)
	case !row.Complete:
		nameStyle = lipgloss.NewStyle().Foreground(ColorPending)
	default:
		nameStyle = lipgloss.NewStyle().Foreground(ColorDir)
	}
	return ratioBar(row.Ratio, listRatioBarWidth) + " " + StatsStyle.Render(prefix) + nameStyle.Render(name)
}
