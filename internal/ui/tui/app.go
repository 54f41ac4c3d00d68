package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/lumipallolabs/shr/internal/core"
	"github.com/lumipallolabs/shr/internal/logging"
	"github.com/lumipallolabs/shr/internal/model"
	"github.com/lumipallolabs/shr/internal/paths"
	"github.com/lumipallolabs/shr/internal/units"
)

// ViewMode selects how the focused node's children are drawn
type ViewMode int

const (
	ModeList ViewMode = iota
	ModeTreemap
)

// changedMsg is delivered whenever the controller reports a change
type changedMsg struct{}

// App is the main TUI application model. The controller owns all scan
// state; the app only renders its snapshots and sends navigation commands.
type App struct {
	ctrl *core.Controller

	header  Header
	list    ListPanel
	treemap TreemapPanel
	help    HelpOverlay
	keys    KeyMap
	spinner spinner.Model

	mode  ViewMode
	snap  core.Snapshot
	focus paths.ID

	// Details of the selected entry, refreshed when the selection moves
	infoID   paths.ID
	infoLine string

	width  int
	height int
}

// NewApp creates the viewer for ctrl
func NewApp(ctrl *core.Controller, version string, mode units.Mode) App {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	keys := DefaultKeyMap()

	return App{
		ctrl:    ctrl,
		header:  NewHeader(version, mode),
		list:    NewListPanel(),
		treemap: NewTreemapPanel(mode),
		help:    NewHelpOverlay(keys, version),
		keys:    keys,
		spinner: sp,
	}
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		func() tea.Msg { return changedMsg{} },
	)
}

// listen waits for the next change notification
func (a App) listen() tea.Cmd {
	ch := a.ctrl.Changed()
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateLayout()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case changedMsg:
		a.refresh()
		return a, a.listen()

	case spinner.TickMsg:
		if a.snap.Scan.Phase == core.PhaseComplete {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.header.SetScan(a.snap.Scan, a.spinner.View())
		return a, cmd
	}

	return a, nil
}

// refresh pulls a new snapshot from the controller
func (a *App) refresh() {
	a.snap = a.ctrl.Snapshot()

	if cur := a.snap.View.Current.ID; cur != a.focus {
		prev := a.focus
		a.focus = cur
		a.list.Reset()
		a.list.SetRows(a.snap.View.Children)
		// Coming back up keeps the directory we left selected
		a.list.Select(prev)
	} else {
		a.list.SetRows(a.snap.View.Children)
	}
	a.treemap.SetRows(a.snap.View.Children)
	a.syncTreemap()

	a.header.SetScan(a.snap.Scan, a.spinner.View())
	if a.header.disk == nil && a.snap.Scan.Root != "" {
		if disk, err := model.GetDiskSpace(a.snap.Scan.Root); err == nil {
			a.header.SetDisk(&disk)
		} else {
			logging.Debug.WithError(err).Debug("tui: disk space unavailable")
		}
	}
	a.updateInfo()
}

// handleKey handles keyboard input
func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Help overlay - any key closes it
	if a.help.IsVisible() {
		a.help.SetVisible(false)
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.help.Toggle()

	case key.Matches(msg, a.keys.Toggle):
		if a.mode == ModeList {
			a.mode = ModeTreemap
			a.syncTreemap()
		} else {
			a.mode = ModeList
		}
		a.list.SetFocused(a.mode == ModeList)

	case key.Matches(msg, a.keys.Up):
		a.move(func() { a.list.MoveUp() }, 0, -1)
	case key.Matches(msg, a.keys.Down):
		a.move(func() { a.list.MoveDown() }, 0, 1)
	case key.Matches(msg, a.keys.PageUp):
		a.move(func() { a.list.PageUp() }, 0, 0)
	case key.Matches(msg, a.keys.PageDown):
		a.move(func() { a.list.PageDown() }, 0, 0)
	case key.Matches(msg, a.keys.Top):
		a.move(func() { a.list.GoToTop() }, 0, 0)
	case key.Matches(msg, a.keys.Bottom):
		a.move(func() { a.list.GoToBottom() }, 0, 0)

	case key.Matches(msg, a.keys.Left):
		if a.mode == ModeTreemap {
			a.move(nil, -1, 0)
		} else {
			a.goParent()
		}
	case key.Matches(msg, a.keys.Right):
		if a.mode == ModeTreemap {
			a.move(nil, 1, 0)
		} else {
			a.open()
		}

	case key.Matches(msg, a.keys.Enter):
		a.open()
	case key.Matches(msg, a.keys.Back):
		a.goParent()

	case key.Matches(msg, a.keys.Open):
		if row, ok := a.selected(); ok && row.IsFile {
			if err := openFile(row.Path); err != nil {
				logging.Debug.WithError(err).WithField("path", row.Path).Debug("tui: open failed")
			}
		}
	case key.Matches(msg, a.keys.Reveal):
		if row, ok := a.selected(); ok {
			if err := reveal(row.Path); err != nil {
				logging.Debug.WithError(err).WithField("path", row.Path).Debug("tui: reveal failed")
			}
		}
	}

	a.updateInfo()
	return a, nil
}

// move applies a list movement in list mode or a block step in treemap mode
// and keeps both selections in sync
func (a *App) move(listMove func(), dx, dy int) {
	if a.mode == ModeTreemap {
		if dx != 0 || dy != 0 {
			a.treemap.MoveToBlock(dx, dy)
			a.list.Select(a.treemap.Selected())
		}
		return
	}
	if listMove != nil {
		listMove()
	}
	a.syncTreemap()
}

func (a *App) syncTreemap() {
	if row, ok := a.list.Selected(); ok {
		a.treemap.SetSelected(row.ID)
	}
}

// selected returns the row the active panel points at
func (a App) selected() (model.ChildView, bool) {
	return a.list.Selected()
}

// open focuses the selected row
func (a *App) open() {
	row, ok := a.selected()
	if !ok {
		return
	}
	logging.Debug.WithField("path", row.Path).Debug("tui: goto")
	a.ctrl.Send(core.GotoPath{Raw: row.ID.String()})
	a.refresh()
}

func (a *App) goParent() {
	a.ctrl.Send(core.GotoParent{})
	a.refresh()
}

// updateInfo describes the selected row when the selection changed
func (a *App) updateInfo() {
	row, ok := a.selected()
	if !ok {
		a.infoID, a.infoLine = paths.None, ""
		return
	}
	// Directory counts move while scanning; file details do not
	if row.ID == a.infoID && row.IsFile {
		return
	}
	a.infoID = row.ID
	a.infoLine = describe(row)
}

// describe builds the detail line for a row: file type and modification
// time for files, file count for directories
func describe(row model.ChildView) string {
	dimStyle := LabelStyle
	sep := dimStyle.Render(" │ ")

	parts := []string{lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Render(row.Name)}
	if row.IsFile {
		if fileType := getFileType(row.Path); fileType != "" {
			parts = append(parts, dimStyle.Render(fileType))
		}
	} else {
		files := humanize.Comma(int64(row.Files)) + " files"
		if !row.Complete {
			files += " so far"
		}
		parts = append(parts, dimStyle.Render(files))
	}
	if info, err := os.Lstat(row.Path); err == nil {
		parts = append(parts, dimStyle.Render("M: "+FormatTime(info.ModTime())))
	}
	parts = append(parts, dimStyle.Render(fmt.Sprintf("%.1f%% of total", row.AllRatio*100)))
	return strings.Join(parts, sep)
}

// getFileType detects file type using magic numbers
func getFileType(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return mtype.String()
}

// updateLayout calculates component sizes
func (a *App) updateLayout() {
	const (
		headerHeight  = 2
		infoBarHeight = 2
		helpBarHeight = 1
	)

	panelHeight := a.height - headerHeight - infoBarHeight - helpBarHeight
	if panelHeight < 3 {
		panelHeight = 3
	}

	a.header.SetWidth(a.width)
	a.list.SetSize(a.width-2, panelHeight-2)
	a.treemap.SetSize(a.width, panelHeight)
	a.help.SetSize(a.width, a.height)
}

// View implements tea.Model
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}
	if a.help.IsVisible() {
		return a.help.View()
	}

	var panel string
	if a.mode == ModeTreemap {
		panel = a.treemap.View()
	} else {
		panel = a.list.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.header.View(),
		a.infoBar(),
		panel,
		HelpBar(a.width),
	)
}

// infoBar shows the focused node on the first line and the selected row on
// the second
func (a App) infoBar() string {
	cur := a.snap.View.Current
	pathStyle := lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)
	sep := LabelStyle.Render(" │ ")

	stats := []string{
		StatsStyle.Render(cur.HumanSize),
		LabelStyle.Render(humanize.Comma(int64(cur.Files)) + " files"),
	}
	if cur.ID != paths.None {
		stats = append(stats, LabelStyle.Render(fmt.Sprintf("%.1f%% of parent", cur.Ratio*100)))
	}
	right := strings.Join(stats, sep)

	name := cur.Path
	if name == "" {
		name = a.snap.Scan.Root
	}
	room := a.width - lipgloss.Width(right) - 4
	line1 := spread(pathStyle.Render(truncate(name, room)), right, a.width)

	line2 := lipgloss.NewStyle().MaxWidth(a.width).Render(" " + a.infoLine)
	return lipgloss.JoinVertical(lipgloss.Left, line1, line2)
}
