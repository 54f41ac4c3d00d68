package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/lumipallolabs/shr/internal/core"
	"github.com/lumipallolabs/shr/internal/model"
	"github.com/lumipallolabs/shr/internal/units"
)

const headerProgressBarWidth = 20 // Width of disk usage progress bar

// Header shows the scanned root, its volume and the scan progress (2 lines)
type Header struct {
	version string
	units   units.Mode
	width   int
	disk    *model.DiskSpace
	scan    core.ScanState
	spinner string
}

// NewHeader creates a new header component
func NewHeader(version string, mode units.Mode) Header {
	return Header{version: version, units: mode}
}

// SetDisk sets the volume information; nil hides the usage bar
func (h *Header) SetDisk(disk *model.DiskSpace) {
	h.disk = disk
}

// SetScan updates the scan state and the current spinner frame
func (h *Header) SetScan(scan core.ScanState, spinner string) {
	h.scan = scan
	h.spinner = spinner
}

// SetWidth sets the header width
func (h *Header) SetWidth(w int) {
	h.width = w
}

// View renders the header
// Line 1: shr 0.1.0 /path                       Free: X / Y [bar]
// Line 2: ⠋ Scanning 12,345 entries ...         elapsed
func (h Header) View() string {
	nameStyle := lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	versionStyle := lipgloss.NewStyle().Foreground(ColorDim)
	rootStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(true)
	barFilledStyle := lipgloss.NewStyle().Foreground(ColorPrimary)
	barEmptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	appName := nameStyle.Render("shr") + versionStyle.Render(" "+h.version)

	var freeStats string
	if h.disk != nil && h.disk.TotalBytes > 0 {
		freeLabel := LabelStyle.Render("Free: ")
		freeValue := StatsStyle.Render(fmt.Sprintf("%s / %s",
			units.Format(h.disk.FreeBytes, h.units), units.Format(h.disk.TotalBytes, h.units)))
		freeStats = freeLabel + freeValue

		fullStatsWidth := lipgloss.Width(freeStats) + 2 + headerProgressBarWidth
		if h.width >= lipgloss.Width(appName)+fullStatsWidth+4 {
			filled := int(h.disk.UsedPercent() / 100 * headerProgressBarWidth)
			if filled > headerProgressBarWidth {
				filled = headerProgressBarWidth
			}
			bar := barFilledStyle.Render(strings.Repeat("▓", filled)) +
				barEmptyStyle.Render(strings.Repeat("░", headerProgressBarWidth-filled))
			freeStats += "  " + bar
		}
	}

	rootSpace := h.width - lipgloss.Width(appName) - lipgloss.Width(freeStats) - 4
	line1Left := appName
	if h.scan.Root != "" && rootSpace > 4 {
		line1Left += " " + rootStyle.Render(truncate(h.scan.Root, rootSpace))
	}
	line1 := spread(line1Left, freeStats, h.width)

	line2 := spread(h.progress(), LabelStyle.Render(h.scan.Elapsed().String()), h.width)
	return lipgloss.JoinVertical(lipgloss.Left, line1, line2)
}

// progress renders the scan counters: a spinner with live counters while
// events arrive, the totals once they stop
func (h Header) progress() string {
	s := h.scan
	valueStyle := lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)
	sep := LabelStyle.Render(" · ")

	var parts []string
	switch s.Phase {
	case core.PhaseScanning:
		parts = append(parts,
			lipgloss.NewStyle().Foreground(ColorCyan).Render(h.spinner)+" "+StatsStyle.Render("Scanning"),
			valueStyle.Render(humanize.Comma(int64(s.TotalEntries)))+LabelStyle.Render(" entries"),
			valueStyle.Render(humanize.Comma(int64(s.InProgressDirs)))+LabelStyle.Render(" dirs open"),
			valueStyle.Render(humanize.Comma(int64(s.Rate())))+LabelStyle.Render(" events/s"),
		)
	case core.PhaseComplete:
		doneStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
		status := doneStyle.Render("✓ Complete")
		if s.Err != nil {
			status = lipgloss.NewStyle().Foreground(ColorDanger).Render("✗ " + s.Err.Error())
		}
		parts = append(parts,
			status,
			valueStyle.Render(humanize.Comma(int64(s.Totals.Files)))+LabelStyle.Render(" files"),
			valueStyle.Render(units.Format(s.Totals.Size, h.units)),
		)
	default:
		return ""
	}

	if s.Progress.Errors > 0 {
		errStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		parts = append(parts, errStyle.Render(humanize.Comma(s.Progress.Errors)+" unreadable"))
	}
	return strings.Join(parts, sep)
}

// spread places left and right at the edges of a line of width w
func spread(left, right string, w int) string {
	gap := w - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + right
}
