package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jeffwilliams/squarify"

	"github.com/lumipallolabs/shr/internal/model"
	"github.com/lumipallolabs/shr/internal/paths"
	"github.com/lumipallolabs/shr/internal/units"
)

// Block represents a rectangle in the treemap
type Block struct {
	Row           model.ChildView
	X, Y          int
	Width, Height int
	// For grouped items (Row is empty)
	IsGrouped  bool
	GroupCount int
	GroupSize  uint64
}

// TreemapPanel lays the focused node's children out as nested rectangles
type TreemapPanel struct {
	rows     []model.ChildView
	selected paths.ID
	blocks   []Block
	width    int
	height   int
	units    units.Mode
}

// NewTreemapPanel creates a new treemap panel
func NewTreemapPanel(mode units.Mode) TreemapPanel {
	return TreemapPanel{units: mode}
}

// SetRows replaces the displayed rows and recomputes the layout
func (t *TreemapPanel) SetRows(rows []model.ChildView) {
	t.rows = rows
	t.layout()
}

// SetSize sets the panel dimensions
func (t *TreemapPanel) SetSize(w, h int) {
	if t.width != w || t.height != h {
		t.width = w
		t.height = h
		t.layout()
	}
}

// SetSelected sets the selected entry
func (t *TreemapPanel) SetSelected(id paths.ID) {
	t.selected = id
}

// Selected returns the selected entry
func (t TreemapPanel) Selected() paths.ID {
	return t.selected
}

// Blocks returns the current layout
func (t TreemapPanel) Blocks() []Block {
	return t.blocks
}

// MoveToBlock moves selection to the nearest block in direction (dx, dy)
func (t *TreemapPanel) MoveToBlock(dx, dy int) {
	if len(t.blocks) == 0 {
		return
	}

	var current *Block
	for i := range t.blocks {
		if !t.blocks[i].IsGrouped && t.blocks[i].Row.ID == t.selected {
			current = &t.blocks[i]
			break
		}
	}
	if current == nil {
		t.selectFirst()
		return
	}

	cx := current.X + current.Width/2
	cy := current.Y + current.Height/2

	var best *Block
	bestDist := -1
	for i := range t.blocks {
		block := &t.blocks[i]
		if block.IsGrouped || block.Row.ID == t.selected {
			continue
		}

		bx := block.X + block.Width/2
		by := block.Y + block.Height/2
		if dx > 0 && bx <= cx || dx < 0 && bx >= cx {
			continue
		}
		if dy > 0 && by <= cy || dy < 0 && by >= cy {
			continue
		}

		dist := abs(bx-cx) + abs(by-cy)
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			best = block
		}
	}

	if best != nil {
		t.selected = best.Row.ID
	}
}

func (t *TreemapPanel) selectFirst() {
	for i := range t.blocks {
		if !t.blocks[i].IsGrouped {
			t.selected = t.blocks[i].Row.ID
			return
		}
	}
}

// treemapItem wraps a row for the squarify algorithm
type treemapItem struct {
	row      model.ChildView
	size     float64
	children []*treemapItem
}

// Size implements squarify.TreeSizer
func (t *treemapItem) Size() float64 {
	return t.size
}

// NumChildren implements squarify.TreeSizer
func (t *treemapItem) NumChildren() int {
	return len(t.children)
}

// Child implements squarify.TreeSizer
func (t *treemapItem) Child(i int) squarify.TreeSizer {
	return t.children[i]
}

const (
	minBlockWidth   = 8  // fits a short label
	minBlockHeight  = 3  // border + 1 line text
	maxVisibleItems = 15 // max items before grouping remainder into "N more"
	treemapBorderH  = 2  // margin for rightmost block borders
)

// contentSize returns the area blocks are laid out in
func (t TreemapPanel) contentSize() (int, int) {
	w, h := t.width-treemapBorderH, t.height
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// layout calculates block positions. It shows as many of the largest rows
// as fit with minimum dimensions and groups the rest into one "N more" strip.
func (t *TreemapPanel) layout() {
	t.blocks = nil
	if len(t.rows) == 0 || t.width <= 2 || t.height <= 2 {
		return
	}
	contentW, contentH := t.contentSize()

	items := make([]*treemapItem, 0, len(t.rows))
	for _, r := range t.rows {
		size := float64(r.Size)
		if size < 1 {
			size = 1 // keep empty entries visible
		}
		items = append(items, &treemapItem{row: r, size: size})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].size > items[j].size
	})

	rect := squarify.Rect{W: float64(contentW), H: float64(contentH)}

	var blocks []squarify.Block
	var metas []squarify.Meta
	shown := 0

	for maxVisible := min(len(items), maxVisibleItems); maxVisible >= 1; maxVisible-- {
		numVisible := maxVisible
		mainRect := rect
		// Only group when 2+ items would be hidden; never show "1 more"
		if len(items)-numVisible >= 2 && contentH > minBlockHeight {
			mainRect.H = float64(contentH - minBlockHeight)
		} else {
			numVisible = len(items)
		}

		root := &treemapItem{children: items[:numVisible]}
		for _, child := range root.children {
			root.size += child.size
		}
		blocks, metas = squarify.Squarify(root, mainRect, squarify.Options{
			MaxDepth: 1,
			Sort:     true,
		})
		shown = numVisible

		if maxVisible == 1 || t.fits(blocks, metas) {
			break
		}
	}

	maxMainBlockEndY := 0
	for i, block := range blocks {
		item, ok := block.TreeSizer.(*treemapItem)
		if !ok || i >= len(metas) || metas[i].Depth != 0 {
			continue
		}

		// Round both edges so adjacent blocks share a boundary
		x := int(math.Round(block.X))
		y := int(math.Round(block.Y))
		endX := min(int(math.Round(block.X+block.W)), contentW)
		endY := min(int(math.Round(block.Y+block.H)), contentH)
		w, h := endX-x, endY-y
		if w < 1 || h < 1 || x >= contentW || y >= contentH {
			continue
		}
		maxMainBlockEndY = max(maxMainBlockEndY, y+h)

		t.blocks = append(t.blocks, Block{Row: item.row, X: x, Y: y, Width: w, Height: h})
	}

	if rest := len(items) - shown; rest >= 2 {
		var groupSize uint64
		for _, it := range items[shown:] {
			groupSize += it.row.Size
		}
		// Start right after the main blocks and fill the remaining space
		t.blocks = append(t.blocks, Block{
			X:          0,
			Y:          maxMainBlockEndY,
			Width:      contentW,
			Height:     max(contentH-maxMainBlockEndY, 1),
			IsGrouped:  true,
			GroupCount: rest,
			GroupSize:  groupSize,
		})
	}
}

// fits reports whether every depth-0 block meets the minimum dimensions
func (t TreemapPanel) fits(blocks []squarify.Block, metas []squarify.Meta) bool {
	for i, block := range blocks {
		if i >= len(metas) || metas[i].Depth != 0 {
			continue
		}
		w := int(math.Floor(block.X+block.W)) - int(math.Floor(block.X))
		h := int(math.Floor(block.Y+block.H)) - int(math.Floor(block.Y))
		if w < minBlockWidth || h < minBlockHeight {
			return false
		}
	}
	return true
}

// View renders the treemap
func (t TreemapPanel) View() string {
	if len(t.blocks) == 0 {
		return TreemapPanelStyle.Width(max(t.width-2, 0)).Height(max(t.height-2, 0)).
			Render(LabelStyle.Render("Empty"))
	}
	_, contentH := t.contentSize()

	type renderedBlock struct {
		block Block
		lines []string
	}
	rendered := make([]renderedBlock, 0, len(t.blocks))
	for _, block := range t.blocks {
		rendered = append(rendered, renderedBlock{block, strings.Split(t.renderBlock(block), "\n")})
	}

	// Composite line by line, placing segments by X
	type blockSegment struct {
		x     int
		width int
		line  string
	}
	outputLines := make([]string, 0, contentH)
	for y := 0; y < contentH; y++ {
		var segments []blockSegment
		for _, rb := range rendered {
			lineIdx := y - rb.block.Y
			if lineIdx >= 0 && lineIdx < len(rb.lines) && lineIdx < rb.block.Height {
				segments = append(segments, blockSegment{rb.block.X, rb.block.Width, rb.lines[lineIdx]})
			}
		}
		sort.Slice(segments, func(i, j int) bool {
			return segments[i].x < segments[j].x
		})

		var lb strings.Builder
		currentX := 0
		for _, seg := range segments {
			if seg.x > currentX {
				lb.WriteString(strings.Repeat(" ", seg.x-currentX))
			}
			lb.WriteString(seg.line)
			currentX = seg.x + seg.width
		}
		outputLines = append(outputLines, lb.String())
	}

	return lipgloss.NewStyle().Height(t.height).MaxHeight(t.height).Render(strings.Join(outputLines, "\n"))
}

// renderBlock renders a complete block; the border color tells the kind
func (t TreemapPanel) renderBlock(block Block) string {
	var fgColor, borderColor lipgloss.Color
	switch {
	case block.IsGrouped:
		fgColor = lipgloss.Color("#6B7280")
		borderColor = lipgloss.Color("#4B5563")
	case block.Row.IsFile:
		fgColor = ColorFile
		borderColor = lipgloss.Color("#6B7280")
	case !block.Row.Complete:
		fgColor = ColorPending
		borderColor = ColorPending
	default:
		fgColor = ColorDir
		borderColor = ColorDir
	}

	isSelected := !block.IsGrouped && block.Row.ID == t.selected
	if isSelected {
		fgColor = lipgloss.Color("#FFFFFF")
		borderColor = ColorPrimary
	}

	var label, sizeStr string
	if block.IsGrouped {
		label = fmt.Sprintf("%d more", block.GroupCount)
		sizeStr = units.Format(block.GroupSize, t.units)
	} else {
		label = block.Row.Name
		sizeStr = block.Row.HumanSize
	}

	innerW := max(block.Width-2, 0)
	innerH := max(block.Height-2, 0)
	text := truncate(label, innerW)
	if innerH > 1 && sizeStr != "" {
		text += "\n" + truncate(sizeStr, innerW)
	}

	style := lipgloss.NewStyle().
		Width(innerW).
		Height(innerH).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Foreground(fgColor)
	if isSelected {
		style = style.Bold(true)
	}
	return style.Render(text)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
