package tui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jeffwilliams/squarify"

	"github.com/lumipallolabs/shr/internal/model"
	"github.com/lumipallolabs/shr/internal/paths"
	"github.com/lumipallolabs/shr/internal/units"
)

func rowsOf(sizes ...uint64) []model.ChildView {
	var total uint64
	for _, s := range sizes {
		total += s
	}
	rows := make([]model.ChildView, len(sizes))
	for i, s := range sizes {
		rows[i] = model.ChildView{
			ID:        paths.ID(i + 1),
			Name:      fmt.Sprintf("entry%d", i+1),
			Size:      s,
			HumanSize: units.Format(s, units.ModeSI),
			Ratio:     model.Ratio(s, total),
			Complete:  true,
		}
	}
	return rows
}

// checkTiling verifies blocks stay inside the content area and never overlap
func checkTiling(t *testing.T, panel TreemapPanel) {
	t.Helper()
	contentW, contentH := panel.contentSize()
	blocks := panel.Blocks()

	for i, b := range blocks {
		if b.X < 0 || b.Y < 0 || b.Width < 1 || b.Height < 1 {
			t.Errorf("block[%d] has bad geometry: %+v", i, b)
		}
		if b.X+b.Width > contentW || b.Y+b.Height > contentH {
			t.Errorf("block[%d] exceeds %dx%d: x=%d y=%d w=%d h=%d",
				i, contentW, contentH, b.X, b.Y, b.Width, b.Height)
		}
		for j := i + 1; j < len(blocks); j++ {
			o := blocks[j]
			if b.X < o.X+o.Width && o.X < b.X+b.Width && b.Y < o.Y+o.Height && o.Y < b.Y+b.Height {
				t.Errorf("block[%d] overlaps block[%d]", i, j)
			}
		}
	}
}

// accounted returns how many rows the layout shows or groups
func accounted(panel TreemapPanel) int {
	n := 0
	for _, b := range panel.Blocks() {
		if b.IsGrouped {
			n += b.GroupCount
		} else {
			n++
		}
	}
	return n
}

func TestSquarifyDirect(t *testing.T) {
	root := &treemapItem{
		size: 300,
		children: []*treemapItem{
			{size: 100},
			{size: 100},
			{size: 100},
		},
	}

	blocks, metas := squarify.Squarify(root, squarify.Rect{W: 76, H: 22}, squarify.Options{
		MaxDepth: 1,
		Sort:     true,
	})

	depth0 := 0
	for i := range blocks {
		if i < len(metas) && metas[i].Depth == 0 {
			depth0++
		}
	}
	if depth0 != 3 {
		t.Errorf("expected 3 depth-0 blocks, got %d", depth0)
	}
}

func TestTreemapLayout(t *testing.T) {
	const mb = 1024 * 1024
	tests := []struct {
		name    string
		sizes   []uint64
		w, h    int
		grouped bool
	}{
		{"few equal", []uint64{100, 100, 100}, 80, 24, false},
		{"mixed", []uint64{100 * mb, 80 * mb, 50 * mb, 30 * mb, 10 * mb, 5 * mb, 1 * mb, mb / 2}, 80, 24, true},
		{"many small", make40(), 80, 24, true},
		{"zero sizes", []uint64{0, 0}, 40, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			panel := NewTreemapPanel(units.ModeSI)
			panel.SetSize(tt.w, tt.h)
			panel.SetRows(rowsOf(tt.sizes...))

			if len(panel.Blocks()) == 0 {
				t.Fatal("expected blocks to be generated")
			}
			checkTiling(t, panel)

			if got := accounted(panel); got != len(tt.sizes) {
				t.Errorf("layout accounts for %d rows, want %d", got, len(tt.sizes))
			}

			var grouped *Block
			for i := range panel.blocks {
				if panel.blocks[i].IsGrouped {
					grouped = &panel.blocks[i]
				}
			}
			if (grouped != nil) != tt.grouped {
				t.Fatalf("grouped block present = %v, want %v", grouped != nil, tt.grouped)
			}
			if grouped != nil && grouped.GroupCount < 2 {
				t.Errorf("grouped block hides %d rows, want at least 2", grouped.GroupCount)
			}
		})
	}
}

func make40() []uint64 {
	sizes := make([]uint64, 40)
	for i := range sizes {
		sizes[i] = 1000
	}
	return sizes
}

func TestTreemapMoveToBlock(t *testing.T) {
	panel := NewTreemapPanel(units.ModeSI)
	panel.SetSize(80, 10)
	panel.SetRows(rowsOf(500, 500))

	blocks := panel.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	first, second := blocks[0], blocks[1]

	panel.SetSelected(first.Row.ID)
	dx, dy := 0, 0
	switch {
	case second.X > first.X:
		dx = 1
	case second.X < first.X:
		dx = -1
	case second.Y > first.Y:
		dy = 1
	default:
		dy = -1
	}

	panel.MoveToBlock(dx, dy)
	if panel.Selected() != second.Row.ID {
		t.Errorf("selected %d after move, want %d", panel.Selected(), second.Row.ID)
	}

	// Nothing lies further in that direction
	panel.MoveToBlock(dx, dy)
	if panel.Selected() != second.Row.ID {
		t.Errorf("selection moved past the edge to %d", panel.Selected())
	}

	panel.MoveToBlock(-dx, -dy)
	if panel.Selected() != first.Row.ID {
		t.Errorf("selected %d after moving back, want %d", panel.Selected(), first.Row.ID)
	}
}

func TestTreemapSelectsFirstWhenUnset(t *testing.T) {
	panel := NewTreemapPanel(units.ModeSI)
	panel.SetSize(80, 24)
	panel.SetRows(rowsOf(300, 200, 100))

	panel.MoveToBlock(1, 0)
	if panel.Selected() == paths.None {
		t.Error("expected a selection after moving without one")
	}
}

func TestTreemapEmpty(t *testing.T) {
	panel := NewTreemapPanel(units.ModeSI)
	panel.SetSize(40, 10)
	panel.SetRows(nil)

	if len(panel.Blocks()) != 0 {
		t.Errorf("expected no blocks, got %d", len(panel.Blocks()))
	}
	if !strings.Contains(panel.View(), "Empty") {
		t.Error("empty treemap should say so")
	}
}

func TestTreemapViewLabels(t *testing.T) {
	panel := NewTreemapPanel(units.ModeSI)
	panel.SetSize(80, 24)
	panel.SetRows(rowsOf(3000, 2000))

	view := panel.View()
	for _, want := range []string{"entry1", "entry2", "3.0K", "2.0K"} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q", want)
		}
	}
}
