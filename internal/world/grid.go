package world

import (
	"fmt"

	"github.com/talgya/garden-road/internal/economy"
)

// ItemKind distinguishes the two kinds of placed garden items.
type ItemKind uint8

const (
	KindNPC ItemKind = iota
	KindBuilding
)

func (k ItemKind) String() string {
	switch k {
	case KindNPC:
		return "npc"
	case KindBuilding:
		return "building"
	}
	return fmt.Sprintf("ItemKind(%d)", uint8(k))
}

// MarshalText renders the kind as its layout type name.
func (k ItemKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a layout type name.
func (k *ItemKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "npc":
		*k = KindNPC
	case "building":
		*k = KindBuilding
	default:
		return fmt.Errorf("unknown item kind %q", text)
	}
	return nil
}

// PlacedItem is an NPC or building occupying one cell.
// ID is the item type id from the garden ("building-1", "npc-3").
type PlacedItem struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Kind    ItemKind        `json:"kind"`
	Profile economy.Profile `json:"profile"`
}

// Cell is one hex on the garden grid.
// Road flags are only meaningful while a road is being built or walked.
type Cell struct {
	Coord       OffsetCoord `json:"coord"`
	Item        *PlacedItem `json:"item,omitempty"`
	IsRoad      bool        `json:"is_road"`
	IsStart     bool        `json:"is_start"`
	IsEnd       bool        `json:"is_end"`
	IsValidNext bool        `json:"is_valid_next"`
}

// HasKind reports whether the cell holds an item of the given kind.
func (c *Cell) HasKind(kind ItemKind) bool {
	return c.Item != nil && c.Item.Kind == kind
}

// Grid holds the fixed rectangle of cells, row-major.
type Grid struct {
	Rows  int
	Cols  int
	cells []Cell
}

// NewGrid creates an empty grid.
func NewGrid(rows, cols int) *Grid {
	g := &Grid{Rows: rows, Cols: cols, cells: make([]Cell, rows*cols)}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.cells[r*cols+c].Coord = OffsetCoord{Row: r, Col: c}
		}
	}
	return g
}

// InBounds returns true if the coordinate lies on the grid.
func (g *Grid) InBounds(c OffsetCoord) bool {
	return c.Row >= 0 && c.Row < g.Rows && c.Col >= 0 && c.Col < g.Cols
}

// Get returns the cell at c, or nil if out of bounds.
func (g *Grid) Get(c OffsetCoord) *Cell {
	if !g.InBounds(c) {
		return nil
	}
	return &g.cells[c.Row*g.Cols+c.Col]
}

// Place puts item on the cell at c, replacing any previous occupant.
// A nil item empties the cell.
func (g *Grid) Place(c OffsetCoord, item *PlacedItem) bool {
	cell := g.Get(c)
	if cell == nil {
		return false
	}
	cell.Item = item
	return true
}

// Cells returns every cell in row-major scan order.
func (g *Grid) Cells() []*Cell {
	out := make([]*Cell, len(g.cells))
	for i := range g.cells {
		out[i] = &g.cells[i]
	}
	return out
}

// AdjacentItems returns cells holding items of kind adjacent to c, in scan order.
func (g *Grid) AdjacentItems(c OffsetCoord, kind ItemKind) []*Cell {
	var out []*Cell
	for i := range g.cells {
		cell := &g.cells[i]
		if cell.HasKind(kind) && IsAdjacent(c, cell.Coord) {
			out = append(out, cell)
		}
	}
	return out
}

// Clear empties every cell, items included.
func (g *Grid) Clear() {
	for i := range g.cells {
		coord := g.cells[i].Coord
		g.cells[i] = Cell{Coord: coord}
	}
}

// ClearRoad drops road, start, end and valid-next flags but keeps items.
func (g *Grid) ClearRoad() {
	for i := range g.cells {
		cell := &g.cells[i]
		cell.IsRoad = false
		cell.IsStart = false
		cell.IsEnd = false
		cell.IsValidNext = false
	}
}

// ItemCounts returns how many NPCs and buildings are placed.
func (g *Grid) ItemCounts() (npcs, buildings int) {
	for i := range g.cells {
		switch {
		case g.cells[i].HasKind(KindNPC):
			npcs++
		case g.cells[i].HasKind(KindBuilding):
			buildings++
		}
	}
	return npcs, buildings
}

// GridView is the render-facing copy of the grid.
type GridView struct {
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Cells []Cell `json:"cells"`
}

// View returns a deep copy of the grid for readers outside the simulation.
func (g *Grid) View() GridView {
	cells := make([]Cell, len(g.cells))
	for i, c := range g.cells {
		if c.Item != nil {
			item := *c.Item
			c.Item = &item
		}
		cells[i] = c
	}
	return GridView{Rows: g.Rows, Cols: g.Cols, Cells: cells}
}

func (g *Grid) String() string {
	npcs, buildings := g.ItemCounts()
	return fmt.Sprintf("Grid(%dx%d, npcs=%d, buildings=%d)", g.Rows, g.Cols, npcs, buildings)
}
