package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/garden-road/internal/economy"
)

// LayoutKey is the key under which the garden saves its layout.
const LayoutKey = "gardenLayout"

// LayoutItem is an item as the placement sandbox serializes it.
type LayoutItem struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type"` // "npc" or "building"
}

// LayoutCell is one cell of the saved garden.
type LayoutCell struct {
	Row     int         `json:"row"`
	Col     int         `json:"col"`
	Content *LayoutItem `json:"content"`
}

// Layout is the garden snapshot: rows of cells, indexed [row][col].
type Layout [][]LayoutCell

// ErrEmptyLayout is returned for a blank snapshot.
var ErrEmptyLayout = errors.New("empty layout")

// ParseLayout decodes a layout snapshot.
func ParseLayout(data []byte) (Layout, error) {
	if len(data) == 0 {
		return nil, ErrEmptyLayout
	}
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return l, nil
}

// Marshal encodes the layout in the garden's snapshot format.
func (l Layout) Marshal() ([]byte, error) {
	return json.Marshal(l)
}

// LoadLayout replaces grid occupancy with the snapshot's items, attaching
// catalog profiles. Cells outside the grid and unknown item types are skipped.
// It returns the number of items placed.
func (g *Grid) LoadLayout(l Layout, catalog *economy.Catalog) int {
	g.Clear()
	placed := 0
	for r, row := range l {
		for c, lc := range row {
			if lc.Content == nil {
				continue
			}
			coord := OffsetCoord{Row: r, Col: c}
			item, ok := itemFromLayout(lc.Content, catalog)
			if !ok {
				slog.Debug("skipping layout item", "coord", coord.String(), "type", lc.Content.Type)
				continue
			}
			if g.Place(coord, item) {
				placed++
			}
		}
	}
	return placed
}

func itemFromLayout(li *LayoutItem, catalog *economy.Catalog) (*PlacedItem, bool) {
	var (
		entry economy.Entry
		kind  ItemKind
	)
	switch li.Type {
	case "building":
		entry, kind = catalog.Building(li.ID), KindBuilding
	case "npc":
		entry, kind = catalog.NPC(li.ID), KindNPC
	default:
		return nil, false
	}

	name := li.Name
	if name == "" {
		name = entry.Name
	}
	return &PlacedItem{ID: li.ID, Name: name, Kind: kind, Profile: entry.Profile}, true
}

// Layout exports current occupancy back into snapshot form.
func (g *Grid) Layout() Layout {
	l := make(Layout, g.Rows)
	for r := 0; r < g.Rows; r++ {
		l[r] = make([]LayoutCell, g.Cols)
		for c := 0; c < g.Cols; c++ {
			lc := LayoutCell{Row: r, Col: c}
			if cell := g.Get(OffsetCoord{Row: r, Col: c}); cell.Item != nil {
				lc.Content = &LayoutItem{ID: cell.Item.ID, Name: cell.Item.Name, Type: cell.Item.Kind.String()}
			}
			l[r][c] = lc
		}
	}
	return l
}
