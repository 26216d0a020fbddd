// Package world provides the hex grid, the road path built across it, and the
// garden layout snapshot that populates it.
// Uses offset coordinates (row, col) where odd columns sit half a cell lower.
package world

import "fmt"

// Default garden dimensions.
const (
	DefaultRows = 8
	DefaultCols = 15
)

// OffsetCoord addresses a cell by row and column.
type OffsetCoord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c OffsetCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Key is the "row-col" form used by the layout snapshot and the UI.
func (c OffsetCoord) Key() string {
	return fmt.Sprintf("%d-%d", c.Row, c.Col)
}

// evenColNeighbors and oddColNeighbors are (row, col) offsets.
// Order: top, then clockwise.
var evenColNeighbors = [6]OffsetCoord{
	{Row: -1, Col: 0},
	{Row: -1, Col: 1},
	{Row: 0, Col: 1},
	{Row: 1, Col: 0},
	{Row: 0, Col: -1},
	{Row: -1, Col: -1},
}

var oddColNeighbors = [6]OffsetCoord{
	{Row: -1, Col: 0},
	{Row: 0, Col: 1},
	{Row: 1, Col: 1},
	{Row: 1, Col: 0},
	{Row: 1, Col: -1},
	{Row: 0, Col: -1},
}

// neighborOffsets returns the offset table for the column's parity.
func neighborOffsets(col int) *[6]OffsetCoord {
	if col%2 == 0 {
		return &evenColNeighbors
	}
	return &oddColNeighbors
}

// Neighbors returns the six adjacent coordinates. Some may be off-grid.
func (c OffsetCoord) Neighbors() [6]OffsetCoord {
	var result [6]OffsetCoord
	for i, d := range neighborOffsets(c.Col) {
		result[i] = OffsetCoord{Row: c.Row + d.Row, Col: c.Col + d.Col}
	}
	return result
}

// IsAdjacent reports whether b is one of a's six neighbors.
// The table is chosen by a's column parity; the relation is symmetric
// because even columns reach up-diagonals and odd columns reach down-diagonals.
func IsAdjacent(a, b OffsetCoord) bool {
	if a == b {
		return false
	}
	for _, d := range neighborOffsets(a.Col) {
		if a.Row+d.Row == b.Row && a.Col+d.Col == b.Col {
			return true
		}
	}
	return false
}
