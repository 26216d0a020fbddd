package world

// MinUsableRoad is the shortest road visitors can walk.
const MinUsableRoad = 2

// RoadPath is a simple path of adjacent cells built one selection at a time.
// Visitors walk it as a loop: the last cell wraps back to the first.
type RoadPath struct {
	grid   *Grid
	coords []OffsetCoord
}

// NewRoadPath returns an empty road on g.
func NewRoadPath(g *Grid) *RoadPath {
	return &RoadPath{grid: g}
}

// Extend appends c to the road. It returns false and changes nothing when c is
// off-grid, already on the road, or not adjacent to the current end.
func (p *RoadPath) Extend(c OffsetCoord) bool {
	if !p.grid.InBounds(c) || p.Contains(c) {
		return false
	}
	if n := len(p.coords); n > 0 && !IsAdjacent(c, p.coords[n-1]) {
		return false
	}

	p.coords = append(p.coords, c)
	cell := p.grid.Get(c)
	cell.IsRoad = true
	cell.IsEnd = true
	if len(p.coords) == 1 {
		// A one-cell road starts and ends on the same cell.
		cell.IsStart = true
	} else if prev := p.grid.Get(p.coords[len(p.coords)-2]); prev != nil {
		prev.IsEnd = false
	}

	p.markValidNext()
	return true
}

// markValidNext flags the empty, non-road cells adjacent to the end.
func (p *RoadPath) markValidNext() {
	end, ok := p.End()
	for _, cell := range p.grid.Cells() {
		cell.IsValidNext = ok && !cell.IsRoad && cell.Item == nil && IsAdjacent(cell.Coord, end)
	}
}

// ValidNext returns the cells currently flagged as valid extensions.
func (p *RoadPath) ValidNext() []OffsetCoord {
	var out []OffsetCoord
	for _, cell := range p.grid.Cells() {
		if cell.IsValidNext {
			out = append(out, cell.Coord)
		}
	}
	return out
}

// Contains reports whether c is already on the road.
func (p *RoadPath) Contains(c OffsetCoord) bool {
	for _, rc := range p.coords {
		if rc == c {
			return true
		}
	}
	return false
}

// Len returns the number of cells on the road.
func (p *RoadPath) Len() int {
	return len(p.coords)
}

// Usable reports whether the road is long enough to simulate.
func (p *RoadPath) Usable() bool {
	return len(p.coords) >= MinUsableRoad
}

// At returns the i-th road cell.
func (p *RoadPath) At(i int) (OffsetCoord, bool) {
	if i < 0 || i >= len(p.coords) {
		return OffsetCoord{}, false
	}
	return p.coords[i], true
}

// Start returns the first road cell.
func (p *RoadPath) Start() (OffsetCoord, bool) {
	return p.At(0)
}

// End returns the last road cell.
func (p *RoadPath) End() (OffsetCoord, bool) {
	return p.At(len(p.coords) - 1)
}

// Coords returns a copy of the road in walking order.
func (p *RoadPath) Coords() []OffsetCoord {
	return append([]OffsetCoord(nil), p.coords...)
}

// Reset empties the road and clears its flags from the grid.
func (p *RoadPath) Reset() {
	p.coords = nil
	p.grid.ClearRoad()
}
