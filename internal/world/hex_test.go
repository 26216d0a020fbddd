package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAdjacentTables(t *testing.T) {
	tests := []struct {
		name string
		a, b OffsetCoord
		want bool
	}{
		{"same cell", OffsetCoord{3, 4}, OffsetCoord{3, 4}, false},
		{"even top", OffsetCoord{3, 4}, OffsetCoord{2, 4}, true},
		{"even top right", OffsetCoord{3, 4}, OffsetCoord{2, 5}, true},
		{"even right", OffsetCoord{3, 4}, OffsetCoord{3, 5}, true},
		{"even bottom", OffsetCoord{3, 4}, OffsetCoord{4, 4}, true},
		{"even left", OffsetCoord{3, 4}, OffsetCoord{3, 3}, true},
		{"even top left", OffsetCoord{3, 4}, OffsetCoord{2, 3}, true},
		{"even bottom right is not", OffsetCoord{3, 4}, OffsetCoord{4, 5}, false},
		{"even bottom left is not", OffsetCoord{3, 4}, OffsetCoord{4, 3}, false},
		{"odd top", OffsetCoord{3, 5}, OffsetCoord{2, 5}, true},
		{"odd right", OffsetCoord{3, 5}, OffsetCoord{3, 6}, true},
		{"odd bottom right", OffsetCoord{3, 5}, OffsetCoord{4, 6}, true},
		{"odd bottom", OffsetCoord{3, 5}, OffsetCoord{4, 5}, true},
		{"odd bottom left", OffsetCoord{3, 5}, OffsetCoord{4, 4}, true},
		{"odd left", OffsetCoord{3, 5}, OffsetCoord{3, 4}, true},
		{"odd top right is not", OffsetCoord{3, 5}, OffsetCoord{2, 6}, false},
		{"two apart", OffsetCoord{0, 0}, OffsetCoord{0, 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAdjacent(tt.a, tt.b))
		})
	}
}

// Every pair on the default grid, plus a one-cell margin, must agree in both directions.
func TestIsAdjacentSymmetric(t *testing.T) {
	var coords []OffsetCoord
	for r := -1; r <= DefaultRows; r++ {
		for c := -1; c <= DefaultCols; c++ {
			coords = append(coords, OffsetCoord{Row: r, Col: c})
		}
	}
	for _, a := range coords {
		for _, b := range coords {
			if IsAdjacent(a, b) != IsAdjacent(b, a) {
				t.Fatalf("asymmetric adjacency: %v -> %v = %v, reverse = %v",
					a, b, IsAdjacent(a, b), IsAdjacent(b, a))
			}
		}
	}
}

func TestNeighborsMatchIsAdjacent(t *testing.T) {
	for _, c := range []OffsetCoord{{2, 2}, {2, 3}, {0, 0}, {7, 14}} {
		count := 0
		for _, n := range c.Neighbors() {
			assert.True(t, IsAdjacent(c, n), "%v should neighbor %v", c, n)
			count++
		}
		assert.Equal(t, 6, count)
	}
}

func TestCoordFormatting(t *testing.T) {
	c := OffsetCoord{Row: 2, Col: 11}
	assert.Equal(t, "(2,11)", c.String())
	assert.Equal(t, "2-11", c.Key())
}
