// Demo garden generation using layered simplex noise.
// Buildings land on noise peaks, NPCs gather beside them.
package world

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/garden-road/internal/economy"
)

// GenConfig holds demo layout parameters.
type GenConfig struct {
	Rows      int
	Cols      int
	Seed      int64 // 0 = random
	Buildings int   // Buildings to place
	NPCs      int   // NPCs to place, each beside a building when possible
	MinSpread int   // Minimum column+row distance between buildings
}

// DefaultGenConfig returns a modest garden for the default grid.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Rows:      DefaultRows,
		Cols:      DefaultCols,
		Seed:      0,
		Buildings: 6,
		NPCs:      5,
		MinSpread: 3,
	}
}

// GenerateLayout builds a garden snapshot from catalog items.
func GenerateLayout(cfg GenConfig, catalog *economy.Catalog) Layout {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed + 200))
	noise := opensimplex.NewNormalized(seed)

	type scored struct {
		coord OffsetCoord
		score float64
	}
	candidates := make([]scored, 0, cfg.Rows*cfg.Cols)
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			// Offset hex → cartesian: odd columns sit half a row lower.
			x := float64(c) * 0.75
			y := float64(r)
			if c%2 == 1 {
				y += 0.5
			}
			candidates = append(candidates, scored{
				coord: OffsetCoord{Row: r, Col: c},
				score: octaveNoise(noise, x, y, 3, 0.35, 0.5),
			})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	g := NewGrid(cfg.Rows, cfg.Cols)
	buildingIDs := catalog.BuildingIDs()
	npcIDs := catalog.NPCIDs()

	var placed []OffsetCoord
	for _, cand := range candidates {
		if len(placed) >= cfg.Buildings || len(buildingIDs) == 0 {
			break
		}
		if tooClose(cand.coord, placed, cfg.MinSpread) {
			continue
		}
		entry := catalog.Building(buildingIDs[rng.Intn(len(buildingIDs))])
		g.Place(cand.coord, &PlacedItem{ID: entry.ID, Name: entry.Name, Kind: KindBuilding, Profile: entry.Profile})
		placed = append(placed, cand.coord)
	}

	for i := 0; i < cfg.NPCs && len(npcIDs) > 0 && len(placed) > 0; i++ {
		host := placed[i%len(placed)]
		spot, ok := freeNeighbor(g, host, rng)
		if !ok {
			continue
		}
		entry := catalog.NPC(npcIDs[rng.Intn(len(npcIDs))])
		g.Place(spot, &PlacedItem{ID: entry.ID, Name: entry.Name, Kind: KindNPC, Profile: entry.Profile})
	}

	return g.Layout()
}

// freeNeighbor picks a random empty on-grid neighbor of c.
func freeNeighbor(g *Grid, c OffsetCoord, rng *rand.Rand) (OffsetCoord, bool) {
	neighbors := c.Neighbors()
	rng.Shuffle(len(neighbors), func(i, j int) {
		neighbors[i], neighbors[j] = neighbors[j], neighbors[i]
	})
	for _, n := range neighbors {
		if cell := g.Get(n); cell != nil && cell.Item == nil {
			return n, true
		}
	}
	return OffsetCoord{}, false
}

func tooClose(c OffsetCoord, existing []OffsetCoord, minDist int) bool {
	for _, e := range existing {
		if abs(c.Row-e.Row)+abs(c.Col-e.Col) < minDist {
			return true
		}
	}
	return false
}

// octaveNoise samples multi-octave noise normalized to roughly [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxAmp := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxAmp += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return math.Min(1, total/maxAmp)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
