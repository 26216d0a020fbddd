// Visitor spawning — creates the batch that walks the road when the
// simulation starts.
package agents

import (
	"github.com/talgya/garden-road/internal/entropy"
)

// Spawn ranges.
const (
	MinVisitors = 3
	MaxVisitors = 7

	WealthyChance = 0.3

	MinSpeed = 0.1
	MaxSpeed = 0.4

	WealthyMinCoins = 20
	WealthyMaxCoins = 50 // exclusive
	NormalMinCoins  = 1
	NormalMaxCoins  = 11 // exclusive
)

// Spawner creates visitors for the simulation.
type Spawner struct {
	rng    entropy.Source
	nextID VisitorID
}

// NewSpawner creates a visitor spawner drawing from rng.
func NewSpawner(rng entropy.Source) *Spawner {
	return &Spawner{rng: rng, nextID: 1}
}

// Spawn creates a batch of MinVisitors–MaxVisitors visitors spread over a road of pathLen cells.
func (s *Spawner) Spawn(pathLen int) []*Visitor {
	if pathLen <= 0 {
		return nil
	}
	count := MinVisitors + entropy.IntN(s.rng, MaxVisitors-MinVisitors+1)
	visitors := make([]*Visitor, 0, count)
	for i := 0; i < count; i++ {
		visitors = append(visitors, s.spawnOne(pathLen))
	}
	return visitors
}

func (s *Spawner) spawnOne(pathLen int) *Visitor {
	id := s.nextID
	s.nextID++

	kind := KindNormal
	if s.rng.Float64() > 1-WealthyChance {
		kind = KindWealthy
	}

	pos := s.rng.Float64() * float64(pathLen)
	speed := entropy.Between(s.rng, MinSpeed, MaxSpeed)

	var coins int
	if kind == KindWealthy {
		coins = WealthyMinCoins + entropy.IntN(s.rng, WealthyMaxCoins-WealthyMinCoins)
	} else {
		coins = NormalMinCoins + entropy.IntN(s.rng, NormalMaxCoins-NormalMinCoins)
	}

	return &Visitor{
		ID:            id,
		Kind:          kind,
		PathPosition:  pos,
		Speed:         speed,
		Coins:         float64(coins),
		SpendCooldown: DefaultSpendCooldown,
	}
}
