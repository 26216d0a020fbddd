// Consumption — visitors standing beside buildings decide whether to buy,
// and the garden earns from each purchase.
package engine

import (
	"log/slog"
	"math"
	"time"

	"github.com/talgya/garden-road/internal/agents"
	"github.com/talgya/garden-road/internal/entropy"
	"github.com/talgya/garden-road/internal/world"
)

// Purchase odds. A draw above the threshold succeeds.
const (
	spendThreshold   = 0.3 // 70% chance to buy at a building
	specialThreshold = 0.9 // 10% chance of a special purchase, wealthy only

	minSpecialMultiplier = 2
	maxSpecialMultiplier = 4
)

// ScanResult is what one consumption scan produced.
type ScanResult struct {
	Events   []ConsumptionEvent `json:"events"`
	Earned   int64              `json:"earned"`   // Sum of purchase amounts
	Baseline int64              `json:"baseline"` // Income credited on a scan with no purchases
}

// Total is the coin delta of the scan.
func (r ScanResult) Total() int64 {
	return r.Earned + r.Baseline
}

// Consume runs one scan over visitors walking road on grid.
// Each visitor buys at most once, at the first adjacent building in scan order
// whose roll succeeds. Rolls are drawn in visitor order, then building order.
func Consume(grid *world.Grid, road *world.RoadPath, visitors []*agents.Visitor, rng entropy.Source, now time.Time) ScanResult {
	var res ScanResult

	for _, v := range visitors {
		if v.CoolingDown(now) {
			continue
		}
		at, ok := road.At(v.CellIndex())
		if !ok {
			continue
		}
		if ev, ok := visitorPurchase(grid, at, v, rng, now); ok {
			res.Events = append(res.Events, ev)
			res.Earned += ev.Amount
		}
	}

	if len(res.Events) == 0 {
		res.Baseline = int64(entropy.IntN(rng, len(visitors))) + 1
	}
	return res
}

// visitorPurchase scans buildings next to at and applies the first purchase.
func visitorPurchase(grid *world.Grid, at world.OffsetCoord, v *agents.Visitor, rng entropy.Source, now time.Time) (ConsumptionEvent, bool) {
	for _, cell := range grid.AdjacentItems(at, world.KindBuilding) {
		building := cell.Item
		if building.ID == v.LastSpentBuildingID {
			continue
		}
		if rng.Float64() <= spendThreshold {
			continue
		}

		bonusMult, bonusPrice := npcBonus(grid, cell.Coord)

		special := v.Wealthy() && rng.Float64() > specialThreshold
		specialMult := 1.0
		if special {
			specialMult = float64(minSpecialMultiplier + entropy.IntN(rng, maxSpecialMultiplier-minSpecialMultiplier+1))
		}

		amount := int64(math.Floor(
			(building.Profile.BaseConsumption*bonusMult + bonusPrice) * v.WealthMultiplier() * specialMult,
		))

		v.RecordSpend(building.ID, amount, now)

		slog.Debug("visitor purchase",
			"visitor", v.ID,
			"kind", v.Kind.String(),
			"building", building.ID,
			"at", cell.Coord.String(),
			"amount", amount,
			"special", special,
		)

		return ConsumptionEvent{
			BuildingID:   building.ID,
			BuildingName: building.Name,
			Amount:       amount,
			Position:     cell.Coord,
			Timestamp:    now,
			IsSpecial:    special,
			VisitorID:    v.ID,
		}, true
	}
	return ConsumptionEvent{}, false
}

// npcBonus sums the boosts of NPCs adjacent to a building.
// The multiplier starts at 1.
func npcBonus(grid *world.Grid, building world.OffsetCoord) (mult, price float64) {
	mult = 1
	for _, cell := range grid.AdjacentItems(building, world.KindNPC) {
		mult += cell.Item.Profile.BonusMultiplier
		price += cell.Item.Profile.BonusPrice
	}
	return mult, price
}
