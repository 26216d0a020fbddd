// Package agents provides the visitors who walk the garden road and spend
// at the buildings they pass.
package agents

import (
	"fmt"
	"time"
)

// VisitorID is a unique identifier for a visitor within a session.
type VisitorID uint64

// VisitorKind determines spend multiplier, endowment and special purchases.
type VisitorKind uint8

const (
	KindNormal  VisitorKind = 0
	KindWealthy VisitorKind = 1
)

func (k VisitorKind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindWealthy:
		return "wealthy"
	}
	return fmt.Sprintf("VisitorKind(%d)", uint8(k))
}

// MarshalText renders the kind as its name in JSON.
func (k VisitorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *VisitorKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal":
		*k = KindNormal
	case "wealthy":
		*k = KindWealthy
	default:
		return fmt.Errorf("unknown visitor kind %q", text)
	}
	return nil
}

// DefaultSpendCooldown is the minimum gap between two purchases by one visitor.
const DefaultSpendCooldown = 5 * time.Second

// Visitor walks the road loop and spends at adjacent buildings.
type Visitor struct {
	ID   VisitorID   `json:"id"`
	Kind VisitorKind `json:"kind"`

	// Movement
	PathPosition float64 `json:"path_position"` // floor indexes the road
	Speed        float64 `json:"speed"`         // Road cells per second

	// Spending
	Coins               float64       `json:"coins"` // Wealthy visitors pay half-amounts, so fractional
	LastSpentBuildingID string        `json:"last_spent_building_id,omitempty"`
	LastSpendAt         time.Time     `json:"last_spend_at,omitempty"`
	SpendCooldown       time.Duration `json:"spend_cooldown"`
}

// Wealthy reports whether the visitor is a wealthy one.
func (v *Visitor) Wealthy() bool {
	return v.Kind == KindWealthy
}

// WealthMultiplier is 2 for wealthy visitors, 1 otherwise.
func (v *Visitor) WealthMultiplier() float64 {
	if v.Wealthy() {
		return 2
	}
	return 1
}

// CoolingDown reports whether the last purchase is too recent to buy again.
// A visitor who never spent is never cooling down.
func (v *Visitor) CoolingDown(now time.Time) bool {
	if v.LastSpendAt.IsZero() {
		return false
	}
	return now.Sub(v.LastSpendAt) < v.SpendCooldown
}

// CellIndex returns the road index the visitor stands on.
func (v *Visitor) CellIndex() int {
	return int(v.PathPosition)
}

// Advance moves the visitor dt seconds along a loop of pathLen cells.
// Reaching or passing the end wraps to the start rather than carrying over.
func (v *Visitor) Advance(dt float64, pathLen int) {
	if pathLen <= 0 || dt <= 0 {
		return
	}
	v.PathPosition += v.Speed * dt
	if v.PathPosition >= float64(pathLen) {
		v.PathPosition = 0
	}
}

// RecordSpend applies a purchase of amount at buildingID.
// Wealthy visitors keep what is left after paying half the amount;
// normal visitors empty their purse whatever the amount.
func (v *Visitor) RecordSpend(buildingID string, amount int64, now time.Time) {
	v.LastSpentBuildingID = buildingID
	v.LastSpendAt = now
	if v.Wealthy() {
		v.Coins -= float64(amount) / 2
		if v.Coins < 0 {
			v.Coins = 0
		}
		return
	}
	v.Coins = 0
}
