// Simulation ties the garden grid, road, visitors and coin ledger together
// for one session.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/garden-road/internal/agents"
	"github.com/talgya/garden-road/internal/economy"
	"github.com/talgya/garden-road/internal/entropy"
	"github.com/talgya/garden-road/internal/world"
)

// Phase is the session lifecycle state.
type Phase uint8

const (
	PhaseEditing Phase = iota // Road under construction, nothing moves
	PhaseRunning              // Road frozen, visitors walking and spending
)

func (p Phase) String() string {
	if p == PhaseRunning {
		return "running"
	}
	return "editing"
}

// MarshalText renders the phase as its name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Simulation holds the session state. Every exported method takes the lock,
// so the ticking goroutine and API readers never interleave inside an update.
type Simulation struct {
	mu sync.Mutex

	SessionID string
	Grid      *world.Grid
	Road      *world.RoadPath
	Visitors  []*agents.Visitor

	// TotalCoins only grows; it survives resets within the session.
	TotalCoins int64
	Recent     *EventLog
	Stats      SimStats

	phase   Phase
	pulses  pulseSet
	rng     entropy.Source
	spawner *agents.Spawner

	// Now is the clock used for cooldowns and event timestamps.
	Now func() time.Time
}

// SimStats tracks aggregate session statistics.
type SimStats struct {
	Scans         uint64 `json:"scans"`
	Purchases     uint64 `json:"purchases"`
	Specials      uint64 `json:"specials"`
	QuietScans    uint64 `json:"quiet_scans"` // Scans credited with baseline income
	Earned        int64  `json:"earned"`
	BaselineTotal int64  `json:"baseline_total"`
	Runs          uint64 `json:"runs"`
}

// NewSimulation creates a session over grid drawing rolls from rng.
func NewSimulation(grid *world.Grid, rng entropy.Source) *Simulation {
	return &Simulation{
		SessionID: uuid.NewString(),
		Grid:      grid,
		Road:      world.NewRoadPath(grid),
		Recent:    NewEventLog(RecentEventLimit),
		pulses:    make(pulseSet),
		rng:       rng,
		spawner:   agents.NewSpawner(rng),
		Now:       time.Now,
	}
}

// Phase returns the lifecycle state.
func (s *Simulation) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Running reports whether visitors are active.
func (s *Simulation) Running() bool {
	return s.Phase() == PhaseRunning
}

// Coins returns the session coin total.
func (s *Simulation) Coins() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.TotalCoins
}

// RestoreCoins seeds the coin total from a saved session.
func (s *Simulation) RestoreCoins(coins int64) {
	if coins < 0 {
		coins = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalCoins = coins
}

// LoadLayout replaces garden occupancy while editing. The road is cleared
// because its valid-next highlights depend on occupancy.
func (s *Simulation) LoadLayout(l world.Layout, catalog *economy.Catalog) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseEditing {
		return false
	}
	s.Road.Reset()
	placed := s.Grid.LoadLayout(l, catalog)
	slog.Info("garden layout loaded", "items", placed, "grid", s.Grid.String())
	return true
}

// Layout exports the current garden occupancy.
func (s *Simulation) Layout() world.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Grid.Layout()
}

// ExtendRoad adds c to the road while editing.
func (s *Simulation) ExtendRoad(c world.OffsetCoord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseEditing {
		return false
	}
	return s.Road.Extend(c)
}

// Start freezes the road and spawns visitors. It does nothing unless the
// session is editing and the road is usable.
func (s *Simulation) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseEditing || !s.Road.Usable() {
		return false
	}

	// Road editing is over; drop the next-cell highlights.
	for _, cell := range s.Grid.Cells() {
		cell.IsValidNext = false
	}

	s.Visitors = s.spawner.Spawn(s.Road.Len())
	s.phase = PhaseRunning
	s.Stats.Runs++

	wealthy := 0
	for _, v := range s.Visitors {
		if v.Wealthy() {
			wealthy++
		}
	}
	slog.Info("simulation started",
		"session", s.SessionID,
		"road", s.Road.Len(),
		"visitors", len(s.Visitors),
		"wealthy", wealthy,
	)
	return true
}

// Reset returns to editing: road and visitors are cleared, placed items
// stay, and the coin total is kept.
func (s *Simulation) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Road.Reset()
	s.Visitors = nil
	s.Recent.Clear()
	s.pulses = make(pulseSet)
	s.phase = PhaseEditing

	slog.Info("simulation reset",
		"session", s.SessionID,
		"total_coins", humanize.Comma(s.TotalCoins),
	)
}

// Advance moves every visitor dt seconds along the road.
func (s *Simulation) Advance(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRunning {
		return
	}
	n := s.Road.Len()
	for _, v := range s.Visitors {
		v.Advance(dt, n)
	}
}

// Scan runs one consumption scan at now and credits the result.
// It is a no-op while editing.
func (s *Simulation) Scan(now time.Time) ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRunning {
		return ScanResult{}
	}

	res := Consume(s.Grid, s.Road, s.Visitors, s.rng, now)

	s.TotalCoins += res.Total()
	s.Recent.Append(res.Events...)
	for _, e := range res.Events {
		s.pulses.record(e)
		if e.IsSpecial {
			s.Stats.Specials++
		}
	}
	s.pulses.expire(now)

	s.Stats.Scans++
	s.Stats.Purchases += uint64(len(res.Events))
	s.Stats.Earned += res.Earned
	if res.Baseline > 0 {
		s.Stats.QuietScans++
		s.Stats.BaselineTotal += res.Baseline
	}
	return res
}

// RoadView is the road as the editor needs it.
type RoadView struct {
	Cells     []world.OffsetCoord `json:"cells"`
	ValidNext []world.OffsetCoord `json:"valid_next"`
	Usable    bool                `json:"usable"`
}

// RoadView returns the road in walking order with its next-cell candidates.
func (s *Simulation) RoadView() RoadView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RoadView{
		Cells:     s.Road.Coords(),
		ValidNext: s.Road.ValidNext(),
		Usable:    s.Road.Usable(),
	}
}

// VisitorView is a visitor as the renderer needs it.
type VisitorView struct {
	ID       agents.VisitorID   `json:"id"`
	Kind     agents.VisitorKind `json:"kind"`
	Position float64            `json:"position"`  // Continuous road position
	Cell     world.OffsetCoord  `json:"cell"`      // Cell the visitor stands on
	NextCell world.OffsetCoord  `json:"next_cell"` // Cell it walks toward, wrapping
	Progress float64            `json:"progress"`  // Fraction of the way to NextCell
	Coins    float64            `json:"coins"`
}

// Snapshot is a consistent copy of the session for readers.
type Snapshot struct {
	SessionID    string              `json:"session_id"`
	Phase        Phase               `json:"phase"`
	TotalCoins   int64               `json:"total_coins"`
	RecentEvents []ConsumptionEvent  `json:"recent_events"`
	Visitors     []VisitorView       `json:"visitors"`
	Road         []world.OffsetCoord `json:"road"`
	Grid         world.GridView      `json:"grid"`
	Pulses       []Pulse             `json:"pulses"`
	Stats        SimStats            `json:"stats"`
}

// Snapshot copies the session state.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pulses.expire(s.Now())
	return Snapshot{
		SessionID:    s.SessionID,
		Phase:        s.phase,
		TotalCoins:   s.TotalCoins,
		RecentEvents: s.Recent.Events(),
		Visitors:     s.visitorViews(),
		Road:         s.Road.Coords(),
		Grid:         s.Grid.View(),
		Pulses:       s.pulses.list(),
		Stats:        s.Stats,
	}
}

// VisitorViews returns the per-frame visitor placement.
func (s *Simulation) VisitorViews() []VisitorView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visitorViews()
}

func (s *Simulation) visitorViews() []VisitorView {
	n := s.Road.Len()
	views := make([]VisitorView, 0, len(s.Visitors))
	for _, v := range s.Visitors {
		idx := v.CellIndex()
		cell, ok := s.Road.At(idx)
		if !ok {
			continue
		}
		next, _ := s.Road.At((idx + 1) % n)
		views = append(views, VisitorView{
			ID:       v.ID,
			Kind:     v.Kind,
			Position: v.PathPosition,
			Cell:     cell,
			NextCell: next,
			Progress: v.PathPosition - float64(idx),
			Coins:    v.Coins,
		})
	}
	return views
}
