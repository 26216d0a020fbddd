package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/garden-road/internal/agents"
	"github.com/talgya/garden-road/internal/economy"
	"github.com/talgya/garden-road/internal/entropy"
	"github.com/talgya/garden-road/internal/world"
)

// newTestSimulation returns a session with a tea house and a fixed clock.
func newTestSimulation(t *testing.T, rng entropy.Source) *Simulation {
	t.Helper()
	g := world.NewGrid(world.DefaultRows, world.DefaultCols)
	g.Place(teaHouse, building("building-1", "茶艺馆", 8, 12))
	g.Place(stage, building("building-2", "戏曲舞台", 15, 20))
	sim := NewSimulation(g, rng)
	sim.Now = func() time.Time { return scanTime }
	return sim
}

func testCatalog() *economy.Catalog {
	return economy.DefaultCatalog()
}

func startedSimulation(t *testing.T, rng entropy.Source) *Simulation {
	t.Helper()
	sim := newTestSimulation(t, rng)
	require.True(t, sim.ExtendRoad(roadA))
	require.True(t, sim.ExtendRoad(roadB))
	require.True(t, sim.Start())
	return sim
}

func TestStartNeedsUsableRoad(t *testing.T) {
	sim := newTestSimulation(t, entropy.NewSeeded(1))
	assert.False(t, sim.Start(), "empty road")

	require.True(t, sim.ExtendRoad(roadA))
	assert.False(t, sim.Start(), "single cell road")
	assert.Equal(t, PhaseEditing, sim.Phase())
	assert.Empty(t, sim.Visitors)

	require.True(t, sim.ExtendRoad(roadB))
	assert.True(t, sim.Start())
	assert.True(t, sim.Running())
	assert.GreaterOrEqual(t, len(sim.Visitors), agents.MinVisitors)
	assert.LessOrEqual(t, len(sim.Visitors), agents.MaxVisitors)

	assert.False(t, sim.Start(), "already running")
	assert.False(t, sim.ExtendRoad(world.OffsetCoord{Row: 3, Col: 5}), "road frozen while running")
	assert.Empty(t, sim.Road.ValidNext(), "highlights dropped on start")
}

func TestScanWhileEditingIsNoop(t *testing.T) {
	seq := &entropy.Sequence{Fallback: 0.5}
	sim := newTestSimulation(t, seq)

	res := sim.Scan(scanTime)
	assert.Equal(t, ScanResult{}, res)
	assert.Equal(t, int64(0), sim.Coins())
	assert.Equal(t, 0, seq.Drawn())

	sim.Advance(10)
	assert.Empty(t, sim.VisitorViews())
}

func TestScanCreditsCoinsAndEvents(t *testing.T) {
	sim := startedSimulation(t, entropy.NewSeeded(1))
	sim.Visitors = []*agents.Visitor{visitorAt(agents.KindNormal, 0, 5)}
	sim.rng = &entropy.Sequence{Values: []float64{0.5}}

	res := sim.Scan(scanTime)

	require.Len(t, res.Events, 1)
	assert.Equal(t, int64(8), sim.Coins())
	assert.Equal(t, 1, sim.Recent.Len())
	assert.Equal(t, uint64(1), sim.Stats.Purchases)
	assert.Equal(t, int64(8), sim.Stats.Earned)

	snap := sim.Snapshot()
	require.Len(t, snap.Pulses, 1)
	assert.Equal(t, teaHouse, snap.Pulses[0].Position)
}

func TestScanBaselineIncome(t *testing.T) {
	sim := startedSimulation(t, entropy.NewSeeded(1))
	v := visitorAt(agents.KindNormal, 0, 5)
	v.LastSpendAt = scanTime // cooling down
	sim.Visitors = []*agents.Visitor{v, visitorAt(agents.KindNormal, 1, 5), visitorAt(agents.KindNormal, 1, 5)}
	sim.Visitors[1].LastSpendAt = scanTime
	sim.Visitors[2].LastSpendAt = scanTime
	sim.rng = &entropy.Sequence{Values: []float64{0.99}} // floor(0.99*3)+1

	res := sim.Scan(scanTime)
	assert.Empty(t, res.Events)
	assert.Equal(t, int64(3), res.Baseline)
	assert.Equal(t, int64(3), sim.Coins())
	assert.Equal(t, uint64(1), sim.Stats.QuietScans)
}

func TestRecentEventsBounded(t *testing.T) {
	sim := startedSimulation(t, entropy.NewSeeded(1))
	sim.Visitors = []*agents.Visitor{visitorAt(agents.KindNormal, 0, 5)}
	sim.rng = &entropy.Sequence{Fallback: 0.5}

	for i := 0; i < 12; i++ {
		res := sim.Scan(scanTime.Add(time.Duration(i) * 5 * time.Second))
		require.Len(t, res.Events, 1, "scan %d", i)
	}

	events := sim.Snapshot().RecentEvents
	require.Len(t, events, RecentEventLimit)
	assert.Equal(t, scanTime.Add(10*time.Second), events[0].Timestamp, "two oldest dropped")
	for i := 1; i < len(events); i++ {
		assert.True(t, events[i].Timestamp.After(events[i-1].Timestamp))
	}
	// Alternating tea house (8) and stage (15): 6 of each.
	assert.Equal(t, int64(6*8+6*15), sim.Coins())
}

func TestResetRetainsCoins(t *testing.T) {
	sim := startedSimulation(t, entropy.NewSeeded(1))
	sim.Visitors = []*agents.Visitor{visitorAt(agents.KindNormal, 0, 5)}
	sim.rng = &entropy.Sequence{Values: []float64{0.5}}
	sim.Scan(scanTime)
	before := sim.Coins()
	require.Positive(t, before)

	sim.Reset()

	assert.Equal(t, before, sim.Coins())
	assert.Equal(t, PhaseEditing, sim.Phase())
	assert.Empty(t, sim.Visitors)
	assert.Equal(t, 0, sim.Road.Len())
	assert.Equal(t, 0, sim.Recent.Len())
	for _, cell := range sim.Grid.Cells() {
		assert.False(t, cell.IsRoad || cell.IsStart || cell.IsEnd || cell.IsValidNext)
	}
	assert.Equal(t, "building-1", sim.Grid.Get(teaHouse).Item.ID)
	assert.Equal(t, "building-2", sim.Grid.Get(stage).Item.ID)

	// A fresh road can be built and started again.
	require.True(t, sim.ExtendRoad(roadB))
	require.True(t, sim.ExtendRoad(roadA))
	assert.True(t, sim.Start())
	assert.Equal(t, uint64(2), sim.Stats.Runs)
}

func TestAdvanceAndVisitorViews(t *testing.T) {
	sim := startedSimulation(t, entropy.NewSeeded(1))
	sim.Visitors = []*agents.Visitor{visitorAt(agents.KindWealthy, 1.5, 30)}

	views := sim.VisitorViews()
	require.Len(t, views, 1)
	assert.Equal(t, roadB, views[0].Cell)
	assert.Equal(t, roadA, views[0].NextCell, "last cell walks back to the start")
	assert.InDelta(t, 0.5, views[0].Progress, 1e-9)
	assert.Equal(t, agents.KindWealthy, views[0].Kind)

	sim.Advance(5) // 1.5 + 0.2*5 = 2.5 ≥ 2 → wraps
	assert.Equal(t, 0.0, sim.Visitors[0].PathPosition)
}

func TestLoadLayoutOnlyWhileEditing(t *testing.T) {
	sim := newTestSimulation(t, entropy.NewSeeded(1))
	require.True(t, sim.ExtendRoad(roadA))

	l := world.Layout{{{Content: &world.LayoutItem{ID: "npc-1", Type: "npc"}}}}
	assert.True(t, sim.LoadLayout(l, testCatalog()))
	assert.Equal(t, 0, sim.Road.Len(), "road cleared with the layout")
	assert.Nil(t, sim.Grid.Get(teaHouse).Item)
	assert.Equal(t, world.KindNPC, sim.Grid.Get(world.OffsetCoord{}).Item.Kind)

	require.True(t, sim.ExtendRoad(roadA))
	require.True(t, sim.ExtendRoad(roadB))
	require.True(t, sim.Start())
	assert.False(t, sim.LoadLayout(l, testCatalog()))
}

func TestRestoreCoins(t *testing.T) {
	sim := newTestSimulation(t, entropy.NewSeeded(1))
	sim.RestoreCoins(120)
	assert.Equal(t, int64(120), sim.Coins())
	sim.RestoreCoins(-4)
	assert.Equal(t, int64(0), sim.Coins())
	assert.NotEmpty(t, sim.SessionID)
}

func TestEngineTicksAndStopsCleanly(t *testing.T) {
	sim := newTestSimulation(t, entropy.NewSeeded(5))
	require.True(t, sim.ExtendRoad(roadA))
	require.True(t, sim.ExtendRoad(roadB))

	eng := NewEngine(sim)
	eng.FrameInterval = 2 * time.Millisecond
	eng.ScanInterval = 10 * time.Millisecond

	var frames, scans atomic.Int64
	scanned := make(chan struct{}, 1)
	eng.OnFrame = func(dt float64) { frames.Add(1) }
	eng.OnScan = func(res ScanResult) {
		scans.Add(1)
		select {
		case scanned <- struct{}{}:
		default:
		}
	}

	require.True(t, eng.Start(context.Background()))
	assert.True(t, eng.Ticking())
	assert.False(t, eng.Start(context.Background()), "already ticking")

	select {
	case <-scanned:
	case <-time.After(2 * time.Second):
		t.Fatal("no scan within 2s")
	}
	assert.Positive(t, sim.Coins(), "every scan earns purchases or baseline income")

	eng.Reset()
	assert.False(t, eng.Ticking())
	assert.Equal(t, PhaseEditing, sim.Phase())
	assert.Empty(t, sim.Visitors)

	f, s := frames.Load(), scans.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, f, frames.Load(), "no frames after reset")
	assert.Equal(t, s, scans.Load(), "no scans after reset")
}

func TestEngineStartRequiresRoad(t *testing.T) {
	eng := NewEngine(newTestSimulation(t, entropy.NewSeeded(1)))
	assert.False(t, eng.Start(context.Background()))
	assert.False(t, eng.Ticking())
	eng.Stop()
	eng.Reset()
}

func TestEngineStopKeepsState(t *testing.T) {
	sim := startedSimulationForEngine(t)
	eng := NewEngine(sim)
	eng.ScanInterval = time.Hour
	eng.FrameInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, eng.Start(ctx))
	cancel() // parent cancellation ends the loop
	eng.Stop()

	assert.False(t, eng.Ticking())
	assert.True(t, sim.Running(), "Stop leaves the session intact for saving")
}

func TestEngineResumesAfterStop(t *testing.T) {
	sim := startedSimulationForEngine(t)
	eng := NewEngine(sim)
	eng.ScanInterval = time.Hour
	eng.FrameInterval = time.Hour
	t.Cleanup(eng.Stop)

	require.True(t, eng.Start(context.Background()))
	visitors := sim.VisitorViews()
	eng.Stop()
	require.False(t, eng.Ticking())
	require.True(t, sim.Running())

	require.True(t, eng.Start(context.Background()), "a stopped run resumes")
	assert.True(t, eng.Ticking())
	assert.Equal(t, visitors, sim.VisitorViews(), "resuming does not respawn visitors")
	assert.EqualValues(t, 1, sim.Snapshot().Stats.Runs)

	eng.Reset()
	assert.False(t, eng.Ticking())
	assert.False(t, sim.Running())
}

func TestEngineNotTickingAfterParentCancel(t *testing.T) {
	sim := startedSimulationForEngine(t)
	eng := NewEngine(sim)
	eng.ScanInterval = time.Hour
	eng.FrameInterval = time.Hour
	t.Cleanup(eng.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, eng.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !eng.Ticking() }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, sim.Running())
	assert.True(t, eng.Start(context.Background()), "the run resumes under a fresh context")
	assert.True(t, eng.Ticking())
}

func startedSimulationForEngine(t *testing.T) *Simulation {
	t.Helper()
	sim := newTestSimulation(t, entropy.NewSeeded(9))
	require.True(t, sim.ExtendRoad(roadA))
	require.True(t, sim.ExtendRoad(roadB))
	return sim
}
