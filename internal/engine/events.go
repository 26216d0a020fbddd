package engine

import (
	"sort"
	"time"

	"github.com/talgya/garden-road/internal/agents"
	"github.com/talgya/garden-road/internal/world"
)

// RecentEventLimit is how many consumption events the session keeps.
const RecentEventLimit = 10

// PulseLifetime is how long a building shows its latest sale.
const PulseLifetime = 2 * time.Second

// ConsumptionEvent records one purchase at a building.
type ConsumptionEvent struct {
	BuildingID   string            `json:"building_id"`
	BuildingName string            `json:"building_name"`
	Amount       int64             `json:"amount"`
	Position     world.OffsetCoord `json:"position"`
	Timestamp    time.Time         `json:"timestamp"`
	IsSpecial    bool              `json:"is_special"`
	VisitorID    agents.VisitorID  `json:"visitor_id"`
}

// EventLog keeps the most recent events, oldest first.
type EventLog struct {
	limit  int
	events []ConsumptionEvent
}

// NewEventLog returns a log retaining at most limit events.
func NewEventLog(limit int) *EventLog {
	return &EventLog{limit: limit}
}

// Append adds events and drops the oldest beyond the limit.
func (l *EventLog) Append(events ...ConsumptionEvent) {
	l.events = append(l.events, events...)
	if over := len(l.events) - l.limit; over > 0 {
		l.events = append([]ConsumptionEvent(nil), l.events[over:]...)
	}
}

// Events returns a copy of the retained events, most recent last.
func (l *EventLog) Events() []ConsumptionEvent {
	return append([]ConsumptionEvent(nil), l.events...)
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	return len(l.events)
}

// Clear drops every event.
func (l *EventLog) Clear() {
	l.events = nil
}

// Pulse marks a building that just made a sale.
type Pulse struct {
	Position  world.OffsetCoord `json:"position"`
	Amount    int64             `json:"amount"`
	Timestamp time.Time         `json:"timestamp"`
	IsSpecial bool              `json:"is_special"`
}

// pulseSet holds the latest sale per building cell.
type pulseSet map[world.OffsetCoord]Pulse

func (ps pulseSet) record(e ConsumptionEvent) {
	ps[e.Position] = Pulse{Position: e.Position, Amount: e.Amount, Timestamp: e.Timestamp, IsSpecial: e.IsSpecial}
}

// expire drops pulses older than PulseLifetime.
func (ps pulseSet) expire(now time.Time) {
	for pos, p := range ps {
		if now.Sub(p.Timestamp) > PulseLifetime {
			delete(ps, pos)
		}
	}
}

func (ps pulseSet) list() []Pulse {
	out := make([]Pulse, 0, len(ps))
	for _, p := range ps {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position.Row != out[j].Position.Row {
			return out[i].Position.Row < out[j].Position.Row
		}
		return out[i].Position.Col < out[j].Position.Col
	})
	return out
}
