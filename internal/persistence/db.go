// Package persistence provides SQLite-based garden state storage.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/garden-road/internal/agents"
	"github.com/talgya/garden-road/internal/engine"
	"github.com/talgya/garden-road/internal/world"
)

// Metadata keys besides world.LayoutKey.
const (
	KeyTotalCoins = "total_coins"
	KeySessionID  = "session_id"
)

// ErrNotFound is returned when a metadata key has never been saved.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for garden persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS garden_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS consumption_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		building_id TEXT NOT NULL,
		building_name TEXT NOT NULL,
		amount INTEGER NOT NULL,
		pos_row INTEGER NOT NULL,
		pos_col INTEGER NOT NULL,
		is_special INTEGER NOT NULL,
		visitor_id INTEGER NOT NULL,
		at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON consumption_events(session_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMeta stores a key-value pair in garden metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO garden_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. A missing key yields ErrNotFound.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM garden_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %q: %w", key, ErrNotFound)
	}
	return value, err
}

// SaveLayout stores the garden snapshot under world.LayoutKey.
func (db *DB) SaveLayout(l world.Layout) error {
	data, err := l.Marshal()
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	return db.SaveMeta(world.LayoutKey, string(data))
}

// LoadLayout reads the saved garden snapshot. It returns ErrNotFound when
// nothing was saved and a parse error when the stored value is malformed.
func (db *DB) LoadLayout() (world.Layout, error) {
	raw, err := db.GetMeta(world.LayoutKey)
	if err != nil {
		return nil, err
	}
	return world.ParseLayout([]byte(raw))
}

// SaveCoins stores the session coin total.
func (db *DB) SaveCoins(coins int64) error {
	return db.SaveMeta(KeyTotalCoins, strconv.FormatInt(coins, 10))
}

// LoadCoins reads the saved coin total, or 0 if none was saved.
func (db *DB) LoadCoins() (int64, error) {
	raw, err := db.GetMeta(KeyTotalCoins)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	coins, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", KeyTotalCoins, err)
	}
	return coins, nil
}

// SaveEvents appends consumption events for a session.
func (db *DB) SaveEvents(sessionID string, events []engine.ConsumptionEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO consumption_events
		(session_id, building_id, building_name, amount, pos_row, pos_col,
		 is_special, visitor_id, at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		special := 0
		if e.IsSpecial {
			special = 1
		}
		_, err := stmt.Exec(
			sessionID, e.BuildingID, e.BuildingName, e.Amount,
			e.Position.Row, e.Position.Col, special,
			uint64(e.VisitorID), e.Timestamp.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert event at %s: %w", e.Position, err)
		}
	}

	return tx.Commit()
}

type eventRow struct {
	BuildingID   string `db:"building_id"`
	BuildingName string `db:"building_name"`
	Amount       int64  `db:"amount"`
	Row          int    `db:"pos_row"`
	Col          int    `db:"pos_col"`
	IsSpecial    bool   `db:"is_special"`
	VisitorID    uint64 `db:"visitor_id"`
	AtMs         int64  `db:"at_ms"`
}

// RecentEvents returns the most recent events across sessions, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.ConsumptionEvent, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		`SELECT building_id, building_name, amount, pos_row, pos_col,
			is_special, visitor_id, at_ms
		FROM consumption_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}

	events := make([]engine.ConsumptionEvent, len(rows))
	for i, r := range rows {
		events[i] = engine.ConsumptionEvent{
			BuildingID:   r.BuildingID,
			BuildingName: r.BuildingName,
			Amount:       r.Amount,
			Position:     world.OffsetCoord{Row: r.Row, Col: r.Col},
			Timestamp:    time.UnixMilli(r.AtMs),
			IsSpecial:    r.IsSpecial,
			VisitorID:    agents.VisitorID(r.VisitorID),
		}
	}
	return events, nil
}

// SaveSession performs a full save of the session: layout, coins and id.
// Events are appended per scan by SaveEvents, not here.
func (db *DB) SaveSession(sim *engine.Simulation) error {
	coins := sim.Coins()
	slog.Info("saving garden state", "session", sim.SessionID, "total_coins", humanize.Comma(coins))

	if err := db.SaveLayout(sim.Layout()); err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	if err := db.SaveCoins(coins); err != nil {
		return fmt.Errorf("save coins: %w", err)
	}
	if err := db.SaveMeta(KeySessionID, sim.SessionID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("garden state saved")
	return nil
}
