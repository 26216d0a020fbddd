// Package api provides the HTTP API for the garden.
// GET endpoints are public. Road editing and session control are open to
// the player; replacing the garden layout requires the admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/garden-road/internal/economy"
	"github.com/talgya/garden-road/internal/engine"
	"github.com/talgya/garden-road/internal/persistence"
	"github.com/talgya/garden-road/internal/world"
)

// Road edits allowed per client per minute.
const roadEditsPerMinute = 120

// Server serves the garden over HTTP.
type Server struct {
	Sim         *engine.Simulation
	Eng         *engine.Engine
	DB          *persistence.DB // Optional; layout and history endpoints degrade without it
	Catalog     *economy.Catalog
	Hub         *Hub // Optional; /stream is not registered without it
	Port        int
	AdminKey    string   // Bearer token for layout replacement. Empty = disabled.
	CORSOrigins []string // "*" allows any origin

	ctx context.Context
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	roadLimiter := NewRateLimiter(roadEditsPerMinute, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/grid", s.handleGrid)
	mux.HandleFunc("GET /api/v1/visitors", s.handleVisitors)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/road", s.handleRoad)
	mux.HandleFunc("GET /api/v1/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/v1/layout", s.handleLayout)

	mux.HandleFunc("POST /api/v1/road", RateLimitMiddleware(roadLimiter, s.handleExtendRoad))
	mux.HandleFunc("POST /api/v1/start", s.handleStart)
	mux.HandleFunc("POST /api/v1/reset", s.handleReset)
	mux.HandleFunc("POST /api/v1/layout", s.adminOnly(s.handleReplaceLayout))

	if s.Hub != nil {
		mux.HandleFunc("GET /api/v1/stream", s.Hub.ServeWS)
	}

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start serves the API in a goroutine until ctx is done. ctx also bounds the
// engine loop started through POST /api/v1/start.
func (s *Server) Start(ctx context.Context) {
	s.ctx = ctx
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "stream", s.Hub != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

func (s *Server) baseContext() context.Context {
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := OriginAllower(origins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OriginAllower returns the origin check shared by CORS and the websocket
// handshake.
func OriginAllower(origins []string) func(string) bool {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	allowAll := false
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		} else if o != "" {
			allowedOrigins[o] = true
		}
	}
	return func(origin string) bool {
		return allowAll || allowedOrigins[origin]
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no GARDEN_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()

	npcs, buildings := 0, 0
	for _, c := range snap.Grid.Cells {
		switch {
		case c.HasKind(world.KindNPC):
			npcs++
		case c.HasKind(world.KindBuilding):
			buildings++
		}
	}

	status := map[string]any{
		"name":          "Garden Road",
		"session_id":    snap.SessionID,
		"phase":         snap.Phase,
		"ticking":       s.Eng.Ticking(),
		"total_coins":   snap.TotalCoins,
		"coins_display": humanize.Comma(snap.TotalCoins),
		"visitors":      len(snap.Visitors),
		"road_length":   len(snap.Road),
		"npcs":          npcs,
		"buildings":     buildings,
		"pulses":        snap.Pulses,
		"stats":         snap.Stats,
	}
	writeJSON(w, status)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Grid)
}

func (s *Server) handleVisitors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.VisitorViews())
}

// handleEvents returns the session's recent events, oldest first. With
// ?history=1 it reads the saved log instead, newest first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("history") == "" {
		writeJSON(w, s.Sim.Snapshot().RecentEvents)
		return
	}
	if s.DB == nil {
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	events, err := s.DB.RecentEvents(limit)
	if err != nil {
		slog.Error("load event history", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleRoad(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.RoadView())
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Catalog)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Layout())
}

// handleExtendRoad appends one cell. A rejected cell is not an error: the
// response reports accepted=false with the unchanged road.
func (s *Server) handleExtendRoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	// A missing field would otherwise decode as 0 and extend at row/col 0.
	if req.Row == nil || req.Col == nil {
		http.Error(w, "row and col are required", http.StatusBadRequest)
		return
	}

	cell := world.OffsetCoord{Row: *req.Row, Col: *req.Col}
	accepted := s.Sim.ExtendRoad(cell)
	if accepted {
		slog.Debug("road extended", "cell", cell.String())
	}
	writeJSON(w, map[string]any{
		"accepted": accepted,
		"road":     s.Sim.RoadView(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	started := s.Eng.Start(s.baseContext())
	if started && s.Hub != nil {
		s.Hub.Publish(MsgPhase, map[string]any{"phase": engine.PhaseRunning, "visitors": s.Sim.VisitorViews()})
	}
	writeJSON(w, map[string]any{
		"started": started,
		"phase":   s.Sim.Phase(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Eng.Reset()
	if s.DB != nil {
		if err := s.DB.SaveCoins(s.Sim.Coins()); err != nil {
			slog.Error("save coins on reset", "error", err)
		}
	}
	if s.Hub != nil {
		s.Hub.Publish(MsgPhase, map[string]any{"phase": engine.PhaseEditing})
	}
	writeJSON(w, map[string]any{
		"phase":       s.Sim.Phase(),
		"total_coins": s.Sim.Coins(),
	})
}

// handleReplaceLayout swaps the garden occupancy while editing and saves it.
func (s *Server) handleReplaceLayout(w http.ResponseWriter, r *http.Request) {
	var l world.Layout
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if !s.Sim.LoadLayout(l, s.Catalog) {
		http.Error(w, "layout can only change while editing", http.StatusConflict)
		return
	}
	if s.DB != nil {
		if err := s.DB.SaveLayout(s.Sim.Layout()); err != nil {
			slog.Error("save layout", "error", err)
			http.Error(w, "layout applied but not saved", http.StatusInternalServerError)
			return
		}
	}
	grid := s.Sim.Snapshot().Grid
	if s.Hub != nil {
		s.Hub.Publish(MsgLayout, grid)
	}
	writeJSON(w, grid)
}

// PublishScan streams a finished scan with the new coin total.
func (s *Server) PublishScan(res engine.ScanResult) {
	if s.Hub == nil {
		return
	}
	s.Hub.Publish(MsgScan, map[string]any{
		"events":      res.Events,
		"earned":      res.Earned,
		"baseline":    res.Baseline,
		"total_coins": s.Sim.Coins(),
	})
}

// PublishFrame streams current visitor positions.
func (s *Server) PublishFrame() {
	if s.Hub == nil {
		return
	}
	s.Hub.Publish(MsgFrame, s.Sim.VisitorViews())
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
