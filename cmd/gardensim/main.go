// Command gardensim runs the garden road simulation and its HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/garden-road/internal/api"
	"github.com/talgya/garden-road/internal/config"
	"github.com/talgya/garden-road/internal/economy"
	"github.com/talgya/garden-road/internal/engine"
	"github.com/talgya/garden-road/internal/entropy"
	"github.com/talgya/garden-road/internal/persistence"
	"github.com/talgya/garden-road/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// ── Catalog ───────────────────────────────────────────────────────
	catalog := economy.DefaultCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = economy.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("catalog ready", "buildings", len(catalog.Buildings), "npcs", len(catalog.NPCs))

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Randomness ────────────────────────────────────────────────────
	var rng entropy.Source = entropy.Crypto{}
	switch rorg := entropy.NewClient(cfg.RandomOrgKey); {
	case cfg.Seed != 0:
		rng = entropy.NewSeeded(cfg.Seed)
		slog.Info("using seeded randomness", "seed", cfg.Seed)
	case rorg.Enabled():
		rng = rorg
		slog.Info("random.org entropy enabled")
	default:
		slog.Info("using crypto/rand entropy")
	}

	// ── Garden ────────────────────────────────────────────────────────
	grid := world.NewGrid(cfg.Rows, cfg.Cols)
	layout, err := db.LoadLayout()
	switch {
	case err == nil:
		slog.Info("found saved garden layout")
	case errors.Is(err, persistence.ErrNotFound) && cfg.DemoLayout:
		gen := world.DefaultGenConfig()
		gen.Rows, gen.Cols, gen.Seed = cfg.Rows, cfg.Cols, cfg.Seed
		layout = world.GenerateLayout(gen, catalog)
		slog.Info("no saved layout, generated demo garden", "seed", gen.Seed)
	case errors.Is(err, persistence.ErrNotFound):
		slog.Info("no saved layout, starting with an empty garden")
	default:
		slog.Warn("saved layout unreadable, starting with an empty garden", "error", err)
		layout = nil
	}
	grid.LoadLayout(layout, catalog)

	sim := engine.NewSimulation(grid, rng)
	coins, err := db.LoadCoins()
	if err != nil {
		slog.Warn("saved coin total unreadable, starting at zero", "error", err)
	}
	sim.RestoreCoins(coins)

	if err := db.SaveSession(sim); err != nil {
		slog.Error("initial save failed", "error", err)
	}
	slog.Info("garden ready", "grid", grid.String(), "total_coins", humanize.Comma(sim.Coins()))

	// ── Engine + API ──────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := api.NewHub(api.OriginAllower(cfg.CORSOrigins))
	go hub.Run(ctx)

	eng := engine.NewEngine(sim)
	eng.FrameInterval = cfg.FrameInterval
	eng.ScanInterval = cfg.ScanInterval

	if cfg.AdminKey == "" {
		slog.Warn("GARDEN_ADMIN_KEY not set, layout replacement is disabled")
	}
	apiServer := &api.Server{
		Sim:         sim,
		Eng:         eng,
		DB:          db,
		Catalog:     catalog,
		Hub:         hub,
		Port:        cfg.Port,
		AdminKey:    cfg.AdminKey,
		CORSOrigins: cfg.CORSOrigins,
	}

	// Persist every scan's events and the running total as they happen.
	eng.OnScan = func(res engine.ScanResult) {
		if err := db.SaveEvents(sim.SessionID, res.Events); err != nil {
			slog.Error("save events failed", "error", err)
		}
		if res.Total() > 0 {
			if err := db.SaveCoins(sim.Coins()); err != nil {
				slog.Error("save coins failed", "error", err)
			}
		}
		apiServer.PublishScan(res)
	}
	eng.OnFrame = func(float64) { apiServer.PublishFrame() }

	apiServer.Start(ctx)

	fmt.Printf("\nGarden road is open: %s, %s coins banked.\n", grid.String(), humanize.Comma(sim.Coins()))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Println("Build a road with POST /api/v1/road, then POST /api/v1/start. (Ctrl+C to stop)")

	<-ctx.Done()
	slog.Info("received signal, shutting down")
	eng.Stop()

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveSession(sim); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Garden stopped. State saved.")
}
