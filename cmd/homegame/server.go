package main

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"homegame/cmd/homegame/shared"
	"homegame/internal/registry"
	"homegame/internal/server"
	"homegame/internal/store"
)

// ServerCmd runs the WebSocket server
type ServerCmd struct {
	Config string `kong:"default='homegame.hcl',help='Path to HCL config file'"`
	Addr   string `kong:"help='Listen address, overrides the config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *ServerCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !c.Debug {
		logger = shared.ParseLevel(logger, cfg.Server.LogLevel)
	}

	addr := cfg.ServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	clock := quartz.NewReal()

	st := store.New(cfg.Store.Path, logger, clock)
	reg := registry.New(logger, clock, cfg.GameConfig(), nil)

	snaps, err := st.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("could not load saved games, starting fresh")
	} else if len(snaps) > 0 {
		reg.Restore(snaps)
	}

	srv := server.NewServer(addr, logger)
	service := server.NewService(logger, reg, st, clock, srv)
	srv.SetService(service)

	logger.Info().
		Str("address", addr).
		Int("small_blind", cfg.Game.SmallBlind).
		Int("big_blind", cfg.Game.BigBlind).
		Int("starting_chips", cfg.Game.StartingChips).
		Int("max_players", cfg.Game.MaxPlayers).
		Str("snapshot_path", cfg.Store.Path).
		Msg("Starting homegame server")

	ctx := shared.SetupSignalHandlerWithLogger(logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		// Performs a final save when the context is cancelled, so a SIGTERM
		// never loses game state.
		st.RunAutosave(ctx, cfg.SaveInterval(), reg.Snapshots)
		return nil
	})
	g.Go(func() error {
		reg.RunSweeper(ctx, cfg.SweepInterval())
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	return g.Wait()
}
