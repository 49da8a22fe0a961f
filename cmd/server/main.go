// Command server runs the authoritative game server: the HTTP API, the
// world tick loop, snapshotting and the leaderboard store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"loothound/internal/api"
	"loothound/internal/app"
	"loothound/internal/config"
	"loothound/internal/records"
	"loothound/internal/state"
)

func main() {
	cmd := &cli.Command{
		Name:  "game_server",
		Usage: "authoritative multiplayer loot-collection game server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "tick-period",
				Usage: "game tick period in milliseconds; omit to expose the test tick endpoint",
			},
			&cli.StringFlag{
				Name:     "config-file",
				Usage:    "path to the game configuration file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "www-root",
				Usage:    "directory with the static frontend files",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "randomize-spawn-points",
				Usage: "spawn dogs at random road positions",
			},
			&cli.StringFlag{
				Name:  "state-file",
				Usage: "path to the world snapshot file",
			},
			&cli.IntFlag{
				Name:  "save-state-period",
				Usage: "snapshot autosave period in milliseconds",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	// A .env file is optional; real environments set variables directly.
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	cfg := config.Load()

	g, err := config.LoadGame(cmd.String("config-file"), cmd.Bool("randomize-spawn-points"))
	if err != nil {
		logger.Error("server exited", zap.Int("code", 1), zap.Error(err))
		return err
	}

	var store app.RecordStore
	if cfg.Server.DatabaseURL != "" {
		pg, err := records.NewPostgres(ctx, cfg.Server.DatabaseURL)
		if err != nil {
			logger.Error("server exited", zap.Int("code", 1), zap.Error(err))
			return err
		}
		defer pg.Close()
		store = pg
	} else {
		logger.Warn("GAME_DB_URL is not set, keeping records in memory")
		store = records.NewMemory()
	}

	application := app.New(g, store, logger)
	application.SetRetireOnDBError(cfg.Game.RetireOnDBError)

	var snapshots *state.Listener
	if stateFile := cmd.String("state-file"); stateFile != "" {
		savePeriod := time.Duration(cmd.Int("save-state-period")) * time.Millisecond
		snapshots = state.NewListener(application, stateFile, savePeriod, logger)
		if err := snapshots.TryLoadState(); err != nil {
			logger.Error("server exited", zap.Int("code", 1), zap.Error(err))
			return fmt.Errorf("restore state: %w", err)
		}
		application.SetListener(snapshots)
	}

	tickPeriod := time.Duration(cmd.Int("tick-period")) * time.Millisecond

	server := api.NewServer(api.ServerConfig{
		App:         application,
		Addr:        cfg.Server.Address,
		ManualTicks: tickPeriod <= 0,
		WWWRoot:     cmd.String("www-root"),
		Logger:      logger,
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	})

	api.StartDebugServer(api.ObservabilityConfig{
		Enabled:    true,
		ListenAddr: cfg.Server.DebugAddr,
	}, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if tickPeriod > 0 {
		go tickLoop(ctx, application, tickPeriod)
	}
	go gaugeLoop(ctx, application)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("server exited", zap.Int("code", 1), zap.Error(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}

	if snapshots != nil {
		snapshots.OnShutdown()
	}

	logger.Info("server exited", zap.Int("code", 0))
	return nil
}

// tickLoop drives the world at a fixed period and records tick timing.
func tickLoop(ctx context.Context, application *app.Application, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now

			started := time.Now()
			application.Tick(delta)
			api.RecordTick(time.Since(started))
		}
	}
}

// gaugeLoop refreshes the population metrics once a second, covering
// manual-tick deployments where no tick loop runs.
func gaugeLoop(ctx context.Context, application *app.Application) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			api.UpdateWorldGauges(application.Stats())
		}
	}
}
