package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvandessel/selfwatch/internal/config"
	"github.com/nvandessel/selfwatch/internal/engine"
	"github.com/nvandessel/selfwatch/internal/host"
	"github.com/nvandessel/selfwatch/internal/logging"
	"github.com/nvandessel/selfwatch/internal/sim"
	"github.com/nvandessel/selfwatch/internal/store"
	"github.com/spf13/cobra"
)

// loadConfig loads the --config file (or the default locations), applies
// --log-level and validates the result.
func loadConfig(cmd *cobra.Command) (*config.SelfwatchConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func engineConfig(cfg *config.SelfwatchConfig) engine.Config {
	ec := engine.DefaultConfig()
	ec.TickRate = cfg.Engine.TickRate
	ec.CycleLength = cfg.Engine.CycleLength
	ec.HistorySize = cfg.Engine.HistorySize
	ec.GridSize = cfg.Engine.GridSize
	return ec
}

// sessionOptions selects what a session records.
type sessionOptions struct {
	// DBPath is the recorder location. Empty disables recording;
	// store.MemoryPath records in memory only.
	DBPath string
	Seed   uint64
	// Source is stored on the run.
	Source string
}

// session is one engine run against the reference simulation.
type session struct {
	cfg      *config.SelfwatchConfig
	logger   *slog.Logger
	events   *logging.EventLogger
	engine   *engine.Engine
	world    *sim.World
	recorder store.Recorder
	run      store.Run
	loop     *host.Loop
}

func openSession(ctx context.Context, cmd *cobra.Command, cfg *config.SelfwatchConfig, opts sessionOptions) (*session, error) {
	s := &session{
		cfg:    cfg,
		logger: logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		events: logging.NewEventLogger(cfg.Logging.Dir, cfg.Logging.Level),
	}
	s.engine = engine.New(engineConfig(cfg), engine.WithLogger(s.logger), engine.WithEvents(s.events))

	seed := cfg.Simulation.Seed
	if opts.Seed != 0 {
		seed = opts.Seed
	}
	s.world = sim.NewWorld(sim.Config{
		Entities: cfg.Simulation.Entities,
		Width:    cfg.Simulation.Width,
		Height:   cfg.Simulation.Height,
		Seed:     seed,
	})

	if opts.DBPath != "" {
		rec, err := store.Open(opts.DBPath)
		if err != nil {
			s.events.Close()
			return nil, fmt.Errorf("failed to open recorder: %w", err)
		}
		run, err := rec.BeginRun(ctx, store.Run{
			Entities: cfg.Simulation.Entities,
			TickRate: cfg.Engine.TickRate,
			Seed:     s.world.Seed(),
			Source:   opts.Source,
		})
		if err != nil {
			rec.Close()
			s.events.Close()
			return nil, fmt.Errorf("failed to begin run: %w", err)
		}
		s.recorder = rec
		s.run = run
	}

	loop, err := host.NewLoop(host.Config{
		Engine:      s.engine,
		World:       s.world,
		Recorder:    s.recorder,
		RunID:       s.run.ID,
		RecordEvery: cfg.Store.RecordEvery,
		Logger:      s.logger,
	})
	if err != nil {
		s.close()
		return nil, err
	}
	s.loop = loop

	s.logger.Info("session started",
		"run", s.run.ID, "entities", s.world.Len(), "seed", s.world.Seed(), "tick_rate", cfg.Engine.TickRate)
	return s, nil
}

// finish marks the run ended without closing the recorder.
func (s *session) finish(ctx context.Context) error {
	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.EndRun(ctx, s.run.ID, s.engine.Tick()); err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}
	return nil
}

func (s *session) close() error {
	defer s.events.Close()
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Close()
}
