package host

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/selfwatch/internal/engine"
	"github.com/nvandessel/selfwatch/internal/logging"
	"github.com/nvandessel/selfwatch/internal/sim"
	"github.com/nvandessel/selfwatch/internal/spatial"
	"github.com/nvandessel/selfwatch/internal/store"
)

// Config wires a Loop.
type Config struct {
	Engine    *engine.Engine
	World     *sim.World
	Publisher *Publisher
	// Recorder is optional. RunID must name a run begun on it.
	Recorder store.Recorder
	RunID    string
	// RecordEvery is the snapshot recording interval in ticks.
	RecordEvery int
	Logger      *slog.Logger
}

// Loop advances the simulation and engine one tick at a time. Forces from
// tick t are applied to the world in tick t+1.
type Loop struct {
	cfg    Config
	logger *slog.Logger
	forces engine.Forces
	frame  []spatial.Entity
}

// NewLoop creates a Loop.
func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Engine == nil || cfg.World == nil {
		return nil, fmt.Errorf("host loop needs an engine and a world")
	}
	if cfg.Recorder != nil && cfg.RunID == "" {
		return nil, fmt.Errorf("host loop has a recorder but no run ID")
	}
	if cfg.RecordEvery < 1 {
		cfg.RecordEvery = 1
	}
	if cfg.Publisher == nil {
		cfg.Publisher = NewPublisher(DefaultHistory)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Loop{cfg: cfg, logger: logger}, nil
}

// Publisher returns the loop's publisher.
func (l *Loop) Publisher() *Publisher { return l.cfg.Publisher }

// Tick runs one step: world, engine, publish, record.
func (l *Loop) Tick(ctx context.Context) error {
	l.cfg.World.Step(l.forces)
	f := l.cfg.World.Frame(l.frame)
	l.frame = f.Entities
	l.cfg.Engine.Step(f)

	snap := l.cfg.Engine.Snapshot()
	l.forces = snap.Forces
	l.cfg.Publisher.Publish(snap)

	if l.cfg.Recorder == nil {
		return nil
	}
	if err := l.cfg.Recorder.RecordEvents(ctx, l.cfg.RunID, snap.Events); err != nil {
		return fmt.Errorf("recording events at tick %d: %w", snap.Tick, err)
	}
	if snap.Tick%int64(l.cfg.RecordEvery) == 0 {
		if err := l.cfg.Recorder.RecordSnapshot(ctx, l.cfg.RunID, snap); err != nil {
			return fmt.Errorf("recording snapshot at tick %d: %w", snap.Tick, err)
		}
	}
	return nil
}

// RunTicks runs n ticks as fast as possible, stopping early if ctx ends.
func (l *Loop) RunTicks(ctx context.Context, n int64) error {
	for i := int64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Tick(ctx); err != nil {
			return err
		}
	}
	l.logger.Debug("headless run complete", "ticks", n, "engine_tick", l.cfg.Engine.Tick())
	return nil
}

// Run ticks at the engine's tick rate until ctx ends. A tick that runs
// long delays the next one rather than queueing extra ticks.
func (l *Loop) Run(ctx context.Context) error {
	rate := l.cfg.Engine.Config().TickRate
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	l.logger.Info("loop started", "tick_rate", rate)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("loop stopped", "ticks", l.cfg.Engine.Tick())
			return nil
		case <-ticker.C:
			if err := l.Tick(ctx); err != nil {
				return err
			}
		}
	}
}
