package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/export"
	"github.com/nvandessel/selfwatch/internal/host"
	"github.com/nvandessel/selfwatch/internal/invariants"
	"github.com/nvandessel/selfwatch/internal/pathutil"
	"github.com/nvandessel/selfwatch/internal/ratelimit"
	"github.com/nvandessel/selfwatch/internal/store"
)

const (
	sourceLive     = "live"
	sourceRecorded = "recorded"

	snapshotURI = "selfwatch://snapshot/latest"

	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
	defaultRunsLimit    = 20
)

// registerTools registers all selfwatch MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSnapshot,
		Description: "Get the latest engine snapshot: entropy, complexity, familiarity, resonance and the self-model",
	}, s.handleSnapshot)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolCascade,
		Description: "Get the observation cascade: per-level predictions, coherence, synchronization and strange-loop strength",
	}, s.handleCascade)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolInvariants,
		Description: "List discovered invariants (periods, attractors, bounds, correlations, symmetries)",
	}, s.handleInvariants)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolHistory,
		Description: "Get recent metric history, live or from a recorded run",
	}, s.handleHistory)

	if s.recorder != nil {
		sdk.AddTool(s.server, &sdk.Tool{
			Name:        ratelimit.ToolRuns,
			Description: "List recorded engine runs",
		}, s.handleRuns)
	}

	if s.recorder != nil && len(s.exportDirs) > 0 {
		sdk.AddTool(s.server, &sdk.Tool{
			Name:        ratelimit.ToolExport,
			Description: "Export a recorded run to an Arrow IPC file or a compressed archive in the export directory",
		}, s.handleExport)
	}
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         snapshotURI,
		Name:        "selfwatch-snapshot",
		Description: "A short markdown summary of what the engine currently observes about itself.",
		MIMEType:    "text/markdown",
	}, s.handleSnapshotResource)
}

func (s *Server) handleSnapshotResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      snapshotURI,
			MIMEType: "text/markdown",
			Text:     s.renderSummary(),
		}},
	}, nil
}

// renderSummary formats the latest snapshot as markdown.
func (s *Server) renderSummary() string {
	snap, ok := s.pub.Latest()
	if !ok {
		return "# selfwatch\n\nNo snapshot published yet.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# selfwatch at tick %d\n\n", snap.Tick)
	fmt.Fprintf(&sb, "- entropy %.3f (trend %+.4f), meta-entropy %.3f\n", snap.Entropy.Entropy, snap.Entropy.Trend, snap.Meta.MetaEntropy)
	fmt.Fprintf(&sb, "- complexity %.3f, familiarity %.3f\n", snap.Complexity.Complexity, snap.Signature.Familiarity)
	fmt.Fprintf(&sb, "- self-model %s (confidence %.2f)\n", snap.SelfModel.Mode, snap.SelfModel.Confidence)
	fmt.Fprintf(&sb, "- strange loop %.3f, resonance %.3f\n", snap.Cascade.StrangeLoop, snap.Resonance.Resonance)
	if snap.Recurrence.Active {
		fmt.Fprintf(&sb, "- recurrence active (intensity %.2f)\n", snap.Recurrence.Intensity)
	}

	if len(snap.Invariants.Entries) > 0 {
		sb.WriteString("\n## Invariants\n\n")
		for _, inv := range snap.Invariants.Entries {
			fmt.Fprintf(&sb, "- %s %.3f (stability %.2f, seen %d times)\n", inv.Kind, inv.Value, inv.Stability, inv.Observations)
		}
	}
	return sb.String()
}

// handleSnapshot implements the selfwatch_snapshot tool.
func (s *Server) handleSnapshot(ctx context.Context, req *sdk.CallToolRequest, args SnapshotInput) (_ *sdk.CallToolResult, _ SnapshotOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolSnapshot, start, retErr, sanitizeToolParams(map[string]any{
			"events": args.Events,
		}), sourceLive)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSnapshot); err != nil {
		return nil, SnapshotOutput{}, err
	}

	snap, ok := s.pub.Latest()
	if !ok {
		return nil, SnapshotOutput{}, nil
	}

	out := SnapshotOutput{
		Ready:             true,
		Tick:              snap.Tick,
		Cycles:            snap.Cycles,
		Entropy:           snap.Entropy.Entropy,
		Trend:             snap.Entropy.Trend,
		MetaEntropy:       snap.Meta.MetaEntropy,
		ObservationDepth:  snap.Meta.ObservationDepth,
		Familiarity:       snap.Signature.Familiarity,
		Recurring:         snap.Recurrence.Active,
		Complexity:        snap.Complexity.Complexity,
		MetaComplexity:    snap.Complexity.MetaComplexity,
		MutualInformation: snap.Regional.MutualInformation,
		CausalFlow:        snap.Regional.CausalFlow,
		CompressionRatio:  snap.Compression.Ratio,
		Invariants:        snap.Invariants.Count,
		StrangeLoop:       snap.Cascade.StrangeLoop,
		ModelMode:         string(snap.SelfModel.Mode),
		ModelConfidence:   snap.SelfModel.Confidence,
		Resonance:         snap.Resonance.Resonance,
		FeedbackIntensity: snap.Feedback.Intensity,
		LoopClosed:        snap.Feedback.Closed,
		SelfAwareness:     snap.Topology.SelfAwareness,
		AttractorStrength: snap.PhaseSpace.Strength,
		Convergence:       string(snap.Convergence.Kind),
		Directive:         string(snap.Forces.Directive),
	}
	if args.Events {
		out.Events = make([]EventItem, len(snap.Events))
		for i, ev := range snap.Events {
			out.Events[i] = EventItem{Tick: ev.Tick, Kind: ev.Kind, Value: ev.Value}
		}
	}
	return nil, out, nil
}

// handleCascade implements the selfwatch_cascade tool.
func (s *Server) handleCascade(ctx context.Context, req *sdk.CallToolRequest, args CascadeInput) (_ *sdk.CallToolResult, _ CascadeOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolCascade, start, retErr, sanitizeToolParams(map[string]any{
			"brief": args.Brief,
		}), sourceLive)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolCascade); err != nil {
		return nil, CascadeOutput{}, err
	}

	snap, ok := s.pub.Latest()
	if !ok {
		return nil, CascadeOutput{}, nil
	}

	c := snap.Cascade
	out := CascadeOutput{
		Ready:         true,
		Tick:          snap.Tick,
		Synced:        c.Synced,
		SyncIntensity: c.SyncIntensity,
		Syncs:         c.Syncs,
		StrangeLoop:   c.StrangeLoop,
		AvgCoherence:  c.AvgCoherence,
	}
	if !args.Brief {
		out.Levels = c.Levels
	}
	return nil, out, nil
}

// handleInvariants implements the selfwatch_invariants tool.
func (s *Server) handleInvariants(ctx context.Context, req *sdk.CallToolRequest, args InvariantsInput) (_ *sdk.CallToolResult, _ InvariantsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolInvariants, start, retErr, sanitizeToolParams(map[string]any{
			"kind": args.Kind, "min_stability": args.MinStability,
		}), sourceLive)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolInvariants); err != nil {
		return nil, InvariantsOutput{}, err
	}

	kind := constants.InvariantKind(args.Kind)
	if args.Kind != "" && !kind.Valid() {
		return nil, InvariantsOutput{}, fmt.Errorf("unknown invariant kind %q (valid: period, attractor, bound, correlation, symmetry)", args.Kind)
	}
	if args.MinStability < 0 || args.MinStability > 1 {
		return nil, InvariantsOutput{}, fmt.Errorf("min_stability must be between 0 and 1, got %g", args.MinStability)
	}

	snap, _ := s.pub.Latest()
	sum := snap.Invariants

	matched := make([]invariants.Invariant, 0, len(sum.Entries))
	for _, inv := range sum.Entries {
		if args.Kind != "" && inv.Kind != kind {
			continue
		}
		if inv.Stability < args.MinStability {
			continue
		}
		matched = append(matched, inv)
	}

	return nil, InvariantsOutput{
		Tick:           snap.Tick,
		Total:          sum.Count,
		Strong:         sum.Strong,
		DetectedPeriod: sum.DetectedPeriod,
		Invariants:     matched,
		Count:          len(matched),
	}, nil
}

// handleHistory implements the selfwatch_history tool.
func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	source := sourceLive
	if args.RunID != "" {
		source = sourceRecorded
	}
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolHistory, start, retErr, sanitizeToolParams(map[string]any{
			"limit": args.Limit, "run_id": args.RunID,
		}), source)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolHistory); err != nil {
		return nil, HistoryOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	if args.RunID == "" {
		points := s.pub.History(limit)
		return nil, HistoryOutput{Source: source, Points: points, Count: len(points)}, nil
	}

	if s.recorder == nil {
		return nil, HistoryOutput{}, fmt.Errorf("no recorder configured; run_id is unavailable")
	}
	if _, err := s.recorder.GetRun(ctx, args.RunID); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, HistoryOutput{}, fmt.Errorf("run %s not found", args.RunID)
		}
		return nil, HistoryOutput{}, fmt.Errorf("failed to load run: %w", err)
	}
	samples, err := s.recorder.Samples(ctx, args.RunID, limit)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("failed to load samples: %w", err)
	}

	points := make([]host.Point, len(samples))
	for i, sm := range samples {
		points[i] = host.Point{
			Tick:        sm.Tick,
			Entropy:     sm.Entropy,
			MetaEntropy: sm.MetaEntropy,
			Complexity:  sm.Complexity,
			Resonance:   sm.Resonance,
			StrangeLoop: sm.StrangeLoop,
			Familiarity: sm.Familiarity,
			Invariants:  sm.Invariants,
		}
	}
	return nil, HistoryOutput{Source: source, Points: points, Count: len(points)}, nil
}

// handleRuns implements the selfwatch_runs tool.
func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolRuns, start, retErr, sanitizeToolParams(map[string]any{
			"limit": args.Limit,
		}), sourceRecorded)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolRuns); err != nil {
		return nil, RunsOutput{}, err
	}
	if s.recorder == nil {
		return nil, RunsOutput{}, fmt.Errorf("no recorder configured")
	}

	runs, err := s.recorder.Runs(ctx)
	if err != nil {
		return nil, RunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs = runs[:min(limit, len(runs))]

	items := make([]RunItem, len(runs))
	for i, r := range runs {
		items[i] = RunItem{
			ID:        r.ID,
			StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
			Entities:  r.Entities,
			TickRate:  r.TickRate,
			Seed:      r.Seed,
			Ticks:     r.Ticks,
			Source:    r.Source,
		}
		if r.EndedAt != nil {
			items[i].EndedAt = r.EndedAt.UTC().Format(time.RFC3339)
		}
	}
	return nil, RunsOutput{Runs: items, Count: len(items)}, nil
}

// handleExport implements the selfwatch_export tool.
func (s *Server) handleExport(ctx context.Context, req *sdk.CallToolRequest, args ExportInput) (_ *sdk.CallToolResult, _ ExportOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolExport, start, retErr, sanitizeToolParams(map[string]any{
			"run_id": args.RunID, "arrow": args.Arrow, "archive": args.Archive,
		}), sourceRecorded)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolExport); err != nil {
		return nil, ExportOutput{}, err
	}
	if s.recorder == nil {
		return nil, ExportOutput{}, fmt.Errorf("no recorder configured")
	}
	if args.RunID == "" {
		return nil, ExportOutput{}, fmt.Errorf("'run_id' parameter is required")
	}

	archiveName := args.Archive
	if archiveName == "" && args.Arrow == "" {
		archiveName = args.RunID + ".swa"
	}

	var paths export.Paths
	if args.Arrow != "" {
		p, err := s.exportDirs.Resolve(args.Arrow)
		if err != nil {
			return nil, ExportOutput{}, fmt.Errorf("arrow path rejected: %w", err)
		}
		paths.Arrow = p
	}
	if archiveName != "" {
		p, err := s.exportDirs.Resolve(archiveName)
		if err != nil {
			return nil, ExportOutput{}, fmt.Errorf("archive path rejected: %w", err)
		}
		paths.Archive = p
	}

	if err := export.WriteRun(ctx, s.recorder, args.RunID, paths); err != nil {
		return nil, ExportOutput{}, fmt.Errorf("export failed: %w", err)
	}

	samples, err := s.recorder.Samples(ctx, args.RunID, 0)
	if err != nil {
		return nil, ExportOutput{}, fmt.Errorf("failed to count samples: %w", err)
	}

	written := make([]string, 0, 2)
	for _, p := range []string{paths.Arrow, paths.Archive} {
		if p != "" {
			written = append(written, pathutil.RedactPath(p))
		}
	}
	s.logger.Info("run exported", "run_id", args.RunID, "samples", len(samples))

	return nil, ExportOutput{
		RunID:   args.RunID,
		Arrow:   paths.Arrow,
		Archive: paths.Archive,
		Samples: len(samples),
		Message: fmt.Sprintf("Exported %d samples to %s", len(samples), strings.Join(written, ", ")),
	}, nil
}
