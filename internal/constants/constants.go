// Package constants provides named tuning constants used throughout the selfwatch codebase.
// This centralizes magic numbers for better maintainability and documentation.
//
// Tick-denominated values assume the nominal 60 Hz cadence; see
// engine.Config.ScaleTicks for hosts running at a different rate.
package constants

// Cadence constants
const (
	// NominalTickRate is the tick rate (Hz) all tick-denominated constants are calibrated for.
	NominalTickRate = 60

	// DefaultCycleLength is the round-robin cycle over which the full analytics suite runs once.
	DefaultCycleLength = 30
)

// Entropy monitor constants
const (
	// EntropyGridSize is G for the G×G occupancy grid used for spatial entropy.
	EntropyGridSize = 16

	// EntropyHistorySize is the default capacity of the entropy history window.
	EntropyHistorySize = 120

	// TrendWindow is the number of samples averaged on each side of a trend comparison.
	TrendWindow = 10

	// InflectionMinSamples is the minimum history length before inflections are considered.
	InflectionMinSamples = 31

	// InflectionEpsilon is the minimum |trend| on both sides of a sign flip.
	InflectionEpsilon = 0.005

	// InflectionCooldownTicks gates consecutive inflection events.
	InflectionCooldownTicks = 120

	// InflectionLogSize is the capacity of the circular inflection event log.
	InflectionLogSize = 20

	// MinConnectionDistance and MaxConnectionDistance bound the self-tuning
	// connection distance exposed to the renderer.
	MinConnectionDistance = 50.0
	MaxConnectionDistance = 120.0

	// InitialConnectionDistance is the connection distance before any entropy sample.
	InitialConnectionDistance = 80.0

	// ConnectionDistanceRate is the exponential smoothing rate toward the entropy-proportional target.
	ConnectionDistanceRate = 0.05
)

// Meta-entropy constants
const (
	// MetaEntropyBins is the number of bins the entropy history is quantized into.
	MetaEntropyBins = 10

	// MetaEntropyMinSamples is the minimum entropy history length for a meta-entropy value.
	MetaEntropyMinSamples = 20

	// MetaEntropyHistorySize is the capacity of the meta-entropy history.
	MetaEntropyHistorySize = 60

	// ObservationDepthMax is the ceiling of the observation depth target.
	ObservationDepthMax = 3.0

	// ObservationDepthRate is the EMA rate of observation depth toward its target.
	ObservationDepthRate = 0.01
)

// Signature archive constants
const (
	// SignatureWindow is the number of entropy samples a signature summarizes.
	SignatureWindow = 60

	// SignatureArchiveSize caps the number of archived signatures (FIFO eviction).
	SignatureArchiveSize = 30

	// SignatureNoveltyThreshold is the nearest-distance a signature must exceed to be archived.
	SignatureNoveltyThreshold = 0.15

	// SignatureExactThreshold is the distance below which familiarity is exactly 1.
	SignatureExactThreshold = 0.1

	// FamiliarityDecay is the exponent multiplier for exp(-k·distance) familiarity.
	FamiliarityDecay = 3.0

	// FamiliaritySmoothing is the EMA rate of familiarity.
	FamiliaritySmoothing = 0.05
)

// Recurrence ("déjà vu") search constants
const (
	// RecurrenceBufferSize is the capacity of the short trajectory window.
	RecurrenceBufferSize = 60

	// RecurrenceArchiveSize is the capacity of the long trajectory archive.
	RecurrenceArchiveSize = 600

	// RecurrenceWindow is the length of the correlated windows.
	RecurrenceWindow = 20

	// RecurrenceStride is the step between candidate windows in the archive.
	RecurrenceStride = 5

	// RecurrenceSkipRecent excludes the most recent archive samples from the search.
	RecurrenceSkipRecent = 60

	// RecurrenceMinArchive is the archive length required before searching.
	RecurrenceMinArchive = 100

	// RecurrenceThreshold is the Pearson correlation that triggers a recurrence.
	RecurrenceThreshold = 0.85

	// RecurrenceCooldownTicks gates consecutive recurrence signals.
	RecurrenceCooldownTicks = 900

	// RecurrenceFade is the per-tick multiplicative fade of recurrence intensity.
	RecurrenceFade = 0.99

	// RecurrenceFloor is the intensity below which the recurrence signal switches off.
	RecurrenceFloor = 0.1
)

// Regional correlation constants
const (
	// RegionGridSize is the side of the region partition (4×4 regions).
	RegionGridSize = 4

	// RegionMinEntities is the minimum entity count per region for correlation.
	RegionMinEntities = 5

	// CorrelationThreshold is the cosine similarity above which a pair is correlated.
	CorrelationThreshold = 0.7

	// RegionHistorySize is the per-region velocity history length.
	RegionHistorySize = 20

	// CausalLag is the lag used by self- and cross-prediction.
	CausalLag = 5

	// CausalCrossRatio is the factor cross error must beat self error by.
	CausalCrossRatio = 0.7

	// CausalMinImprovement is the minimum relative improvement recorded as a flow.
	CausalMinImprovement = 0.2

	// CausalMinCrossError keeps exactly matching series from producing a flow.
	CausalMinCrossError = 0.0001

	// MagnitudeFloor stands in for a zero velocity magnitude when normalizing.
	MagnitudeFloor = 0.001
)

// Complexity estimator constants
const (
	// ComplexityLevels is the number of quantization levels.
	ComplexityLevels = 8

	// ComplexityWindow is the entropy window each complexity estimate covers.
	ComplexityWindow = 60

	// ComplexityMinSamples is the entropy history required before estimating.
	ComplexityMinSamples = 30

	// ComplexityHistorySize is the capacity of the complexity history.
	ComplexityHistorySize = 120

	// MetaComplexityMinSamples is the complexity history required for meta-complexity.
	MetaComplexityMinSamples = 30

	// InstabilityThreshold and SimplicityThreshold bound the stable complexity band.
	InstabilityThreshold = 0.6
	SimplicityThreshold  = 0.3

	// InstabilityGain and SimplicityGain scale the perturbation contributions.
	InstabilityGain = 2.5
	SimplicityGain  = 1.5

	// CollapseThreshold is the meta-complexity above which measurement collapse occurs.
	CollapseThreshold = 0.7

	// CollapseGain scales measurement collapse.
	CollapseGain = 3.0

	// CompressionGridSize is the side of the occupancy grid for the spatial compression ratio.
	CompressionGridSize = 8

	// CompressionSymbols scales occupancy relative to the fullest cell into symbols 0..CompressionSymbols.
	CompressionSymbols = 9

	// CompressionSmoothing is the EMA weight of a new compression ratio.
	CompressionSmoothing = 0.1

	// CompressionHistorySize is the capacity of the compression ratio history.
	CompressionHistorySize = 60
)

// Invariant archive constants
const (
	// InvariantDetectionWindow is the sample window for period/attractor/bounds detection.
	InvariantDetectionWindow = 60

	// PeriodMinLag is the shortest autocorrelation lag considered a period.
	PeriodMinLag = 10

	// PeriodMinOverlap is the fewest sample pairs a lag is scored over.
	PeriodMinOverlap = 30

	// PeriodMinCorrelation is the normalized autocorrelation a period candidate needs.
	PeriodMinCorrelation = 0.5

	// PeriodCandidateHistory is the rolling window of period candidates.
	PeriodCandidateHistory = 10

	// PeriodConfirmations is the number of recent candidates whose variance is checked.
	PeriodConfirmations = 5

	// PeriodMaxVariance is the maximum candidate variance (ticks²) for a period invariant.
	PeriodMaxVariance = 4.0

	// AttractorMaxStdDev is the maximum std-dev of the window for an attractor candidate.
	AttractorMaxStdDev = 0.05

	// AttractorMaxVariance is the maximum variance of recent attractor candidates.
	AttractorMaxVariance = 0.01

	// BoundsMinStability is the stability a bounds estimate needs before archiving.
	BoundsMinStability = 0.7

	// InvariantMinStability is the stability a new archive entry needs.
	InvariantMinStability = 0.5

	// InvariantMatchTolerance is the value distance under which entries are duplicates.
	InvariantMatchTolerance = 0.1

	// InvariantReinforcement is the stability added when a duplicate is observed.
	InvariantReinforcement = 0.1

	// InvariantDecayRate is the per-cycle geometric stability decay.
	InvariantDecayRate = 0.9995

	// InvariantPruneFloor is the stability below which entries are dropped.
	InvariantPruneFloor = 0.1

	// MaxInvariants caps the archive; the weakest entry is evicted when full.
	MaxInvariants = 50

	// StrongInvariantStability is the stability above which an invariant counts as strong.
	StrongInvariantStability = 0.7

	// SymmetryMinScore is the occupancy symmetry score offered to the archive.
	SymmetryMinScore = 0.8
)

// Observation cascade constants
const (
	// CascadeDepth is the fixed number of observation levels.
	CascadeDepth = 4

	// CascadeHistorySize is the per-level value and error history length.
	CascadeHistorySize = 60

	// CascadeConfidenceWindow is the number of recent errors averaged for confidence.
	CascadeConfidenceWindow = 10

	// CascadeConfidenceGain is k in exp(-k·avgError).
	CascadeConfidenceGain = 5.0

	// CascadeConfidenceSmoothing is the EMA weight of new confidence.
	CascadeConfidenceSmoothing = 0.1

	// CascadeOscillationWindow is the history span used for oscillation detection.
	CascadeOscillationWindow = 20

	// CascadeOscillationSpan is the number of sample pairs correlated per lag.
	CascadeOscillationSpan = 15

	// CascadeMinLag and CascadeMaxLag bound oscillation lags (max exclusive).
	CascadeMinLag = 3
	CascadeMaxLag = 15

	// CascadeOscillationThreshold is the correlation above which a level oscillates.
	CascadeOscillationThreshold = 0.3

	// CascadeCoherenceWindow is the number of recent errors in the coherence variance.
	CascadeCoherenceWindow = 5

	// CascadeCoherenceGain is k in exp(-k·var).
	CascadeCoherenceGain = 20.0

	// CascadeSinusoidConfidence is the confidence needed for sinusoidal prediction.
	CascadeSinusoidConfidence = 0.3

	// CascadeTrendDamping damps linear extrapolation.
	CascadeTrendDamping = 0.5

	// CascadeSyncCoherence is the per-level coherence required for coherence sync.
	CascadeSyncCoherence = 0.6

	// CascadeSyncPhaseThreshold is the mean phase deviation allowed for phase sync.
	CascadeSyncPhaseThreshold = 0.15

	// CascadeSyncWindow is the number of sustained sync observations for an event.
	CascadeSyncWindow = 20

	// CascadeSyncCooldownTicks gates sync checks after an event.
	CascadeSyncCooldownTicks = 600

	// CascadeSyncDecay is the per-observation decay of sync intensity.
	CascadeSyncDecay = 0.995

	// CascadeSyncFloor is the intensity below which sync ends.
	CascadeSyncFloor = 0.05

	// StrangeLoopSyncBoost multiplies strange-loop intensity while synced.
	StrangeLoopSyncBoost = 1.5
)

// Self-model constants
const (
	// SelfModelWindow is the look-back span for oscillation detection.
	SelfModelWindow = 30

	// SelfModelHorizon is the number of updates ahead the self-model predicts.
	SelfModelHorizon = 10

	// SelfModelDepth scales confidence into active self-model depth.
	SelfModelDepth = 3.0

	// SelfModelErrorHistory is the capacity of the prediction error history.
	SelfModelErrorHistory = 60
)

// Resonance constants
const (
	// KnowledgeStabilization is how much invariants reduce perturbation.
	KnowledgeStabilization = 0.4

	// ObservationPressure is how much the observer effect tests invariants.
	ObservationPressure = 0.3

	// CoherenceThreshold is the minimum agreement for positive resonance.
	CoherenceThreshold = 0.6

	// ResonanceHistorySize is the capacity of the resonance history.
	ResonanceHistorySize = 90
)

// Observer feedback constants
const (
	// FeedbackHistorySize is the capacity of the coherence product history.
	FeedbackHistorySize = 60

	// FeedbackThreshold is the intensity above which feedback pulls on the simulation.
	FeedbackThreshold = 0.4

	// FeedbackStrength scales the force feedback exerts on the simulation.
	FeedbackStrength = 0.0008

	// FeedbackSmoothing is the EMA weight of a new raw feedback value.
	FeedbackSmoothing = 0.05

	// LoopClosureThreshold is the recent coherence product mean that closes the loop.
	// The older mean must stay below 0.7 of it.
	LoopClosureThreshold = 0.7

	// LoopClosureMinSamples is the product history length a closure check needs.
	LoopClosureMinSamples = 30

	// LoopClosureCooldownTicks gates consecutive loop closures.
	LoopClosureCooldownTicks = 600

	// LoopPressureThreshold is the pressure at which a closed loop breaks open.
	LoopPressureThreshold = 1.2

	// LoopPressureRate is the pressure gained per tick per unit of intensity while closed.
	LoopPressureRate = 0.003

	// LoopPressureLeak is the per-tick retention of pressure while the loop is open.
	LoopPressureLeak = 0.99

	// LoopBreakTicks is the length of a release. Releases are at least three apart.
	LoopBreakTicks = 120

	// LoopClosedDecay is the per-tick decay of the closed-loop intensity.
	LoopClosedDecay = 0.998

	// LoopClosedFloor is the intensity below which a closed loop lapses.
	LoopClosedFloor = 0.05
)

// Topology constants
const (
	// TopologySmoothing is the EMA weight of a node's new activity target.
	TopologySmoothing = 0.1

	// TopologyInvariantNorm is the invariant count that saturates the invariants node.
	TopologyInvariantNorm = 30.0

	// TopologyCoherenceGain is k in max(0, 1-k·var(activities)).
	TopologyCoherenceGain = 4.0
)

// Phase space constants
const (
	// PhaseTrajectorySize is the capacity of the (complexity, stability) trajectory.
	PhaseTrajectorySize = 600

	// PhaseAttractorWindow is the number of recent points checked for clustering.
	PhaseAttractorWindow = 60

	// PhaseAttractorSpread is the RMS spread under which the points form an attractor.
	PhaseAttractorSpread = 0.1

	// PhaseAttractorDecay is the per-update decay of attractor strength once the points spread.
	PhaseAttractorDecay = 0.95

	// PhaseScale maps unit phase space to the rendered radius the attractor radius is given in.
	PhaseScale = 150.0
)

// Convergence constants
const (
	// ConvergenceCooldownTicks gates consecutive convergences.
	ConvergenceCooldownTicks = 1200

	// ConvergenceDecay is the per-tick decay of convergence intensity.
	ConvergenceDecay = 0.995

	// ConvergenceFloor is the intensity below which a convergence ends.
	ConvergenceFloor = 0.05
)

// Self-perturbation constants
const (
	// StuckWindow is the number of recent entropy samples checked for stagnation.
	StuckWindow = 30

	// StuckVariance is the variance below which the system counts as stuck.
	StuckVariance = 0.001

	// StuckThreshold is the stuck counter value that triggers a perturbation.
	StuckThreshold = 300

	// PerturbationCooldownTicks gates consecutive self-perturbations.
	PerturbationCooldownTicks = 600

	// SeekChaosBelow is the entropy under which a perturbation seeks chaos instead of order.
	SeekChaosBelow = 0.4
)

// Simulation defaults
const (
	// DefaultEntityCount is the number of simulated particles.
	DefaultEntityCount = 128

	// DefaultWorldWidth and DefaultWorldHeight size the simulated world.
	DefaultWorldWidth  = 1280.0
	DefaultWorldHeight = 800.0

	// GridCellSize is the spatial index cell size (the nominal connection distance).
	GridCellSize = 80.0
)
