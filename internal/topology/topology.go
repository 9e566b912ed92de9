// Package topology keeps a map of the observers themselves: one node per
// analysis, an activity level for each, and how evenly the whole map is
// lit. The self node watches the map and its activity is the system's
// self-awareness.
package topology

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// Node identifies one observer on the map.
type Node int

const (
	Entropy Node = iota
	Meta
	Complexity
	Invariants
	Resonance
	Self
	nodeCount
)

var nodeNames = [nodeCount]string{"entropy", "meta", "complexity", "invariants", "resonance", "self"}

func (n Node) String() string {
	if n < 0 || n >= nodeCount {
		return "unknown"
	}
	return nodeNames[n]
}

// Edge is a directed information flow between two nodes.
type Edge struct {
	From Node
	To   Node
}

// edges lists the flows in a fixed order. resonance→entropy closes the
// loop; the self node feeds every other observer.
var edges = []Edge{
	{Entropy, Meta},
	{Entropy, Complexity},
	{Meta, Complexity},
	{Complexity, Invariants},
	{Invariants, Resonance},
	{Complexity, Resonance},
	{Resonance, Entropy},
	{Self, Entropy},
	{Self, Meta},
	{Self, Complexity},
	{Self, Invariants},
	{Self, Resonance},
}

// Inputs are the observer outputs one update reads.
type Inputs struct {
	Entropy           float64
	MetaEntropy       float64
	Complexity        float64
	MetaComplexity    float64
	Perturbation      float64
	Collapse          float64
	InvariantCount    int
	StrongInvariants  int
	Resonance         float64
	Dissonance        float64
	FeedbackIntensity float64
	SystemicStability float64
}

// NodeState is one node's activity in a Snapshot.
type NodeState struct {
	Name     string  `json:"name"`
	Activity float64 `json:"activity"`
}

// FlowState is one edge's flow in a Snapshot.
type FlowState struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Flow float64 `json:"flow"`
}

// Snapshot is the read-only state of a Map.
type Snapshot struct {
	Nodes         []NodeState `json:"nodes"`
	Flows         []FlowState `json:"flows"`
	Energy        float64     `json:"energy"`
	Coherence     float64     `json:"coherence"`
	SelfAwareness float64     `json:"self_awareness"`
	Visible       bool        `json:"visible"`
}

// Map smooths node activities and edge flows across updates.
type Map struct {
	activity  [nodeCount]float64
	flow      []float64
	energy    float64
	coherence float64
	awareness float64
}

// New creates a dark Map.
func New() *Map {
	return &Map{flow: make([]float64, len(edges))}
}

// Update moves every node a tenth of the way toward its target, then
// derives the map's energy, coherence and the self node's awareness.
// Awareness grows only when the map is evenly lit, energetic and the
// system is stable.
func (m *Map) Update(in Inputs) Snapshot {
	invariants := float64(in.InvariantCount) / constants.TopologyInvariantNorm
	targets := [nodeCount]float64{
		Entropy:    in.Entropy,
		Meta:       in.MetaEntropy,
		Complexity: in.Complexity,
		Invariants: invariants,
		Resonance:  math.Abs(in.Resonance) + in.FeedbackIntensity,
		Self:       m.awareness,
	}
	a := constants.TopologySmoothing
	for i := range m.activity {
		m.activity[i] = m.activity[i]*(1-a) + targets[i]*a
	}

	s := m.awareness
	flows := [...]float64{
		math.Abs(in.Entropy - in.MetaEntropy),
		in.Complexity,
		in.MetaComplexity,
		in.Perturbation + in.Collapse,
		float64(in.StrongInvariants) / 10,
		in.Dissonance,
		in.FeedbackIntensity,
		s * in.Entropy,
		s * in.MetaEntropy,
		s * in.Complexity,
		s * invariants,
		s * in.FeedbackIntensity,
	}
	for i, f := range flows {
		m.flow[i] = m.flow[i]*(1-a) + f*a
	}

	m.energy = series.Mean(m.activity[:])
	m.coherence = math.Max(0, 1-constants.TopologyCoherenceGain*series.Variance(m.activity[:]))

	target := m.coherence * in.SystemicStability * m.energy
	m.awareness = m.awareness*(1-a) + target*a
	m.activity[Self] = m.awareness

	return m.Snapshot()
}

// SelfAwareness returns how much the system currently sees itself seeing.
func (m *Map) SelfAwareness() float64 { return m.awareness }

// Activity returns the smoothed activity of node n.
func (m *Map) Activity(n Node) float64 {
	if n < 0 || n >= nodeCount {
		return 0
	}
	return m.activity[n]
}

// Snapshot returns the map's read-only state.
func (m *Map) Snapshot() Snapshot {
	s := Snapshot{
		Nodes:         make([]NodeState, nodeCount),
		Flows:         make([]FlowState, len(edges)),
		Energy:        m.energy,
		Coherence:     m.coherence,
		SelfAwareness: m.awareness,
		Visible:       m.awareness > 0.05 || m.energy > 0.15,
	}
	for i := range s.Nodes {
		s.Nodes[i] = NodeState{Name: Node(i).String(), Activity: m.activity[i]}
	}
	for i, e := range edges {
		s.Flows[i] = FlowState{From: e.From.String(), To: e.To.String(), Flow: m.flow[i]}
	}
	return s
}
