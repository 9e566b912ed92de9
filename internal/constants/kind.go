package constants

// InvariantKind identifies what property of the entropy stream an invariant describes.
type InvariantKind string

const (
	// KindPeriod is a recurring oscillation period, in ticks.
	KindPeriod InvariantKind = "period"

	// KindAttractor is an entropy level the system settles around.
	KindAttractor InvariantKind = "attractor"

	// KindBound is a stable lower/upper range of entropy.
	KindBound InvariantKind = "bound"

	// KindCorrelation is a persistent velocity correlation between two regions.
	KindCorrelation InvariantKind = "correlation"

	// KindSymmetry is a persistent mirror symmetry in spatial occupancy.
	KindSymmetry InvariantKind = "symmetry"
)

// Valid returns true if the kind is a recognized value.
func (k InvariantKind) Valid() bool {
	switch k {
	case KindPeriod, KindAttractor, KindBound, KindCorrelation, KindSymmetry:
		return true
	}
	return false
}

// String returns the string representation of the kind.
func (k InvariantKind) String() string {
	return string(k)
}

// Directive is the self-perturbation instruction handed to the simulation.
type Directive string

const (
	// DirectiveNone means no perturbation is requested.
	DirectiveNone Directive = ""

	// DirectiveSeekChaos asks the simulation to disperse entities.
	DirectiveSeekChaos Directive = "seek-chaos"

	// DirectiveSeekOrder asks the simulation to cluster entities.
	DirectiveSeekOrder Directive = "seek-order"
)
