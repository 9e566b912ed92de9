package signature

import (
	"math"

	"github.com/nvandessel/selfwatch/internal/constants"
	"github.com/nvandessel/selfwatch/internal/series"
)

// Match describes a detected recurrence.
type Match struct {
	Tick        int64   `json:"tick"`
	Correlation float64 `json:"correlation"`
	ArchiveAt   int     `json:"archive_at"`
}

// RecurrenceSnapshot is the read-only state of a Recurrence detector.
type RecurrenceSnapshot struct {
	Active    bool    `json:"active"`
	Intensity float64 `json:"intensity"`
	MatchAt   int     `json:"match_at"`
	Matches   int     `json:"matches"`
	Archived  int     `json:"archived"`
}

// Recurrence keeps a short trajectory buffer and a long trajectory
// archive of raw samples and searches for a past window that correlates
// with the present one.
type Recurrence struct {
	buffer   *series.Window
	archive  *series.Window
	cooldown int64

	recent    []float64
	candidate []float64

	active    bool
	intensity float64
	matchAt   int
	lastMatch int64
	matches   int
}

// NewRecurrence creates a detector with the given cooldown in ticks.
func NewRecurrence(cooldown int64) *Recurrence {
	return &Recurrence{
		buffer:    series.NewWindow(constants.RecurrenceBufferSize),
		archive:   series.NewWindow(constants.RecurrenceArchiveSize),
		cooldown:  cooldown,
		recent:    make([]float64, constants.RecurrenceWindow),
		candidate: make([]float64, constants.RecurrenceWindow),
		matchAt:   -1,
		lastMatch: math.MinInt64 / 2,
	}
}

// Record appends a sample to both buffers and fades an active signal.
// It runs every tick.
func (r *Recurrence) Record(h float64) {
	r.buffer.Push(h)
	r.archive.Push(h)

	if r.active {
		r.intensity *= constants.RecurrenceFade
		if r.intensity < constants.RecurrenceFloor {
			r.active = false
			r.intensity = 0
			r.matchAt = -1
		}
	}
}

// Search correlates the latest window against archive windows at a fixed
// stride, skipping the most recent samples, and reports the first window
// whose Pearson correlation exceeds the threshold.
func (r *Recurrence) Search(now int64) (Match, bool) {
	w := constants.RecurrenceWindow
	if now-r.lastMatch < r.cooldown {
		return Match{}, false
	}
	if r.buffer.Len() < w || r.archive.Len() < constants.RecurrenceMinArchive {
		return Match{}, false
	}

	off := r.buffer.Len() - w
	for k := range r.recent {
		r.recent[k] = r.buffer.At(off + k)
	}

	limit := r.archive.Len() - w - constants.RecurrenceSkipRecent
	for i := 0; i < limit; i += constants.RecurrenceStride {
		for k := range r.candidate {
			r.candidate[k] = r.archive.At(i + k)
		}
		corr := series.Pearson(r.recent, r.candidate)
		if corr > constants.RecurrenceThreshold {
			r.active = true
			r.intensity = corr
			r.matchAt = i
			r.lastMatch = now
			r.matches++
			return Match{Tick: now, Correlation: corr, ArchiveAt: i}, true
		}
	}
	return Match{}, false
}

// Snapshot returns the detector's read-only state.
func (r *Recurrence) Snapshot() RecurrenceSnapshot {
	return RecurrenceSnapshot{
		Active:    r.active,
		Intensity: r.intensity,
		MatchAt:   r.matchAt,
		Matches:   r.matches,
		Archived:  r.archive.Len(),
	}
}
