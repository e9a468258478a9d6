package recognition

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultTolerance is the distance below which two dlib embeddings are the same person.
	DefaultTolerance = 0.6
	MinTolerance     = 0.3
	MaxTolerance     = 1.0
)

// Match is the best gallery entry for a probe embedding.
type Match struct {
	StudentID  string
	Name       string
	Distance   float64
	Confidence float64
	Known      bool
}

// BestMatch finds the gallery entry nearest to probe by Euclidean distance and
// admits it only when that distance is within tolerance. Ties keep the first
// entry. A probe whose length differs from the gallery's never matches.
func BestMatch(probe Embedding, snap *Snapshot, tolerance float64) Match {
	unknown := Match{Name: UnknownName, Distance: math.Inf(1)}
	if snap.Len() == 0 || len(probe) != snap.Dim() {
		return unknown
	}

	best := -1
	bestDist := math.Inf(1)
	for i, e := range snap.Entries() {
		d := floats.Distance(probe, e.Embedding, 2)
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	if best < 0 || bestDist > tolerance {
		unknown.Distance = bestDist
		return unknown
	}

	e := snap.Entries()[best]
	return Match{
		StudentID:  e.StudentID,
		Name:       e.Name,
		Distance:   bestDist,
		Confidence: confidence(bestDist),
		Known:      true,
	}
}

func confidence(distance float64) float64 {
	return math.Max(0, math.Min(1, 1-distance))
}

// Matcher applies BestMatch with a tolerance that can be changed while frames
// are being processed.
type Matcher struct {
	tolerance atomic.Uint64
}

// NewMatcher creates a matcher. An out-of-range tolerance falls back to DefaultTolerance.
func NewMatcher(tolerance float64) *Matcher {
	m := &Matcher{}
	if !m.SetTolerance(tolerance) {
		m.SetTolerance(DefaultTolerance)
	}
	return m
}

// SetTolerance updates the tolerance if v lies in [MinTolerance, MaxTolerance]
// and reports whether it did. Rejected values leave the tolerance unchanged.
func (m *Matcher) SetTolerance(v float64) bool {
	if math.IsNaN(v) || v < MinTolerance || v > MaxTolerance {
		return false
	}
	m.tolerance.Store(math.Float64bits(v))
	return true
}

// Tolerance returns the current tolerance.
func (m *Matcher) Tolerance() float64 {
	return math.Float64frombits(m.tolerance.Load())
}

// Match runs BestMatch with the current tolerance.
func (m *Matcher) Match(probe Embedding, snap *Snapshot) Match {
	return BestMatch(probe, snap, m.Tolerance())
}
