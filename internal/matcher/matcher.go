// Package matcher resolves face encodings to enrolled identity names.
package matcher

import (
	"math"
	"strings"

	"github.com/andresmejia3/livecheck/internal/liveness"
)

// DefaultThreshold is the largest Euclidean distance accepted as a match.
const DefaultThreshold = 0.55

// Identity is an enrolled name with its reference encoding.
type Identity struct {
	Name string
	Vec  []float64
}

// Matcher performs exact nearest-neighbor search over a fixed enrolled set.
type Matcher struct {
	known     []Identity
	threshold float64
}

// New returns a matcher over known. A non-positive threshold selects DefaultThreshold.
func New(known []Identity, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{known: known, threshold: threshold}
}

// Len returns the number of enrolled identities.
func (m *Matcher) Len() int { return len(m.known) }

// Match returns the upper-cased name of the closest identity within the threshold,
// or liveness.Unknown, together with the best distance found.
func (m *Matcher) Match(vec []float64) (string, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i, id := range m.known {
		if d := EuclideanDist(vec, id.Vec); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 || bestDist >= m.threshold {
		return liveness.Unknown, bestDist
	}
	return strings.ToUpper(m.known[best].Name), bestDist
}

// EuclideanDist returns the L2 distance between a and b, or +Inf when their
// lengths differ or they are empty.
func EuclideanDist(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
