package edge

import (
	"fmt"
	"math"
	"sync"

	"github.com/vikramraju/attendedge/internal/models"
)

// Matcher answers the one question the recognition loop asks: given a face
// embedding, which rostered student is it, if any? Rosters are tens of
// entries, so a linear scan over Euclidean distances is all it takes.
type Matcher struct {
	mu        sync.RWMutex
	dimension int
	threshold float64
	roster    []models.RosterEntry
}

func NewMatcher(dimension int, threshold float64) *Matcher {
	return &Matcher{
		dimension: dimension,
		threshold: threshold,
	}
}

// LoadRoster replaces the active roster. Every entry must carry an embedding
// of the configured dimensionality.
func (m *Matcher) LoadRoster(roster []models.RosterEntry) error {
	for _, entry := range roster {
		if len(entry.Embedding) != m.dimension {
			return fmt.Errorf("student %s has embedding of dimension %d, want %d",
				entry.StudentID, len(entry.Embedding), m.dimension)
		}
	}

	m.mu.Lock()
	m.roster = roster
	m.mu.Unlock()
	return nil
}

// Match returns the closest rostered student within the distance threshold,
// with a confidence derived from the distance, or ok=false for no match.
func (m *Matcher) Match(embedding []float32) (studentID string, confidence float64, ok bool) {
	if len(embedding) != m.dimension {
		return "", 0, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	best := math.MaxFloat64
	for _, entry := range m.roster {
		d := euclideanDistance(embedding, entry.Embedding)
		if d < best {
			best = d
			studentID = entry.StudentID
		}
	}

	if studentID == "" || best > m.threshold {
		return "", 0, false
	}

	confidence = 1 - best
	if confidence < 0 {
		confidence = 0
	}
	return studentID, confidence, true
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
