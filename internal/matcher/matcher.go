// Package matcher decides which known label an unknown face embedding belongs to.
package matcher

import (
	"math"

	"github.com/andresmejia3/facedetector/internal/types"
)

// DefaultTolerance is the Euclidean distance under which two dlib face embeddings are
// considered the same person.
const DefaultTolerance = 0.6

// Distance returns the Euclidean distance between two embeddings.
// Embeddings of different length are infinitely far apart.
func Distance(a, b []float64) float64 {
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

// CompareFaces returns one boolean per known embedding: true when it lies within
// tolerance of the unknown embedding.
func CompareFaces(known [][]float64, unknown []float64, tolerance float64) []bool {
	matches := make([]bool, len(known))
	for i, k := range known {
		matches[i] = Distance(k, unknown) <= tolerance
	}
	return matches
}

// Vote tallies the labels of records whose match flag is set and returns the most
// frequent one. Ties go to the label that was counted first. The boolean is false when
// nothing matched.
func Vote(records []types.Record, matches []bool) (string, bool) {
	counts := make(map[string]int)
	var order []string
	for i, rec := range records {
		if i >= len(matches) || !matches[i] {
			continue
		}
		if _, seen := counts[rec.Label]; !seen {
			order = append(order, rec.Label)
		}
		counts[rec.Label]++
	}

	if len(order) == 0 {
		return "", false
	}

	best := order[0]
	for _, label := range order[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return best, true
}

// Recognize compares the unknown embedding against every record and votes.
func Recognize(records []types.Record, unknown []float64, tolerance float64) (string, bool) {
	known := make([][]float64, len(records))
	for i, rec := range records {
		known[i] = rec.Embedding
	}
	return Vote(records, CompareFaces(known, unknown, tolerance))
}
