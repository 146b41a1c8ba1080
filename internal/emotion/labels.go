// Package emotion aggregates per-face emotion probabilities into photo-level
// labels, batch tallies and the cinematic theme used for synthesis.
package emotion

// Labels is the closed set of emotion labels in canonical order.
// The order doubles as the tie-break rule: when scores or counts are equal,
// the earlier label wins. All aggregation is deterministic because of it.
var Labels = []string{"happy", "sad", "angry", "fear", "surprise", "disgust", "neutral"}

// Dominant returns the arg-max label of a probability vector.
// Ties break by label order; labels missing from the map count as zero.
// Unknown keys in the map are ignored.
func Dominant(probs map[string]float64) string {
	best := Labels[0]
	bestScore := probs[best]
	for _, label := range Labels[1:] {
		if probs[label] > bestScore {
			best = label
			bestScore = probs[label]
		}
	}
	return best
}

// Tally counts matched photos per emotion label.
type Tally map[string]int

// NewTally creates a tally with all labels present at zero.
func NewTally() Tally {
	t := make(Tally, len(Labels))
	for _, label := range Labels {
		t[label] = 0
	}
	return t
}

// Add counts one photo for a label. Unknown labels are dropped.
func (t Tally) Add(label string) {
	if _, ok := t[label]; ok {
		t[label]++
	}
}

// Total returns the number of counted photos.
func (t Tally) Total() int {
	sum := 0
	for _, label := range Labels {
		sum += t[label]
	}
	return sum
}

// Dominant returns the label with the highest count, ties broken by label
// order. Returns the empty string for an empty tally.
func (t Tally) Dominant() string {
	if t.Total() == 0 {
		return ""
	}
	best := Labels[0]
	for _, label := range Labels[1:] {
		if t[label] > t[best] {
			best = label
		}
	}
	return best
}
