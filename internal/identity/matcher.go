package identity

import (
	"errors"
	"fmt"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/moodreel/internal/constants"
	"github.com/kozaktomas/moodreel/internal/detect"
)

// ErrEmptyReferenceSet is returned when building a reference set with no embeddings.
var ErrEmptyReferenceSet = errors.New("reference set has no embeddings")

// ReferenceSet holds the embeddings of all faces detected on the reference
// photos. Large sets also carry an HNSW index with cosine distance; small
// sets scan linearly. Both paths produce the same match verdicts because
// the final score is always the exact cosine similarity.
type ReferenceSet struct {
	embeddings [][]float32
	graph      *hnsw.Graph[int]
}

// BuildReferenceSet creates an immutable reference set from face embeddings.
func BuildReferenceSet(embeddings [][]float32) (*ReferenceSet, error) {
	if len(embeddings) == 0 {
		return nil, ErrEmptyReferenceSet
	}
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return nil, fmt.Errorf("reference embedding %d is empty", i)
		}
	}

	rs := &ReferenceSet{embeddings: embeddings}

	if len(embeddings) >= constants.HNSWLinearScanCutover {
		g := hnsw.NewGraph[int]()
		g.M = constants.HNSWMaxNeighbors
		g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors) // Standard HNSW formula
		g.Distance = hnsw.CosineDistance

		for i, emb := range embeddings {
			g.Add(hnsw.MakeNode(i, emb))
		}
		rs.graph = g
	}

	return rs, nil
}

// Size returns the number of reference embeddings.
func (rs *ReferenceSet) Size() int {
	return len(rs.embeddings)
}

// bestSimilarity returns the maximum cosine similarity between the query
// and any reference embedding.
func (rs *ReferenceSet) bestSimilarity(query []float32) float64 {
	if rs.graph != nil {
		neighbors := rs.graph.Search(query, 1)
		if len(neighbors) > 0 {
			// Score with the exact similarity from the node value so the
			// HNSW path and the linear path agree.
			return CosineSimilarity(query, neighbors[0].Value)
		}
		return 0
	}

	best := -1.0
	for _, ref := range rs.embeddings {
		if sim := CosineSimilarity(query, ref); sim > best {
			best = sim
		}
	}
	return best
}

// Matcher scores detection records against a reference set.
// The threshold is fixed for the matcher's lifetime and never varied per run.
type Matcher struct {
	refs      *ReferenceSet
	threshold float64
}

// NewMatcher creates a matcher with the given similarity threshold.
func NewMatcher(refs *ReferenceSet, threshold float64) *Matcher {
	return &Matcher{refs: refs, threshold: threshold}
}

// BestFace returns the index of the face with the highest similarity to any
// reference embedding, and that similarity. Returns (-1, 0) for records
// with no faces.
func (m *Matcher) BestFace(record *detect.Record) (int, float64) {
	bestIdx := -1
	bestScore := 0.0
	for i := range record.Faces {
		sim := m.refs.bestSimilarity(record.Faces[i].Embedding)
		if bestIdx == -1 || sim > bestScore {
			bestIdx = i
			bestScore = sim
		}
	}
	return bestIdx, bestScore
}

// Match reports whether the record contains the reference person and the
// score that decided it. Zero faces is a non-match, not an error.
func (m *Matcher) Match(record *detect.Record) (bool, float64) {
	idx, score := m.BestFace(record)
	if idx < 0 {
		return false, 0
	}
	return score > m.threshold, score
}
