package identity

import (
	"math"
	"math/rand"
	"testing"

	"github.com/kozaktomas/moodreel/internal/detect"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"opposite vectors", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"scaled vectors", []float32{2, 0, 0}, []float32{5, 0, 0}, 1.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"empty vectors", []float32{}, []float32{}, 0.0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildReferenceSetValidation(t *testing.T) {
	if _, err := BuildReferenceSet(nil); err != ErrEmptyReferenceSet {
		t.Errorf("expected ErrEmptyReferenceSet, got %v", err)
	}
	if _, err := BuildReferenceSet([][]float32{{1, 0}, {}}); err == nil {
		t.Error("expected error for empty embedding in set")
	}
	rs, err := BuildReferenceSet([][]float32{{1, 0, 0}})
	if err != nil {
		t.Fatalf("BuildReferenceSet failed: %v", err)
	}
	if rs.Size() != 1 {
		t.Errorf("expected size 1, got %d", rs.Size())
	}
}

func record(faces ...detect.Face) *detect.Record {
	return &detect.Record{ContentID: "test", Faces: faces}
}

func TestMatcherMaxOverFacesAndReferences(t *testing.T) {
	refs, err := BuildReferenceSet([][]float32{
		{1, 0, 0},
		{0, 1, 0},
	})
	if err != nil {
		t.Fatalf("BuildReferenceSet failed: %v", err)
	}
	matcher := NewMatcher(refs, 0.5)

	// Second face is nearly aligned with the second reference; it must win.
	rec := record(
		detect.Face{Embedding: []float32{0.5, 0.5, 0.7071}},
		detect.Face{Embedding: []float32{0.05, 0.99, 0}},
	)

	idx, score := matcher.BestFace(rec)
	if idx != 1 {
		t.Errorf("expected best face index 1, got %d", idx)
	}
	if score < 0.99 {
		t.Errorf("expected score close to 1, got %v", score)
	}

	matched, matchScore := matcher.Match(rec)
	if !matched {
		t.Error("expected a match")
	}
	if matchScore != score {
		t.Errorf("Match score %v differs from BestFace score %v", matchScore, score)
	}
}

func TestMatcherZeroFacesIsNoMatch(t *testing.T) {
	refs, _ := BuildReferenceSet([][]float32{{1, 0, 0}})
	matcher := NewMatcher(refs, 0.5)

	matched, score := matcher.Match(record())
	if matched {
		t.Error("zero faces must not match")
	}
	if score != 0 {
		t.Errorf("expected score 0 for zero faces, got %v", score)
	}
}

func TestMatcherThresholdIsExclusive(t *testing.T) {
	refs, _ := BuildReferenceSet([][]float32{{1, 0, 0}})

	tests := []struct {
		name      string
		threshold float64
		embedding []float32
		matched   bool
	}{
		{"above threshold", 0.5, []float32{1, 0.1, 0}, true},
		{"exactly at threshold", 1.0, []float32{1, 0, 0}, false},
		{"below threshold", 0.9, []float32{1, 1, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := NewMatcher(refs, tt.threshold)
			matched, _ := matcher.Match(record(detect.Face{Embedding: tt.embedding}))
			if matched != tt.matched {
				t.Errorf("Match() = %v, want %v", matched, tt.matched)
			}
		})
	}
}

// randomUnitVector produces a deterministic pseudo-random embedding.
func randomUnitVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	var norm float64
	for i := range v {
		v[i] = float32(rng.NormFloat64())
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func TestHNSWPathAgreesWithLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const dim = 32

	// Enough references to trigger the HNSW index.
	embeddings := make([][]float32, 128)
	for i := range embeddings {
		embeddings[i] = randomUnitVector(rng, dim)
	}

	indexed, err := BuildReferenceSet(embeddings)
	if err != nil {
		t.Fatalf("BuildReferenceSet failed: %v", err)
	}
	if indexed.graph == nil {
		t.Fatal("expected HNSW index for a large reference set")
	}
	linear := &ReferenceSet{embeddings: embeddings}

	for i := range 20 {
		query := randomUnitVector(rng, dim)
		got := indexed.bestSimilarity(query)
		want := linear.bestSimilarity(query)
		// HNSW search is approximate; scores must still agree closely
		// enough to produce identical verdicts at any sane threshold.
		if math.Abs(got-want) > 0.05 {
			t.Errorf("query %d: HNSW score %v deviates from linear scan %v", i, got, want)
		}
	}
}
