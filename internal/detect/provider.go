// Package detect provides face detection with content-addressed caching.
// Detection runs against an InsightFace-style sidecar service; results are
// cached by the SHA-256 of the image bytes so re-uploads of the same content
// never trigger a second detection call.
package detect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Face represents a single detected face with its identity embedding
// and per-emotion probabilities.
type Face struct {
	BBox      []float64          `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64            `json:"det_score"`
	Embedding []float32          `json:"embedding"`
	Emotions  map[string]float64 `json:"emotions"`
}

// Record is the cached outcome of detection for one distinct image content.
// Zero faces is a valid record.
type Record struct {
	ContentID string `json:"content_id"`
	Faces     []Face `json:"faces"`
}

// Photo is an uploaded image with its original filename.
type Photo struct {
	Name string
	Data []byte
}

// Provider runs face detection on raw image bytes.
// An empty slice means no faces were found and is not an error.
type Provider interface {
	Detect(ctx context.Context, imageData []byte) ([]Face, error)
}

// Store is an optional persistent backend consulted on cache misses
// and written through on computes.
type Store interface {
	// Lookup returns the stored record for a content ID, or (nil, nil) when absent.
	Lookup(ctx context.Context, contentID string) (*Record, error)
	// Save persists a detection record.
	Save(ctx context.Context, record *Record) error
}

// ContentID returns the content identity of an image: the hex SHA-256 of its bytes.
// Identical bytes always map to the same ID regardless of filename.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DetectionError reports a failed detection for a single photo.
// Callers skip the photo and continue; the failure is never cached.
type DetectionError struct {
	ContentID string
	Photo     string
	Err       error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("detection failed for %s (content %.12s): %v", e.Photo, e.ContentID, e.Err)
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}
