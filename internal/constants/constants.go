// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultMatchThreshold is the default minimum cosine similarity for a
	// candidate photo to count as containing the reference person.
	// Higher values = stricter matching.
	DefaultMatchThreshold = 0.50

	// HNSWLinearScanCutover is the reference-set size below which the matcher
	// scans embeddings linearly instead of consulting the HNSW index.
	HNSWLinearScanCutover = 64

	// HNSWMaxNeighbors is the M parameter for HNSW graph construction.
	HNSWMaxNeighbors = 16
)

// Detection constants
const (
	// DefaultCacheCapacity is the default number of detection records kept
	// in the in-memory LRU cache.
	DefaultCacheCapacity = 256

	// WorkerPoolSize is the default number of parallel workers for photo analysis.
	WorkerPoolSize = 4
)

// Audio constants
const (
	// DefaultSampleRate is the default PCM sample rate in Hz.
	DefaultSampleRate = 44100

	// DefaultVideoDuration is the default soundtrack and video length in seconds.
	DefaultVideoDuration = 30.0

	// FadeFraction is the share of the track duration used for fade in/out.
	FadeFraction = 0.05

	// MinFadeSeconds is the minimum fade window regardless of track length.
	MinFadeSeconds = 1.0

	// PeakHeadroom is the target peak level after normalization.
	PeakHeadroom = 0.8
)

// Video constants
const (
	// FrameWidth is the output video width in pixels.
	FrameWidth = 1280

	// FrameHeight is the output video height in pixels.
	FrameHeight = 720

	// FramesPerSecond is the output video frame rate.
	FramesPerSecond = 30
)

// Upload constants
const (
	// MaxUploadBytes is the maximum size of a multipart upload request.
	MaxUploadBytes = 64 << 20
)
