// Package pipeline orchestrates the end-to-end flow: reference setup,
// concurrent photo analysis, emotion aggregation and video generation.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/kozaktomas/moodreel/internal/audio"
	"github.com/kozaktomas/moodreel/internal/constants"
	"github.com/kozaktomas/moodreel/internal/detect"
	"github.com/kozaktomas/moodreel/internal/emotion"
	"github.com/kozaktomas/moodreel/internal/identity"
	"github.com/kozaktomas/moodreel/internal/video"
)

// Options tunes the pipeline. Zero values fall back to the shared defaults.
type Options struct {
	Threshold   float64 // min cosine similarity for an identity match
	Workers     int     // parallel detection workers
	SampleRate  int     // audio sample rate in Hz
	FadeSeconds float64 // explicit audio fade override
}

// Pipeline wires the detection cache, matcher configuration, synthesizer
// and composer together.
type Pipeline struct {
	cache    *detect.Cache
	composer *video.Composer
	opts     Options
}

// New creates a pipeline.
func New(cache *detect.Cache, composer *video.Composer, opts Options) *Pipeline {
	if opts.Threshold <= 0 {
		opts.Threshold = constants.DefaultMatchThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = constants.WorkerPoolSize
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = constants.DefaultSampleRate
	}
	return &Pipeline{cache: cache, composer: composer, opts: opts}
}

// State holds one session's pipeline data: the reference set, the uploaded
// candidate photos, the latest analysis and rendered videos.
type State struct {
	References *identity.ReferenceSet
	Photos     []detect.Photo
	Analysis   *AnalysisResult
	Videos     map[string]*video.Artifact
}

// NewState creates empty pipeline state.
func NewState() *State {
	return &State{Videos: make(map[string]*video.Artifact)}
}

// MatchedPhoto is one candidate photo that contains the reference person.
type MatchedPhoto struct {
	Index   int     `json:"index"` // position in upload order
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Emotion string  `json:"emotion"`
}

// AnalysisResult is the outcome of analyzing one photo batch.
type AnalysisResult struct {
	Matched  []MatchedPhoto       `json:"matched"` // upload order
	Tally    emotion.Tally        `json:"tally"`
	Dominant string               `json:"dominant"`
	Theme    emotion.ThemeProfile `json:"theme"`
}

// SetReferences detects faces on each reference image and replaces the
// session's reference set wholesale. Any reference without a detectable
// face fails the whole operation, naming the offending image.
func (p *Pipeline) SetReferences(ctx context.Context, st *State, images []detect.Photo) error {
	if len(images) == 0 {
		return ErrNoReferences
	}

	var embeddings [][]float32
	for _, img := range images {
		record, err := p.cache.GetOrCompute(ctx, img)
		if err != nil {
			return fmt.Errorf("detecting reference faces: %w", err)
		}
		if len(record.Faces) == 0 {
			return fmt.Errorf("reference photo %q: %w", img.Name, ErrNoFaceInReference)
		}
		for i := range record.Faces {
			embeddings = append(embeddings, record.Faces[i].Embedding)
		}
	}

	refs, err := identity.BuildReferenceSet(embeddings)
	if err != nil {
		return fmt.Errorf("building reference set: %w", err)
	}

	st.References = refs
	st.Analysis = nil // stale against the new references
	return nil
}

// photoResult holds the detection outcome for a single photo
type photoResult struct {
	index  int
	record *detect.Record
	err    error
}

// Analyze runs detection over the photo batch with a bounded worker pool,
// matches each photo against the reference set and aggregates emotions.
// A failed detection skips that photo only; matching and aggregation are
// pure reductions over the surviving records.
func (p *Pipeline) Analyze(ctx context.Context, st *State, photos []detect.Photo) (*AnalysisResult, error) {
	if st.References == nil || st.References.Size() == 0 {
		return nil, ErrNoReferences
	}

	st.Photos = photos

	resultsChan := make(chan photoResult, len(photos))
	semaphore := make(chan struct{}, p.opts.Workers)
	var wg sync.WaitGroup

	for i := range photos {
		wg.Add(1)
		go func(idx int, photo detect.Photo) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				resultsChan <- photoResult{index: idx, err: ctx.Err()}
				return
			}

			record, err := p.cache.GetOrCompute(ctx, photo)
			resultsChan <- photoResult{index: idx, record: record, err: err}
		}(i, photos[i])
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect results maintaining upload order.
	results := make([]*photoResult, len(photos))
	for r := range resultsChan {
		results[r.index] = &r
	}

	matcher := identity.NewMatcher(st.References, p.opts.Threshold)
	tally := emotion.NewTally()
	var matched []MatchedPhoto

	for i, r := range results {
		if r == nil {
			log.Printf("skipping photo %s: no detection result", photos[i].Name)
			continue
		}
		if r.err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("skipping photo %s: %v", photos[i].Name, r.err)
			continue
		}

		faceIdx, score := matcher.BestFace(r.record)
		if faceIdx < 0 || score <= p.opts.Threshold {
			continue
		}

		// The face that produced the winning score decides the emotion.
		label := emotion.Dominant(r.record.Faces[faceIdx].Emotions)
		tally.Add(label)
		matched = append(matched, MatchedPhoto{
			Index:   i,
			Name:    photos[i].Name,
			Score:   score,
			Emotion: label,
		})
	}

	if len(matched) == 0 {
		return nil, ErrNoMatches
	}

	dominant := tally.Dominant()
	result := &AnalysisResult{
		Matched:  matched,
		Tally:    tally,
		Dominant: dominant,
		Theme:    emotion.ThemeFor(dominant),
	}
	st.Analysis = result
	return result, nil
}

// GenerateVideo synthesizes the soundtrack for the requested duration and
// composes the matched photos into a slideshow.
func (p *Pipeline) GenerateVideo(ctx context.Context, st *State, duration float64) (*video.Artifact, error) {
	if st.Analysis == nil || len(st.Analysis.Matched) == 0 {
		return nil, ErrNoMatches
	}

	track, err := audio.Synthesize(st.Analysis.Theme, duration, audio.Options{
		SampleRate:  p.opts.SampleRate,
		FadeSeconds: p.opts.FadeSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesizing soundtrack: %w", err)
	}

	photos := make([]detect.Photo, 0, len(st.Analysis.Matched))
	for _, m := range st.Analysis.Matched {
		if m.Index < len(st.Photos) {
			photos = append(photos, st.Photos[m.Index])
		}
	}

	artifact, err := p.composer.Compose(ctx, photos, track, st.Analysis.Theme.Name)
	if err != nil {
		return nil, err
	}

	if st.Videos == nil {
		st.Videos = make(map[string]*video.Artifact)
	}
	st.Videos[artifact.ID] = artifact
	return artifact, nil
}
