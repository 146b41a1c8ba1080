// Package audio procedurally synthesizes the emotion-themed soundtrack.
package audio

import (
	"errors"
	"math"

	"github.com/kozaktomas/moodreel/internal/constants"
	"github.com/kozaktomas/moodreel/internal/emotion"
)

// ErrInvalidDuration is returned for non-positive track durations.
var ErrInvalidDuration = errors.New("audio duration must be positive")

// Track is synthesized mono audio in normalized float samples.
type Track struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	return float64(len(t.Samples)) / float64(t.SampleRate)
}

// Options tunes synthesis beyond the theme itself.
type Options struct {
	SampleRate  int     // defaults to constants.DefaultSampleRate
	FadeSeconds float64 // explicit fade window; 0 derives it from the duration
}

// Synthesize renders a theme into a track of the requested duration.
// The waveform is an additive sum of the theme's chord and melody partials
// with a linear fade envelope; the first and last samples are exactly zero.
func Synthesize(theme emotion.ThemeProfile, duration float64, opts Options) (*Track, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	rate := opts.SampleRate
	if rate <= 0 {
		rate = constants.DefaultSampleRate
	}

	n := int(math.Round(duration * float64(rate)))
	if n < 2 {
		n = 2
	}
	samples := make([]float64, n)

	harmonics := theme.Harmonics
	if len(harmonics) == 0 {
		harmonics = []emotion.Harmonic{{Ratio: 1, Weight: 1}}
	}

	for i := range samples {
		t := float64(i) / float64(rate)
		var v float64

		// Sustained chord bed.
		for _, freq := range theme.Chord {
			for _, h := range harmonics {
				v += h.Weight * math.Sin(2*math.Pi*freq*h.Ratio*t)
			}
		}

		// Melody line on top, stepping through notes on the beat.
		if len(theme.Melody) > 0 && theme.Tempo > 0 {
			beat := int(t * theme.Tempo / 60.0)
			note := theme.Melody[beat%len(theme.Melody)]
			v += 0.5 * math.Sin(2*math.Pi*note*t)
		}

		// Slow amplitude modulation for uneasy themes.
		if theme.Tremolo.Depth > 0 {
			v *= 1 + theme.Tremolo.Depth*math.Sin(2*math.Pi*theme.Tremolo.Rate*t)
		}

		samples[i] = v
	}

	normalize(samples)
	applyFade(samples, rate, duration, opts.FadeSeconds)

	return &Track{SampleRate: rate, Samples: samples}, nil
}

// normalize scales the peak to the headroom target and clips to [-1, 1].
func normalize(samples []float64) {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	scale := constants.PeakHeadroom / peak
	for i := range samples {
		s := samples[i] * scale
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		samples[i] = s
	}
}

// applyFade applies a linear fade-in and symmetric fade-out.
// The window is max(MinFadeSeconds, FadeFraction of the duration) unless an
// explicit window is given, and never more than half the track. The ramp
// forces sample 0 and the final sample to exactly zero.
func applyFade(samples []float64, rate int, duration, fadeSeconds float64) {
	if fadeSeconds <= 0 {
		fadeSeconds = math.Max(constants.MinFadeSeconds, constants.FadeFraction*duration)
	}
	if half := duration / 2; fadeSeconds > half {
		fadeSeconds = half
	}

	n := len(samples)
	fadeN := int(fadeSeconds * float64(rate))
	if fadeN > n/2 {
		fadeN = n / 2
	}
	if fadeN < 1 {
		fadeN = 1
	}

	for i := 0; i < fadeN; i++ {
		gain := float64(i) / float64(fadeN)
		samples[i] *= gain
		samples[n-1-i] *= gain
	}
}
