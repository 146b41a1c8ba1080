package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/kozaktomas/moodreel/internal/emotion"
)

func TestSynthesizeInvalidDuration(t *testing.T) {
	theme := emotion.ThemeFor("happy")
	for _, d := range []float64{0, -1, -0.001} {
		if _, err := Synthesize(theme, d, Options{}); !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("duration %v: expected ErrInvalidDuration, got %v", d, err)
		}
	}
}

func TestSynthesizeSampleCount(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		rate     int
		expected int
	}{
		{"12 seconds at 44100", 12.0, 44100, 529200},
		{"one second at 8000", 1.0, 8000, 8000},
		{"fractional duration rounds", 0.5, 44100, 22050},
	}

	theme := emotion.ThemeFor("neutral")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, err := Synthesize(theme, tt.duration, Options{SampleRate: tt.rate})
			if err != nil {
				t.Fatalf("Synthesize failed: %v", err)
			}
			if len(track.Samples) != tt.expected {
				t.Errorf("got %d samples, want %d", len(track.Samples), tt.expected)
			}
			if math.Abs(track.Duration()-tt.duration) > 1.0/float64(tt.rate) {
				t.Errorf("Duration() = %v, want %v", track.Duration(), tt.duration)
			}
		})
	}
}

func TestSynthesizeEnvelopeEndpoints(t *testing.T) {
	for _, label := range emotion.Labels {
		t.Run(label, func(t *testing.T) {
			track, err := Synthesize(emotion.ThemeFor(label), 3.0, Options{SampleRate: 8000})
			if err != nil {
				t.Fatalf("Synthesize failed: %v", err)
			}
			if track.Samples[0] != 0 {
				t.Errorf("first sample = %v, want exactly 0", track.Samples[0])
			}
			if last := track.Samples[len(track.Samples)-1]; last != 0 {
				t.Errorf("last sample = %v, want exactly 0", last)
			}
		})
	}
}

func TestSynthesizeAmplitudeBounds(t *testing.T) {
	track, err := Synthesize(emotion.ThemeFor("angry"), 5.0, Options{SampleRate: 8000})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	var peak float64
	for i, s := range track.Samples {
		if s > 1 || s < -1 {
			t.Fatalf("sample %d = %v outside [-1, 1]", i, s)
		}
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	// Normalization targets the headroom level; the envelope only lowers it.
	if peak > 0.81 {
		t.Errorf("peak %v exceeds headroom target", peak)
	}
	if peak < 0.1 {
		t.Errorf("peak %v suspiciously low, synthesis produced near-silence", peak)
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	theme := emotion.ThemeFor("sad")
	a, err := Synthesize(theme, 2.0, Options{SampleRate: 8000})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	b, err := Synthesize(theme, 2.0, Options{SampleRate: 8000})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			t.Fatalf("sample %d differs between identical runs", i)
		}
	}
}

func TestSynthesizeFadeClampedToHalfTrack(t *testing.T) {
	// A very short track: the default 1 s minimum fade must clamp to half.
	track, err := Synthesize(emotion.ThemeFor("happy"), 0.5, Options{SampleRate: 8000})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	n := len(track.Samples)
	mid := track.Samples[n/2]
	if mid == 0 {
		// With fade-in and fade-out each clamped to half the track, the
		// midpoint still carries signal.
		t.Error("midpoint sample is zero, fade window swallowed the whole track")
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	track := &Track{SampleRate: 44100, Samples: []float64{0, 0.5, -0.5, 0}}

	var buf bytes.Buffer
	if err := EncodeWAV(&buf, track); err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	data := buf.Bytes()
	if len(data) != wavHeaderSize+len(track.Samples)*2 {
		t.Fatalf("got %d bytes, want %d", len(data), wavHeaderSize+len(track.Samples)*2)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		t.Error("missing fmt/data chunk markers")
	}

	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 44100 {
		t.Errorf("sample rate in header = %d, want 44100", rate)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Errorf("bits per sample = %d, want 16", bits)
	}
	if channels := binary.LittleEndian.Uint16(data[22:24]); channels != 1 {
		t.Errorf("channels = %d, want 1", channels)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); size != uint32(len(track.Samples)*2) {
		t.Errorf("data size = %d, want %d", size, len(track.Samples)*2)
	}

	// Spot-check PCM conversion of the 0.5 sample.
	sample := int16(binary.LittleEndian.Uint16(data[46:48]))
	expected := int16(math.Round(0.5 * math.MaxInt16))
	if sample != expected {
		t.Errorf("second PCM sample = %d, want %d", sample, expected)
	}
}
