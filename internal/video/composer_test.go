package video

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/moodreel/internal/audio"
	"github.com/kozaktomas/moodreel/internal/detect"
)

// createTestImage builds a small solid-color image.
func createTestImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, c)
		}
	}
	return img
}

// encodeJPEG encodes an image as JPEG bytes.
func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func testTrack(duration float64) *audio.Track {
	rate := 8000
	n := int(duration * float64(rate))
	return &audio.Track{SampleRate: rate, Samples: make([]float64, n)}
}

func TestPlanDurations(t *testing.T) {
	tests := []struct {
		name     string
		total    float64
		count    int
		fps      int
		expected []float64
	}{
		{
			"even split",
			10.0, 5, 30,
			[]float64{2.0, 2.0, 2.0, 2.0, 2.0},
		},
		{
			"remainder goes to last photo",
			5.0, 4, 30,
			[]float64{37.0 / 30, 37.0 / 30, 37.0 / 30, 39.0 / 30},
		},
		{
			"single photo",
			7.5, 1, 30,
			[]float64{7.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanDurations(tt.total, tt.count, tt.fps)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d durations, want %d", len(got), len(tt.expected))
			}
			var sum float64
			for i := range got {
				if math.Abs(got[i]-tt.expected[i]) > 1e-9 {
					t.Errorf("duration[%d] = %v, want %v", i, got[i], tt.expected[i])
				}
				sum += got[i]
			}
			// The sum must equal the frame-quantized total exactly.
			quantized := math.Round(tt.total*float64(tt.fps)) / float64(tt.fps)
			if math.Abs(sum-quantized) > 1e-9 {
				t.Errorf("durations sum to %v, want %v", sum, quantized)
			}
		})
	}
}

func TestPlanDurationsEmpty(t *testing.T) {
	if got := PlanDurations(10, 0, 30); got != nil {
		t.Errorf("expected nil for zero photos, got %v", got)
	}
}

func TestComposeRendersAtomically(t *testing.T) {
	outDir := t.TempDir()
	composer := NewComposer("ffmpeg", outDir)

	var gotArgs []string
	composer.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		// Simulate ffmpeg writing the output file (last argument).
		return os.WriteFile(args[len(args)-1], []byte("mp4"), 0600)
	})

	photos := []detect.Photo{
		{Name: "a.jpg", Data: encodeJPEG(t, createTestImage(640, 480, color.White))},
		{Name: "b.jpg", Data: encodeJPEG(t, createTestImage(480, 640, color.Black))},
	}

	artifact, err := composer.Compose(context.Background(), photos, testTrack(10), "Joyful Celebration")
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if artifact.PhotoCount != 2 {
		t.Errorf("photo count = %d, want 2", artifact.PhotoCount)
	}
	if artifact.Theme != "Joyful Celebration" {
		t.Errorf("theme = %q", artifact.Theme)
	}
	if math.Abs(artifact.Duration-10.0) > 1e-9 {
		t.Errorf("duration = %v, want 10", artifact.Duration)
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		t.Errorf("rendered video missing: %v", err)
	}
	if filepath.Dir(artifact.Path) != outDir {
		t.Errorf("video written outside output dir: %s", artifact.Path)
	}

	// The runner must have received a temporary path, not the final one.
	tmpArg := gotArgs[len(gotArgs)-1]
	if !strings.Contains(tmpArg, ".tmp") {
		t.Errorf("ffmpeg wrote directly to the final path: %s", tmpArg)
	}
	// No leftover temp files after the atomic rename.
	entries, _ := os.ReadDir(outDir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestComposeFFmpegArgs(t *testing.T) {
	composer := NewComposer("ffmpeg", t.TempDir())
	args := composer.buildFFmpegArgs("frames.txt", "audio.wav", "out.mp4", 12.5)

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-f concat", "-i frames.txt", "-i audio.wav",
		"-c:v libx264", "-c:a aac", "-t 12.500000", "-r 30",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("ffmpeg args missing %q: %s", want, joined)
		}
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("output path must be the last argument, got %s", args[len(args)-1])
	}
}

func TestComposeEmptyPhotoSet(t *testing.T) {
	composer := NewComposer("ffmpeg", t.TempDir())
	_, err := composer.Compose(context.Background(), nil, testTrack(5), "x")

	var compErr *CompositionError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected *CompositionError, got %v", err)
	}
}

func TestComposeNoDecodablePhotos(t *testing.T) {
	composer := NewComposer("ffmpeg", t.TempDir())
	composer.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		t.Error("ffmpeg must not run when no photo decodes")
		return nil
	})

	photos := []detect.Photo{{Name: "junk.jpg", Data: []byte("not an image")}}
	_, err := composer.Compose(context.Background(), photos, testTrack(5), "x")

	var compErr *CompositionError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected *CompositionError, got %v", err)
	}
}

func TestComposeFFmpegFailure(t *testing.T) {
	outDir := t.TempDir()
	composer := NewComposer("ffmpeg", outDir)
	composer.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("encoder exploded")
	})

	photos := []detect.Photo{
		{Name: "a.jpg", Data: encodeJPEG(t, createTestImage(64, 64, color.White))},
	}
	_, err := composer.Compose(context.Background(), photos, testTrack(5), "x")

	var compErr *CompositionError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected *CompositionError, got %v", err)
	}
	if compErr.Stage != "ffmpeg" {
		t.Errorf("stage = %q, want ffmpeg", compErr.Stage)
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("expected no output files after failure, found %d", len(entries))
	}
}

func TestLetterboxPreservesAspect(t *testing.T) {
	// Very wide source: letterboxed frame keeps black bars top and bottom.
	src := createTestImage(200, 50, color.White)
	frame := letterbox(src, 1280, 720)

	bounds := frame.Bounds()
	if bounds.Dx() != 1280 || bounds.Dy() != 720 {
		t.Fatalf("frame size = %dx%d, want 1280x720", bounds.Dx(), bounds.Dy())
	}

	// Top edge should be black padding, center should be white content.
	r, g, b, _ := frame.At(640, 5).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Error("expected black padding at the top edge")
	}
	r, g, b, _ = frame.At(640, 360).RGBA()
	if r == 0 && g == 0 && b == 0 {
		t.Error("expected image content at the center")
	}
}

func TestBuildConcatList(t *testing.T) {
	list := buildConcatList([]string{"/tmp/a.jpg", "/tmp/b.jpg"}, []float64{2, 3})
	lines := strings.Split(strings.TrimSpace(list), "\n")
	expected := []string{
		"file '/tmp/a.jpg'",
		"duration 2.000000",
		"file '/tmp/b.jpg'",
		"duration 3.000000",
		"file '/tmp/b.jpg'", // last frame repeated for the concat demuxer
	}
	if len(lines) != len(expected) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(expected), list)
	}
	for i := range lines {
		if lines[i] != expected[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], expected[i])
		}
	}
}
