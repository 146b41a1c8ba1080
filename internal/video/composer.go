package video

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kozaktomas/moodreel/internal/audio"
	"github.com/kozaktomas/moodreel/internal/constants"
	"github.com/kozaktomas/moodreel/internal/detect"
)

// CompositionError reports a failed video composition.
type CompositionError struct {
	Stage string
	Err   error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("video composition failed at %s: %v", e.Stage, e.Err)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// Artifact describes a rendered video on disk.
type Artifact struct {
	ID         string  `json:"id"`
	Path       string  `json:"-"`
	Duration   float64 `json:"duration"`
	PhotoCount int     `json:"photo_count"`
	Theme      string  `json:"theme"`
}

// commandRunner executes an external command. Tests inject a fake so
// composition logic runs without ffmpeg installed.
type commandRunner func(ctx context.Context, name string, args ...string) error

// Composer renders slideshow videos with ffmpeg.
type Composer struct {
	ffmpegBin string
	outDir    string
	width     int
	height    int
	fps       int
	run       commandRunner
}

// NewComposer constructs a composer writing videos into outDir.
func NewComposer(ffmpegBin, outDir string) *Composer {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &Composer{
		ffmpegBin: ffmpegBin,
		outDir:    outDir,
		width:     constants.FrameWidth,
		height:    constants.FrameHeight,
		fps:       constants.FramesPerSecond,
		run:       defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (c *Composer) WithCommandRunner(r commandRunner) {
	if c != nil && r != nil {
		c.run = r
	}
}

// PlanDurations splits the total duration over count photos. Each photo gets
// an equal whole-frame share; the integer-frame remainder goes to the last
// photo so the durations sum exactly to the frame-quantized total.
func PlanDurations(total float64, count, fps int) []float64 {
	if count <= 0 {
		return nil
	}
	totalFrames := int(math.Round(total * float64(fps)))
	base := totalFrames / count
	rem := totalFrames % count

	durations := make([]float64, count)
	for i := range durations {
		frames := base
		if i == count-1 {
			frames += rem
		}
		durations[i] = float64(frames) / float64(fps)
	}
	return durations
}

// Compose renders the photos into a slideshow synchronized with the track.
// Photos keep their upload order. The operation is atomic: the video is
// rendered to a temporary file and renamed into place on success.
func (c *Composer) Compose(ctx context.Context, photos []detect.Photo, track *audio.Track, themeName string) (*Artifact, error) {
	if len(photos) == 0 {
		return nil, &CompositionError{Stage: "validate", Err: fmt.Errorf("no photos to compose")}
	}
	if track == nil || len(track.Samples) == 0 {
		return nil, &CompositionError{Stage: "validate", Err: fmt.Errorf("empty audio track")}
	}

	workDir, err := os.MkdirTemp("", "moodreel-render-")
	if err != nil {
		return nil, &CompositionError{Stage: "workspace", Err: err}
	}
	defer os.RemoveAll(workDir)

	// Render frames, skipping photos that cannot be decoded.
	var framePaths []string
	for i, photo := range photos {
		frame, err := renderFrame(photo.Data, c.width, c.height)
		if err != nil {
			log.Printf("skipping undecodable photo %s: %v", photo.Name, err)
			continue
		}
		path := filepath.Join(workDir, fmt.Sprintf("frame-%04d.jpg", i))
		if err := os.WriteFile(path, frame, 0600); err != nil {
			return nil, &CompositionError{Stage: "frames", Err: err}
		}
		framePaths = append(framePaths, path)
	}
	if len(framePaths) == 0 {
		return nil, &CompositionError{Stage: "frames", Err: fmt.Errorf("no decodable photos")}
	}

	wavPath := filepath.Join(workDir, "audio.wav")
	if err := audio.WriteWAVFile(wavPath, track); err != nil {
		return nil, &CompositionError{Stage: "audio", Err: err}
	}

	listPath := filepath.Join(workDir, "frames.txt")
	durations := PlanDurations(track.Duration(), len(framePaths), c.fps)
	if err := os.WriteFile(listPath, []byte(buildConcatList(framePaths, durations)), 0600); err != nil {
		return nil, &CompositionError{Stage: "frames", Err: err}
	}

	if err := os.MkdirAll(c.outDir, 0750); err != nil {
		return nil, &CompositionError{Stage: "output", Err: err}
	}

	id := uuid.NewString()
	outPath := filepath.Join(c.outDir, id+".mp4")
	tmpPath := filepath.Join(c.outDir, ".render-"+id+".mp4.tmp")

	args := c.buildFFmpegArgs(listPath, wavPath, tmpPath, track.Duration())
	if err := c.run(ctx, c.ffmpegBin, args...); err != nil {
		_ = os.Remove(tmpPath)
		return nil, &CompositionError{Stage: "ffmpeg", Err: err}
	}

	if _, err := os.Stat(tmpPath); err != nil {
		return nil, &CompositionError{Stage: "ffmpeg", Err: fmt.Errorf("ffmpeg did not produce output file: %w", err)}
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, &CompositionError{Stage: "output", Err: err}
	}

	return &Artifact{
		ID:         id,
		Path:       outPath,
		Duration:   track.Duration(),
		PhotoCount: len(framePaths),
		Theme:      themeName,
	}, nil
}

// buildConcatList writes the ffmpeg concat demuxer script. The final frame
// is repeated without a duration because the demuxer drops the last entry's
// duration otherwise.
func buildConcatList(framePaths []string, durations []float64) string {
	var b strings.Builder
	for i, path := range framePaths {
		fmt.Fprintf(&b, "file '%s'\n", path)
		fmt.Fprintf(&b, "duration %.6f\n", durations[i])
	}
	fmt.Fprintf(&b, "file '%s'\n", framePaths[len(framePaths)-1])
	return b.String()
}

// buildFFmpegArgs constructs the ffmpeg command arguments.
func (c *Composer) buildFFmpegArgs(listPath, wavPath, outPath string, duration float64) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-i", wavPath,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", c.fps),
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", fmt.Sprintf("%.6f", duration),
		"-movflags", "+faststart",
		outPath,
	}
}

// defaultCommandRunner executes ffmpeg commands.
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Include output in error for debugging
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
