package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kozaktomas/moodreel/internal/config"
	"github.com/kozaktomas/moodreel/internal/detect"
	"github.com/kozaktomas/moodreel/internal/emotion"
	"github.com/kozaktomas/moodreel/internal/pipeline"
	"github.com/kozaktomas/moodreel/internal/video"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [photos...]",
	Short: "Analyze photos and optionally render a slideshow video",
	Long: `Analyze a batch of photos against one or more reference photos of a
person. Photos containing the person are scored for facial emotion, the
emotions are aggregated into a mood report, and the matching photos can be
rendered into a slideshow video with a generated soundtrack.

Arguments may be image files or directories (scanned non-recursively).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSlice("reference", nil, "Reference photo of the person (repeatable)")
	analyzeCmd.Flags().Float64("threshold", 0, "Minimum cosine similarity for a match (overrides MATCH_THRESHOLD)")
	analyzeCmd.Flags().Int("workers", 0, "Parallel detection workers (overrides ANALYZE_WORKERS)")
	analyzeCmd.Flags().Bool("video", false, "Render the matched photos into a slideshow video")
	analyzeCmd.Flags().Float64("duration", 0, "Video duration in seconds (overrides VIDEO_DURATION_SECONDS)")
	analyzeCmd.Flags().String("caption-provider", "none", "Caption provider: openai, gemini, none")
	analyzeCmd.Flags().Bool("json", false, "Print the report as JSON")

	if err := analyzeCmd.MarkFlagRequired("reference"); err != nil {
		panic(err)
	}
}

// imageExtensions are the file types accepted when scanning directories.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// collectPhotoPaths expands files and directories into a flat path list.
func collectPhotoPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	return paths, nil
}

// loadPhotos reads image files into memory.
func loadPhotos(paths []string) ([]detect.Photo, error) {
	photos := make([]detect.Photo, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", path, err)
		}
		photos = append(photos, detect.Photo{Name: filepath.Base(path), Data: data})
	}
	return photos, nil
}

// warmDetectionCache runs detection over all photos with a progress bar so
// the subsequent analysis hits the cache.
func warmDetectionCache(ctx context.Context, cache *detect.Cache, photos []detect.Photo) {
	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionSetDescription("Detecting faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	for _, photo := range photos {
		if ctx.Err() != nil {
			return
		}
		// Failures are reported again during analysis; keep the bar moving.
		_, _ = cache.GetOrCompute(ctx, photo)
		_ = bar.Add(1)
	}
	fmt.Println()
}

func printReport(report emotion.Report, result *pipeline.AnalysisResult, asJSON bool) error {
	if asJSON {
		out := map[string]any{
			"report":  report,
			"matched": result.Matched,
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	fmt.Printf("\nMood: %s %s\n", report.Icon, report.Name)
	fmt.Printf("  %s\n", report.Description)
	fmt.Printf("  Dominant emotion: %s\n", report.DominantEmotion)
	fmt.Printf("  Soundtrack: %s at %.0f BPM\n", result.Theme.Key, result.Theme.Tempo)
	fmt.Printf("\nMatched photos: %d\n", len(result.Matched))
	for _, m := range result.Matched {
		fmt.Printf("  %s  (%s, score %.2f)\n", m.Name, m.Emotion, m.Score)
	}
	if report.Caption != "" {
		fmt.Printf("\n%s\n", report.Caption)
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if threshold := mustGetFloat64(cmd, "threshold"); threshold > 0 {
		cfg.Match.Threshold = threshold
	}
	if workers := mustGetInt(cmd, "workers"); workers > 0 {
		cfg.Match.Workers = workers
	}
	if duration := mustGetFloat64(cmd, "duration"); duration > 0 {
		cfg.Video.DurationSeconds = duration
	}
	renderVideo := mustGetBool(cmd, "video")
	asJSON := mustGetBool(cmd, "json")

	references, err := loadPhotos(mustGetStringSlice(cmd, "reference"))
	if err != nil {
		return err
	}

	photoPaths, err := collectPhotoPaths(args)
	if err != nil {
		return err
	}
	if len(photoPaths) == 0 {
		return errors.New("no photos found in the given paths")
	}
	photos, err := loadPhotos(photoPaths)
	if err != nil {
		return err
	}

	cache, pool, err := newDetectionCache(cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	captioner, err := newCaptioner(cmd.Context(), cfg, mustGetString(cmd, "caption-provider"))
	if err != nil {
		return err
	}

	// Set up context with signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	composer := video.NewComposer(cfg.Video.FFmpegBin, cfg.Video.OutputDir)
	pipe := pipeline.New(cache, composer, pipeline.Options{
		Threshold:   cfg.Match.Threshold,
		Workers:     cfg.Match.Workers,
		SampleRate:  cfg.Audio.SampleRate,
		FadeSeconds: cfg.Audio.FadeSeconds,
	})

	st := pipeline.NewState()
	fmt.Printf("Setting %d reference photo(s)...\n", len(references))
	if err := pipe.SetReferences(ctx, st, references); err != nil {
		return fmt.Errorf("setting references: %w", err)
	}

	warmDetectionCache(ctx, cache, photos)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	result, err := pipe.Analyze(ctx, st, photos)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report := emotion.BuildReport(result.Tally)
	if captioner != nil {
		caption, err := captioner.HighlightCaption(ctx, result.Theme, result.Tally, len(result.Matched))
		if err != nil {
			fmt.Printf("Warning: caption generation failed: %v\n", err)
		} else {
			report.Caption = caption.Text
		}

		usage := captioner.GetUsage()
		if usage.InputTokens > 0 || usage.OutputTokens > 0 {
			fmt.Printf("Caption API usage: %d input, %d output tokens ($%.4f)\n",
				usage.InputTokens, usage.OutputTokens, usage.TotalCost)
		}
	}

	if err := printReport(report, result, asJSON); err != nil {
		return err
	}

	if renderVideo {
		fmt.Printf("\nRendering %.0fs video...\n", cfg.Video.DurationSeconds)
		artifact, err := pipe.GenerateVideo(ctx, st, cfg.Video.DurationSeconds)
		if err != nil {
			return fmt.Errorf("video generation failed: %w", err)
		}
		fmt.Printf("Video written to %s (%d photos, %.1fs)\n", artifact.Path, artifact.PhotoCount, artifact.Duration)
	}

	return nil
}
