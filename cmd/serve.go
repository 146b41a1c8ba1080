package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/moodreel/internal/config"
	"github.com/kozaktomas/moodreel/internal/pipeline"
	"github.com/kozaktomas/moodreel/internal/video"
	"github.com/kozaktomas/moodreel/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the moodreel web server.
The server exposes a JSON API for uploading reference and candidate
photos, running the mood analysis and downloading rendered videos.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("caption-provider", "none", "Caption provider: openai, gemini, none")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
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

	composer := video.NewComposer(cfg.Video.FFmpegBin, cfg.Video.OutputDir)
	pipe := pipeline.New(cache, composer, pipeline.Options{
		Threshold:   cfg.Match.Threshold,
		Workers:     cfg.Match.Workers,
		SampleRate:  cfg.Audio.SampleRate,
		FadeSeconds: cfg.Audio.FadeSeconds,
	})

	server := web.NewServer(cfg, pipe, captioner)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting moodreel API on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
