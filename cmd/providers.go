package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/moodreel/internal/ai"
	"github.com/kozaktomas/moodreel/internal/config"
	"github.com/kozaktomas/moodreel/internal/detect"
	"github.com/kozaktomas/moodreel/internal/store/postgres"
)

// Prices per 1M tokens, in USD.
var (
	openAIPricing = ai.RequestPricing{Input: 0.40, Output: 1.60}
	geminiPricing = ai.RequestPricing{Input: 0.30, Output: 2.50}
)

// newDetectionCache wires the HTTP detector with an LRU cache and, when a
// database is configured, a pgvector-backed persistent store. The returned
// pool is nil when running without a database and must be closed otherwise.
func newDetectionCache(cfg *config.Config) (*detect.Cache, *postgres.Pool, error) {
	detector := detect.NewHTTPDetector(cfg.Detector.URL)

	if cfg.Database.URL == "" {
		return detect.NewCache(detector, nil, cfg.Detector.CacheCapacity), nil, nil
	}

	fmt.Println("Connecting to PostgreSQL database...")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	store := postgres.NewDetectionRepository(pool)
	return detect.NewCache(detector, store, cfg.Detector.CacheCapacity), pool, nil
}

// newCaptioner creates the caption provider, or nil when captions are off.
func newCaptioner(ctx context.Context, cfg *config.Config, providerName string) (ai.Provider, error) {
	switch providerName {
	case "none", "":
		return nil, nil
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		return ai.NewOpenAIProvider(cfg.OpenAI.Token, openAIPricing), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		provider, err := ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey, geminiPricing)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown caption provider: %s (supported: openai, gemini, none)", providerName)
	}
}
