// Package ai generates highlight captions for mood reports.
package ai

import (
	"context"

	"github.com/kozaktomas/moodreel/internal/emotion"
)

// Provider defines the interface for caption generation backends.
type Provider interface {
	Name() string
	HighlightCaption(
		ctx context.Context,
		theme emotion.ThemeProfile,
		tally emotion.Tally,
		photoCount int,
	) (*Caption, error)

	// Usage tracking.
	GetUsage() *Usage
	ResetUsage()
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens
type RequestPricing struct {
	Input  float64
	Output float64
}

// Caption is the generated highlight text for one analysis.
type Caption struct {
	// Title is a short headline for the reel, a few words.
	Title string `json:"title"`
	// Text is one or two sentences describing the mood of the collection.
	Text string `json:"text"`
}
