package ai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kozaktomas/moodreel/internal/emotion"
)

func TestBuildCaptionPrompt(t *testing.T) {
	theme := emotion.ThemeFor("happy")
	tally := emotion.NewTally()
	tally.Add("happy")
	tally.Add("happy")
	tally.Add("sad")

	prompt, err := buildCaptionPrompt(theme, tally, 3)
	if err != nil {
		t.Fatalf("buildCaptionPrompt failed: %v", err)
	}

	// The summary JSON must be embedded in the prompt.
	start := strings.Index(prompt, "{")
	if start < 0 {
		t.Fatalf("no JSON payload in prompt:\n%s", prompt)
	}
	end := strings.LastIndex(prompt, "}")
	payload := prompt[start : end+1]

	// The instruction block contains a JSON example too, so locate the
	// summary by its theme_name key.
	idx := strings.Index(prompt, `"theme_name"`)
	if idx < 0 {
		t.Fatalf("prompt missing theme summary:\n%s", prompt)
	}
	summaryStart := strings.LastIndex(prompt[:idx], "{")
	var input captionInput
	if err := json.Unmarshal([]byte(prompt[summaryStart:end+1]), &input); err != nil {
		t.Fatalf("summary payload is not valid JSON: %v\n%s", err, payload)
	}

	if input.ThemeName != "Joyful Celebration" {
		t.Errorf("theme_name = %q", input.ThemeName)
	}
	if input.DominantEmotion != "happy" {
		t.Errorf("dominant_emotion = %q", input.DominantEmotion)
	}
	if input.PhotoCount != 3 {
		t.Errorf("photo_count = %d", input.PhotoCount)
	}
	if input.EmotionCounts["happy"] != 2 || input.EmotionCounts["sad"] != 1 {
		t.Errorf("emotion_counts = %v", input.EmotionCounts)
	}
}

func TestUsageTracking(t *testing.T) {
	p := NewOpenAIProvider("test-key", RequestPricing{Input: 0.40, Output: 1.60})

	p.trackUsage(1_000_000, 500_000)
	usage := p.GetUsage()

	if usage.InputTokens != 1_000_000 {
		t.Errorf("input tokens = %d", usage.InputTokens)
	}
	if usage.OutputTokens != 500_000 {
		t.Errorf("output tokens = %d", usage.OutputTokens)
	}
	// 1M input at $0.40 + 0.5M output at $1.60
	want := 0.40 + 0.80
	if diff := usage.TotalCost - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("total cost = %v, want %v", usage.TotalCost, want)
	}

	p.ResetUsage()
	if p.GetUsage().TotalCost != 0 {
		t.Error("expected usage reset")
	}
}

func TestProviderNames(t *testing.T) {
	p := NewOpenAIProvider("test-key", RequestPricing{})
	if p.Name() == "" {
		t.Error("expected non-empty provider name")
	}
}

func TestCaptionJSONShape(t *testing.T) {
	raw := `{"title": "Golden Days", "text": "A week of easy smiles and warm light."}`
	var caption Caption
	if err := json.Unmarshal([]byte(raw), &caption); err != nil {
		t.Fatalf("failed to parse caption: %v", err)
	}
	if caption.Title != "Golden Days" {
		t.Errorf("title = %q", caption.Title)
	}
	if caption.Text == "" {
		t.Error("expected non-empty text")
	}
}
