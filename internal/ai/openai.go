package ai

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/moodreel/internal/emotion"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

//go:embed prompts/caption.txt
var captionPrompt string

const chatModel = openai.ChatModelGPT4_1Mini

type OpenAIProvider struct {
	client      *openai.Client
	usage       Usage
	inputPrice  float64 // per 1M tokens
	outputPrice float64 // per 1M tokens
}

func NewOpenAIProvider(apiKey string, pricing RequestPricing) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client:      &client,
		inputPrice:  pricing.Input,
		outputPrice: pricing.Output,
	}
}

func (p *OpenAIProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *OpenAIProvider) ResetUsage() {
	p.usage = Usage{}
}

func (p *OpenAIProvider) trackUsage(inputTokens, outputTokens int64) {
	p.usage.InputTokens += int(inputTokens)
	p.usage.OutputTokens += int(outputTokens)
	p.usage.TotalCost += float64(inputTokens) / 1_000_000 * p.inputPrice
	p.usage.TotalCost += float64(outputTokens) / 1_000_000 * p.outputPrice
}

func (p *OpenAIProvider) Name() string {
	return chatModel
}

func (p *OpenAIProvider) HighlightCaption(
	ctx context.Context,
	theme emotion.ThemeProfile,
	tally emotion.Tally,
	photoCount int,
) (*Caption, error) {
	const maxRetries = 3

	systemPrompt, err := buildCaptionPrompt(theme, tally, photoCount)
	if err != nil {
		return nil, err
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(systemPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String("Write the caption."),
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    chatModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(200),
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from OpenAI")
		}

		// Track usage
		if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
			p.trackUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}

		content := resp.Choices[0].Message.Content
		lastResponse = content

		var caption Caption
		if err := json.Unmarshal([]byte(content), &caption); err != nil {
			lastError = err

			// Add assistant response and error feedback to messages for retry
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Remember to escape quotes inside strings with backslash.", err)),
						},
					},
				},
			)
			continue
		}

		return &caption, nil
	}

	return nil, fmt.Errorf("failed to parse caption JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}

// captionInput is the JSON summary handed to the model.
type captionInput struct {
	ThemeName       string         `json:"theme_name"`
	ThemeMood       string         `json:"theme_mood"`
	MusicalKey      string         `json:"musical_key"`
	DominantEmotion string         `json:"dominant_emotion"`
	EmotionCounts   map[string]int `json:"emotion_counts"`
	PhotoCount      int            `json:"photo_count"`
}

func buildCaptionPrompt(theme emotion.ThemeProfile, tally emotion.Tally, photoCount int) (string, error) {
	input := captionInput{
		ThemeName:       theme.Name,
		ThemeMood:       theme.Description,
		MusicalKey:      theme.Key,
		DominantEmotion: tally.Dominant(),
		EmotionCounts:   tally,
		PhotoCount:      photoCount,
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to encode caption input: %w", err)
	}
	return fmt.Sprintf(captionPrompt, string(payload)), nil
}
