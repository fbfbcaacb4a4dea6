package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const extractorModel = "claude-3-5-haiku-20241022"

const extractionPrompt = `Extract the city and country the user wants to explore from the message below.
Reply with exactly "City, Country" and nothing else. If the message names no city or country, reply with exactly "NONE".

Message: `

// AnthropicExtractor resolves locations with a small Anthropic model. It
// handles phrasing the rule-based extractor cannot ("the Belgian port city
// with the diamond district").
type AnthropicExtractor struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicExtractor creates an LLM-backed extractor.
func NewAnthropicExtractor(apiKey string) (*AnthropicExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("llm: Anthropic API key is required")
	}

	return &AnthropicExtractor{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  extractorModel,
	}, nil
}

// ExtractLocation asks the model for a "City, Country" answer.
func (e *AnthropicExtractor) ExtractLocation(ctx context.Context, text string) (*Location, error) {
	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(e.model),
		MaxTokens: anthropic.F(int64(64)),
		Messages: anthropic.F([]anthropic.MessageParam{
			{
				Role: anthropic.F(anthropic.MessageParamRoleUser),
				Content: anthropic.F([]anthropic.ContentBlockParamUnion{
					anthropic.TextBlockParam{
						Type: anthropic.F(anthropic.TextBlockParamTypeText),
						Text: anthropic.F(extractionPrompt + text),
					},
				}),
			},
		}),
	})
	if err != nil {
		return nil, err
	}

	var reply string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			reply += block.Text
		}
	}

	reply = strings.TrimSpace(reply)
	if reply == "" || strings.EqualFold(reply, "NONE") {
		return nil, nil
	}

	city, country, found := strings.Cut(reply, ",")
	if !found {
		return nil, nil
	}

	city = strings.TrimSpace(city)
	country = strings.TrimSpace(country)
	if city == "" || country == "" {
		return nil, nil
	}
	return &Location{City: city, Country: country}, nil
}
