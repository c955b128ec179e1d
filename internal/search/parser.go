package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/aptscout/aptscout/pkg/anthropic"
	"github.com/aptscout/aptscout/pkg/gemini"
)

// Parser turns a natural-language query into Criteria.
type Parser interface {
	Parse(ctx context.Context, query string) (*Criteria, error)
}

// ModelParams are the generation settings shared by every parser.
type ModelParams struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// AnthropicParser asks Claude for the criteria JSON.
type AnthropicParser struct {
	client anthropic.Client
	params ModelParams
}

// NewAnthropicParser creates an AnthropicParser.
func NewAnthropicParser(client anthropic.Client, params ModelParams) *AnthropicParser {
	return &AnthropicParser{client: client, params: params}
}

// Parse implements Parser.
func (p *AnthropicParser) Parse(ctx context.Context, query string) (*Criteria, error) {
	temp := p.params.Temperature
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.params.Model,
		MaxTokens:   p.params.MaxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: query}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: analyze query")
	}
	resp.Usage.LogUsage(p.params.Model, "search")
	return ParseCriteria(resp.Text())
}

// GeminiParser asks Gemini for the criteria JSON in JSON mode.
type GeminiParser struct {
	client gemini.Client
	params ModelParams
}

// NewGeminiParser creates a GeminiParser.
func NewGeminiParser(client gemini.Client, params ModelParams) *GeminiParser {
	return &GeminiParser{client: client, params: params}
}

// Parse implements Parser.
func (p *GeminiParser) Parse(ctx context.Context, query string) (*Criteria, error) {
	temp := float32(p.params.Temperature)
	resp, err := p.client.Generate(ctx, gemini.Request{
		Model:       p.params.Model,
		System:      systemPrompt,
		Prompt:      query,
		MaxTokens:   int32(p.params.MaxTokens),
		Temperature: &temp,
		JSON:        true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: analyze query")
	}
	return ParseCriteria(resp.Text)
}
