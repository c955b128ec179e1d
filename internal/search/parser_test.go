package search

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aptscout/aptscout/pkg/anthropic"
	"github.com/aptscout/aptscout/pkg/gemini"
)

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockGemini struct {
	mock.Mock
}

func (m *mockGemini) Generate(ctx context.Context, req gemini.Request) (*gemini.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.Response), args.Error(1)
}

var testParams = ModelParams{Model: "test-model", MaxTokens: 300, Temperature: 0.7}

func TestAnthropicParser(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "test-model" &&
			req.MaxTokens == 300 &&
			req.Temperature != nil && *req.Temperature == 0.7 &&
			req.System == systemPrompt &&
			len(req.Messages) == 1 && req.Messages[0].Content == "2 bed under 3000 near bars"
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"apartments":{"filters":{"bedrooms":2,"maxPrice":3000}},"places":{"types":["bar"]}}`}},
	}, nil)

	c, err := NewAnthropicParser(client, testParams).Parse(context.Background(), "2 bed under 3000 near bars")
	require.NoError(t, err)
	assert.InDelta(t, 3000, *c.Apartments.Filters.MaxPrice, 1e-9)
	assert.Equal(t, []string{"bar"}, c.Places.Types)
	client.AssertExpectations(t)
}

func TestAnthropicParser_EmptyResponse(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{}, nil)

	_, err := NewAnthropicParser(client, testParams).Parse(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrEmptyAnalysis)
}

func TestAnthropicParser_APIError(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, eris.New("anthropic: create message: 529 overloaded"))

	_, err := NewAnthropicParser(client, testParams).Parse(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyze query")
}

func TestGeminiParser(t *testing.T) {
	client := &mockGemini{}
	client.On("Generate", mock.Anything, mock.MatchedBy(func(req gemini.Request) bool {
		return req.JSON && req.MaxTokens == 300 && req.System == systemPrompt && req.Prompt == "cheap studio"
	})).Return(&gemini.Response{Text: `{"apartments":{"filters":{"maxPrice":1200}},"places":{"types":[]}}`}, nil)

	c, err := NewGeminiParser(client, testParams).Parse(context.Background(), "cheap studio")
	require.NoError(t, err)
	assert.InDelta(t, 1200, *c.Apartments.Filters.MaxPrice, 1e-9)
	assert.Empty(t, c.Places.Types)
	client.AssertExpectations(t)
}

func TestGeminiParser_Error(t *testing.T) {
	client := &mockGemini{}
	client.On("Generate", mock.Anything, mock.Anything).Return(nil, eris.New("quota"))

	_, err := NewGeminiParser(client, testParams).Parse(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}
