package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/jonit-dev/night-watch-cli-sub005/clients"
)

const (
	DefaultModel     = "gpt-5-mini"
	defaultMaxTokens = 1024
)

// OpenAIClient implements the clients.AIClient interface over the Responses API
type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string, opts ...option.RequestOption) clients.AIClient {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Complete sends the prompt as a single input string; the system prompt travels as instructions
func (c *OpenAIClient) Complete(ctx context.Context, request clients.CompletionRequest) (string, error) {
	maxTokens := int64(request.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(maxTokens),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(request.Prompt)},
	}
	if request.System != "" {
		params.Instructions = openai.String(request.System)
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create openai response: %w", err)
	}

	return strings.TrimSpace(resp.OutputText()), nil
}
