// Package summary writes the one-paragraph description shown at the top of a
// session report.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = "claude-3-5-haiku-20241022"
	DefaultMaxTokens = 150
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	model     string
	maxTokens int64
	opts      []option.RequestOption
}

// NewAnthropicClient returns a client for model. An empty model selects
// DefaultModel.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicClient{
		model:     model,
		maxTokens: DefaultMaxTokens,
		// The caller bounds the call with its context; a retry would only
		// eat into that budget.
		opts: []option.RequestOption{
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		},
	}
}

// WithBaseURL points the client at another endpoint.
func (c *AnthropicClient) WithBaseURL(u string) *AnthropicClient {
	c.opts = append(c.opts, option.WithBaseURL(u))
	return c
}

// Generate sends prompt as a single user message and returns the text blocks
// of the reply.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	client := anthropic.NewClient(c.opts...)
	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", apiError(err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, ""), nil
}

// apiError reduces an API failure to its status and error message.
func apiError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic request failed: %w", err)
	}
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(apiErr.RawJSON()), &envelope) == nil && envelope.Error.Message != "" {
		return fmt.Errorf("anthropic API error (%d %s): %s", apiErr.StatusCode, envelope.Error.Type, envelope.Error.Message)
	}
	return fmt.Errorf("anthropic API error: status %d: %w", apiErr.StatusCode, err)
}
