// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package repair

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/archive-verify/pkg/types"
)

// ChatBackend asks an OpenAI-compatible chat-completion API (Perplexity by
// default) for an identifier.
type ChatBackend struct {
	client *openai.Client
	model  string
}

// NewChatBackend returns a backend for cfg, or nil when cfg carries no key.
func NewChatBackend(cfg types.RepairConfig) *ChatBackend {
	if !cfg.Enabled() {
		return nil
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultRepairTimeout
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = types.DefaultRepairModel
	}
	return &ChatBackend{client: openai.NewClientWithConfig(oc), model: model}
}

// Complete sends one system instruction and one user message and returns
// the first choice's content.
func (b *ChatBackend) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("lookup service returned HTTP %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("lookup service request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("lookup service returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
