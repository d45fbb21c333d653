// Package openai provides a completion adapter for OpenAI-compatible
// chat completion APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"ai-interview-engine/internal/service/completion"
)

// Provider implements completion.Provider over the chat completions
// HTTP endpoint of an OpenAI-compatible API.
type Provider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New creates a new OpenAI-compatible provider.
func New(baseURL, apiKey, model string, timeout time.Duration) *Provider {
	return &Provider{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *responseFmt  `json:"response_format,omitempty"`
}

type responseFmt struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete performs one chat completion exchange.
func (p *Provider) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	payload := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens: req.MaxTokens,
	}
	if req.JSONResponse {
		payload.ResponseFormat = &responseFmt{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return completion.Response{}, errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return completion.Response{}, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return completion.Response{}, errors.Wrap(err, "provider call")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return completion.Response{}, errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return completion.Response{}, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return completion.Response{}, errors.Wrap(err, "decode response")
	}
	if len(parsed.Choices) == 0 {
		return completion.Response{}, errors.New("provider returned no choices")
	}

	return completion.Response{
		Text: parsed.Choices[0].Message.Content,
		Usage: completion.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}
