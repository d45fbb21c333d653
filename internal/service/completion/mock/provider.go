// Package mock provides a scriptable completion provider for testing and
// local development without provider credentials.
package mock

import (
	"context"
	"sync"

	"ai-interview-engine/internal/service/completion"
)

// Provider implements completion.Provider with scripted responses. If no
// responses are queued it answers with canned JSON that satisfies both
// the analyzer and the question generator.
type Provider struct {
	mu        sync.Mutex
	responses []scripted
	requests  []completion.Request
}

type scripted struct {
	resp completion.Response
	err  error
}

// New creates an empty mock provider.
func New() *Provider {
	return &Provider{}
}

// QueueResponse scripts the next successful response.
func (p *Provider) QueueResponse(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, scripted{
		resp: completion.Response{
			Text:  text,
			Usage: completion.Usage{PromptTokens: 100, CompletionTokens: 50},
		},
	})
}

// QueueError scripts the next call to fail.
func (p *Provider) QueueError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, scripted{err: err})
}

// Requests returns a copy of all requests received so far.
func (p *Provider) Requests() []completion.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]completion.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Complete returns the next scripted response, or a canned default.
func (p *Provider) Complete(ctx context.Context, req completion.Request) (completion.Response, error) {
	if err := ctx.Err(); err != nil {
		return completion.Response{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)

	if len(p.responses) > 0 {
		next := p.responses[0]
		p.responses = p.responses[1:]
		return next.resp, next.err
	}

	return completion.Response{
		Text:  defaultText(req),
		Usage: completion.Usage{PromptTokens: 100, CompletionTokens: 50},
	}, nil
}

func defaultText(req completion.Request) string {
	if req.JSONResponse {
		return `{"confidence":0.75,"technical_accuracy":0.75,"depth_of_understanding":0.7,"hesitation_indicators":[],"proficiency":"proficient","question":"Can you walk me through how you would design a rate limiter?","skill_area":"system_design"}`
	}
	return "Can you walk me through how you would design a rate limiter?"
}
