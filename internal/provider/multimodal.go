package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/maauso/clawhark/internal/gemini"
)

// MultimodalProvider adapts the Gemini client to the Provider interface.
// Its output is free text formatted by the model; it is never parsed into
// utterances and is rendered verbatim.
type MultimodalProvider struct {
	client gemini.Client
	prompt string
}

// NewMultimodalProvider creates a provider backed by a Gemini client.
// An empty prompt selects gemini.DefaultPrompt.
func NewMultimodalProvider(client gemini.Client, prompt string) *MultimodalProvider {
	if prompt == "" {
		prompt = gemini.DefaultPrompt
	}
	return &MultimodalProvider{client: client, prompt: prompt}
}

// Name implements Provider.
func (p *MultimodalProvider) Name() string {
	return NameGemini
}

// Transcribe sends the audio inline in a single request.
func (p *MultimodalProvider) Transcribe(ctx context.Context, req Request) (Result, error) {
	req.notify(Progress{Stage: StageSubmitted})

	res, err := p.client.Transcribe(ctx, req.AudioPath, p.prompt)
	if err != nil {
		return Result{}, classifyGemini(err)
	}
	return Result{Text: res.Text}, nil
}

// classifyGemini maps client errors onto the provider taxonomy.
func classifyGemini(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, gemini.ErrAPIKeyNotSet), errors.Is(err, gemini.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrAuth, err)
	case errors.Is(err, gemini.ErrNoText):
		return fmt.Errorf("%w: %w", ErrProvider, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}

// Compile-time check that MultimodalProvider implements Provider.
var _ Provider = (*MultimodalProvider)(nil)
