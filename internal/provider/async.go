package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maauso/clawhark/internal/assemblyai"
)

// Default polling parameters for asynchronous jobs.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxPolls     = 600
)

// AsyncJobProvider adapts the AssemblyAI upload/submit/poll client to the
// Provider interface.
type AsyncJobProvider struct {
	client       assemblyai.Client
	submitOpts   assemblyai.SubmitOptions
	pollInterval time.Duration
	maxPolls     int
}

// AsyncOption configures an AsyncJobProvider.
type AsyncOption func(*AsyncJobProvider)

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) AsyncOption {
	return func(p *AsyncJobProvider) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithMaxPolls sets the poll ceiling after which ErrPollTimeout is returned.
func WithMaxPolls(n int) AsyncOption {
	return func(p *AsyncJobProvider) {
		if n > 0 {
			p.maxPolls = n
		}
	}
}

// WithLanguage sets the language hint sent with each job.
func WithLanguage(code string) AsyncOption {
	return func(p *AsyncJobProvider) {
		p.submitOpts.LanguageCode = code
	}
}

// NewAsyncJobProvider creates a provider backed by an AssemblyAI client.
func NewAsyncJobProvider(client assemblyai.Client, opts ...AsyncOption) *AsyncJobProvider {
	p := &AsyncJobProvider{
		client:       client,
		submitOpts:   assemblyai.DefaultSubmitOptions(),
		pollInterval: DefaultPollInterval,
		maxPolls:     DefaultMaxPolls,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *AsyncJobProvider) Name() string {
	return NameAssemblyAI
}

// Transcribe uploads the audio, submits a diarized job and polls it until it
// completes, fails, or the poll ceiling is reached.
func (p *AsyncJobProvider) Transcribe(ctx context.Context, req Request) (Result, error) {
	uploadURL, err := p.client.Upload(ctx, req.AudioPath)
	if err != nil {
		return Result{}, classifyAssemblyAI(err, ErrUpload)
	}
	req.notify(Progress{Stage: StageUploaded})

	jobID, err := p.client.Submit(ctx, uploadURL, p.submitOpts)
	if err != nil {
		return Result{}, classifyAssemblyAI(err, ErrTransport)
	}
	req.notify(Progress{Stage: StageSubmitted, RemoteID: jobID})

	for poll := 1; poll <= p.maxPolls; poll++ {
		result, err := p.client.Poll(ctx, jobID)
		if err != nil {
			return Result{}, classifyAssemblyAI(err, ErrTransport)
		}
		req.notify(Progress{Stage: StagePolling, RemoteID: jobID, Status: string(result.Status), Poll: poll})

		switch result.Status {
		case assemblyai.StatusCompleted:
			return toResult(result), nil
		case assemblyai.StatusError:
			return Result{}, fmt.Errorf("%w: %s", ErrProvider, result.Error)
		}

		if poll == p.maxPolls {
			break
		}

		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("poll transcript %s: %w", jobID, ctx.Err())
		case <-time.After(p.pollInterval):
		}
	}

	return Result{}, fmt.Errorf("%w: transcript %s after %d polls", ErrPollTimeout, jobID, p.maxPolls)
}

func toResult(r assemblyai.PollResult) Result {
	out := Result{Text: r.Text}
	if len(r.Utterances) == 0 {
		return out
	}
	out.Utterances = make([]Utterance, len(r.Utterances))
	for i, u := range r.Utterances {
		out.Utterances[i] = Utterance{
			Speaker: u.Speaker,
			Start:   float64(u.StartMs) / 1000,
			Text:    u.Text,
		}
	}
	return out
}

// classifyAssemblyAI maps client errors onto the provider taxonomy.
func classifyAssemblyAI(err, fallback error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, assemblyai.ErrAPIKeyNotSet), errors.Is(err, assemblyai.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrAuth, err)
	case errors.Is(err, assemblyai.ErrNoTranscriptIDReturned):
		return fmt.Errorf("%w: %w", ErrProvider, err)
	default:
		return fmt.Errorf("%w: %w", fallback, err)
	}
}

// Compile-time check that AsyncJobProvider implements Provider.
var _ Provider = (*AsyncJobProvider)(nil)
