package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// snippetLen bounds how much of a raw response is echoed in errors.
const snippetLen = 200

// Static errors for Gemini client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key was configured.
	ErrAPIKeyNotSet = errors.New("gemini: API key is not set")
	// ErrAudioPathRequired is returned when the audio path is not provided.
	ErrAudioPathRequired = errors.New("gemini: audio path is required")
	// ErrNoText is returned when the response carries no candidate text.
	ErrNoText = errors.New("gemini: response has no candidate text")
	// ErrUnauthorized is returned when the server rejects the API key.
	ErrUnauthorized = errors.New("gemini: unauthorized")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("gemini: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("gemini: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("gemini: request failed")
)

// Client defines the interface for interacting with the Gemini API.
type Client interface {
	// Transcribe sends the audio file inline together with prompt and
	// returns the model's text answer.
	Transcribe(ctx context.Context, audioPath, prompt string) (Result, error)
}

// HTTPClient is the HTTP implementation of the Gemini Client interface.
type HTTPClient struct {
	apiKey      string
	model       string
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithModel sets the model name (e.g., "gemini-2.0-flash").
func WithModel(model string) ClientOption {
	return func(hc *HTTPClient) {
		hc.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the Gemini API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(hc *HTTPClient) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseBackoff = d
	}
}

// NewClient creates a new Gemini HTTP client.
// A missing API key is not an error here: every call then fails with
// ErrAPIKeyNotSet, so callers can degrade per request.
func NewClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		model:       DefaultModel,
		baseURL:     "https://generativelanguage.googleapis.com/v1beta",
		httpClient:  &http.Client{Timeout: 10 * time.Minute},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.model == "" {
		c.model = DefaultModel
	}

	return c
}

// HasAPIKey reports whether an API key is configured.
func (c *HTTPClient) HasAPIKey() bool {
	return c.apiKey != ""
}

// Transcribe sends the audio file inline with prompt and returns the text answer.
func (c *HTTPClient) Transcribe(ctx context.Context, audioPath, prompt string) (Result, error) {
	if c.apiKey == "" {
		return Result{}, ErrAPIKeyNotSet
	}
	if audioPath == "" {
		return Result{}, ErrAudioPathRequired
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}

	data, err := os.ReadFile(audioPath) // #nosec G304 - path comes from the pipeline
	if err != nil {
		return Result{}, fmt.Errorf("gemini: read audio: %w", err)
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: DetectAudioMIME(data),
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
				{Text: prompt},
			},
		}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	raw, err := c.doRequestWithRetry(ctx, url, bodyBytes)
	if err != nil {
		return Result{}, err
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrNoText, Snippet(raw))
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoText, Snippet(raw))
	}

	// A part without a text field (e.g. echoed inlineData) is not a transcript.
	text := resp.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrNoText, Snippet(raw))
	}

	return Result{
		Text: text,
		Raw:  raw,
	}, nil
}

// DetectAudioMIME returns the MIME type to declare for inline audio.
// Unrecognised content is declared as WAV.
func DetectAudioMIME(data []byte) string {
	m := mimetype.Detect(data)
	switch {
	case m.Is("audio/wav"):
		return "audio/wav"
	case m.Is("audio/x-m4a"), m.Is("audio/mp4"), m.Is("video/mp4"):
		return "audio/mp4"
	case m.Is("audio/mpeg"):
		return "audio/mp3"
	case m.Is("audio/flac"):
		return "audio/flac"
	case m.Is("audio/ogg"):
		return "audio/ogg"
	default:
		return "audio/wav"
	}
}

// Snippet returns at most the first 200 bytes of raw, for diagnostics.
func Snippet(raw []byte) string {
	if len(raw) > snippetLen {
		return string(raw[:snippetLen])
	}
	return string(raw)
}

// doRequestWithRetry performs a POST with exponential backoff retry and
// returns the raw response body.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, url string, body []byte) ([]byte, error) {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("gemini: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		raw, err := c.doRequest(ctx, url, body)
		if err == nil {
			return raw, nil
		}

		if !isRetryable(err) {
			return nil, err
		}

		lastErr = err
	}

	return nil, fmt.Errorf("gemini: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("gemini: request cancelled: %w", ctx.Err())
		}
		return nil, &retryableError{err: fmt.Errorf("gemini: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("gemini: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return nil, &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, Snippet(respBody))}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, Snippet(respBody))}
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w with status %d: %s", ErrUnauthorized, resp.StatusCode, Snippet(respBody))
		}
		return nil, fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, Snippet(respBody))
	}

	return respBody, nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
