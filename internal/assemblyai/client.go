package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Static errors for AssemblyAI client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key was configured.
	ErrAPIKeyNotSet = errors.New("assemblyai: API key is not set")
	// ErrAudioPathRequired is returned when the audio path is not provided.
	ErrAudioPathRequired = errors.New("assemblyai: audio path is required")
	// ErrUploadURLRequired is returned when submitting without an upload URL.
	ErrUploadURLRequired = errors.New("assemblyai: upload URL is required")
	// ErrTranscriptIDRequired is returned when the transcript ID is not provided.
	ErrTranscriptIDRequired = errors.New("assemblyai: transcript ID is required")
	// ErrNoUploadURLReturned is returned when the upload response contains no URL.
	ErrNoUploadURLReturned = errors.New("assemblyai: upload failed: no upload URL returned")
	// ErrNoTranscriptIDReturned is returned when the submit response contains no ID.
	ErrNoTranscriptIDReturned = errors.New("assemblyai: submit failed: no transcript ID returned")
	// ErrUnauthorized is returned when the server rejects the API key.
	ErrUnauthorized = errors.New("assemblyai: unauthorized")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("assemblyai: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("assemblyai: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("assemblyai: request failed")
)

// Client defines the interface for interacting with the AssemblyAI API.
type Client interface {
	// Upload sends a local audio file and returns the upload URL to reference it.
	Upload(ctx context.Context, audioPath string) (uploadURL string, err error)

	// Submit starts a transcript job for an uploaded file and returns its ID.
	Submit(ctx context.Context, uploadURL string, opts SubmitOptions) (transcriptID string, err error)

	// Poll checks the status of a transcript job and returns the result.
	Poll(ctx context.Context, transcriptID string) (PollResult, error)
}

// HTTPClient is the HTTP implementation of the AssemblyAI Client interface.
type HTTPClient struct {
	apiKey      string
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

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the AssemblyAI API.
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

// NewClient creates a new AssemblyAI HTTP client.
// A missing API key is not an error here: every call then fails with
// ErrAPIKeyNotSet, so callers can degrade per request.
func NewClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     "https://api.assemblyai.com/v2",
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// HasAPIKey reports whether an API key is configured.
func (c *HTTPClient) HasAPIKey() bool {
	return c.apiKey != ""
}

// Upload sends a local audio file to AssemblyAI and returns its upload URL.
func (c *HTTPClient) Upload(ctx context.Context, audioPath string) (string, error) {
	if c.apiKey == "" {
		return "", ErrAPIKeyNotSet
	}
	if audioPath == "" {
		return "", ErrAudioPathRequired
	}

	data, err := os.ReadFile(audioPath) // #nosec G304 - path comes from the pipeline
	if err != nil {
		return "", fmt.Errorf("assemblyai: read audio: %w", err)
	}

	var resp uploadResponse
	url := c.baseURL + "/upload"
	if err := c.doRequestWithRetry(ctx, http.MethodPost, url, "application/octet-stream", data, &resp); err != nil {
		return "", err
	}

	if resp.UploadURL == "" {
		if resp.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrNoUploadURLReturned, resp.Error)
		}
		return "", ErrNoUploadURLReturned
	}

	return resp.UploadURL, nil
}

// Submit starts a transcript job and returns the transcript ID.
func (c *HTTPClient) Submit(ctx context.Context, uploadURL string, opts SubmitOptions) (string, error) {
	if c.apiKey == "" {
		return "", ErrAPIKeyNotSet
	}
	if uploadURL == "" {
		return "", ErrUploadURLRequired
	}

	reqBody := transcriptRequest{
		AudioURL:      uploadURL,
		SpeakerLabels: opts.SpeakerLabels,
		LanguageCode:  opts.LanguageCode,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("assemblyai: marshal request: %w", err)
	}

	var resp transcriptResponse
	url := c.baseURL + "/transcript"
	if err := c.doRequestWithRetry(ctx, http.MethodPost, url, "application/json", bodyBytes, &resp); err != nil {
		return "", err
	}

	if resp.ID == "" {
		if resp.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrNoTranscriptIDReturned, resp.Error)
		}
		return "", ErrNoTranscriptIDReturned
	}

	return resp.ID, nil
}

// Poll checks the status of a transcript job and returns the result.
func (c *HTTPClient) Poll(ctx context.Context, transcriptID string) (PollResult, error) {
	if c.apiKey == "" {
		return PollResult{}, ErrAPIKeyNotSet
	}
	if transcriptID == "" {
		return PollResult{}, ErrTranscriptIDRequired
	}

	url := fmt.Sprintf("%s/transcript/%s", c.baseURL, transcriptID)

	var resp transcriptResponse
	if err := c.doRequestWithRetry(ctx, http.MethodGet, url, "", nil, &resp); err != nil {
		return PollResult{}, err
	}

	result := PollResult{
		Status: Status(resp.Status),
	}

	switch result.Status {
	case StatusCompleted:
		result.Text = resp.Text
		result.Utterances = make([]Utterance, 0, len(resp.Utterances))
		for _, u := range resp.Utterances {
			result.Utterances = append(result.Utterances, Utterance{
				Speaker: u.Speaker,
				Text:    u.Text,
				StartMs: u.Start,
				EndMs:   u.End,
			})
		}
	case StatusError:
		result.Error = resp.Error
		if result.Error == "" {
			result.Error = "unknown"
		}
	}

	return result, nil
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, method, url, contentType string, body []byte, result interface{}) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("assemblyai: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		err := c.doRequest(ctx, method, url, contentType, body, result)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("assemblyai: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, method, url, contentType string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("assemblyai: create request: %w", err)
	}

	// AssemblyAI expects the raw key, not a bearer token.
	req.Header.Set("Authorization", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("assemblyai: request cancelled: %w", ctx.Err())
		}
		return &retryableError{err: fmt.Errorf("assemblyai: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("assemblyai: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, string(respBody))}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, string(respBody))}
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w with status %d: %s", ErrUnauthorized, resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("assemblyai: unmarshal response: %w", err)
		}
	}

	return nil
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
