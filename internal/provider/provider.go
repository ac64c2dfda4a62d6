// Package provider defines the common interface for diarizing transcription
// backends. Backends differ in protocol (asynchronous upload/submit/poll
// jobs versus one synchronous multimodal request) but all produce a Result
// that Render turns into speaker-labeled text.
package provider

import (
	"context"
	"errors"
)

// Registered provider names.
const (
	NameAssemblyAI = "assemblyai"
	NameGemini     = "gemini"
)

// Error taxonomy shared by all providers. Adapters wrap backend errors with
// one of these so callers can classify failures with errors.Is.
var (
	// ErrAuth is returned when a credential is missing or rejected.
	ErrAuth = errors.New("provider: authentication failed")
	// ErrUpload is returned when the audio could not be uploaded.
	ErrUpload = errors.New("provider: upload failed")
	// ErrTransport is returned on network failures talking to a backend.
	ErrTransport = errors.New("provider: transport failed")
	// ErrProvider is returned when the backend reports a processing failure
	// or returns a response that cannot be interpreted.
	ErrProvider = errors.New("provider: backend failed")
	// ErrPollTimeout is returned when a job does not finish within the poll ceiling.
	ErrPollTimeout = errors.New("provider: job did not finish before poll ceiling")
	// ErrUnknownProvider is returned by the placeholder for an unregistered name.
	ErrUnknownProvider = errors.New("provider: unknown provider")
)

// Stage identifies where a transcription request is in its lifecycle.
type Stage string

// Lifecycle stages reported through Request.OnProgress.
const (
	StageUploaded  Stage = "UPLOADED"
	StageSubmitted Stage = "SUBMITTED"
	StagePolling   Stage = "POLLING"
)

// Progress describes a lifecycle event of one transcription request.
type Progress struct {
	Stage    Stage  // Lifecycle stage reached
	RemoteID string // Backend job identifier, when the backend has one
	Status   string // Raw backend status, when polling
	Poll     int    // 1-based poll count, when polling
}

// Request is one audio artifact to transcribe.
type Request struct {
	// AudioPath is the local path of the audio to transcribe.
	AudioPath string
	// OnProgress, when set, is called synchronously on lifecycle events.
	OnProgress func(Progress)
}

func (r Request) notify(p Progress) {
	if r.OnProgress != nil {
		r.OnProgress(p)
	}
}

// Utterance is one speaker-attributed turn.
type Utterance struct {
	Speaker string  // Speaker label as returned by the backend (e.g., "A")
	Start   float64 // Start offset in seconds
	Text    string  // Spoken text
}

// Result is what a provider returns: structured utterances when the backend
// diarizes, otherwise an opaque, already formatted text block.
type Result struct {
	Utterances []Utterance
	Text       string
}

// Provider is implemented by every transcription backend.
type Provider interface {
	// Name returns the registered provider name.
	Name() string

	// Transcribe transcribes one audio artifact. It blocks until the
	// backend finishes, the poll ceiling is reached, or ctx is done.
	Transcribe(ctx context.Context, req Request) (Result, error)
}
