// Package assemblyai provides an HTTP client for the AssemblyAI
// asynchronous transcription API (upload, submit, poll).
package assemblyai

// Status represents the status of an AssemblyAI transcript job.
type Status string

// Transcript job statuses aligned with the AssemblyAI API.
const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// SubmitOptions contains optional parameters for submitting a transcript job.
type SubmitOptions struct {
	SpeakerLabels bool   // Request diarized utterances
	LanguageCode  string // Optional language hint (e.g., "en")
}

// DefaultSubmitOptions returns the default options for submitting a job.
func DefaultSubmitOptions() SubmitOptions {
	return SubmitOptions{
		SpeakerLabels: true,
	}
}

// uploadResponse represents the response from the /upload endpoint.
type uploadResponse struct {
	UploadURL string `json:"upload_url"`
	Error     string `json:"error,omitempty"`
}

// transcriptRequest represents the request body for the /transcript endpoint.
type transcriptRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	LanguageCode  string `json:"language_code,omitempty"`
}

// transcriptResponse represents both the submit and status responses.
type transcriptResponse struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Text       string      `json:"text,omitempty"`
	Utterances []utterance `json:"utterances,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// utterance is one diarized turn; offsets are in milliseconds.
type utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
}

// Utterance is a speaker turn with offsets in milliseconds, as reported by the API.
type Utterance struct {
	Speaker string
	Text    string
	StartMs int64
	EndMs   int64
}

// PollResult contains the result of polling a transcript job.
type PollResult struct {
	Status     Status
	Text       string      // Full transcript text (only set when Status is StatusCompleted)
	Utterances []Utterance // Diarized turns (only set when Status is StatusCompleted)
	Error      string      // Error message (only set when Status is StatusError)
}
