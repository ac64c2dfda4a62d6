// Package gemini provides an HTTP client for the Gemini multimodal
// generateContent API, used to transcribe inline audio in one request.
package gemini

// DefaultModel is the multimodal model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// DefaultPrompt asks for diarized, timestamped output.
const DefaultPrompt = "Transcribe this audio with speaker diarization. Format as:\n" +
	"**Speaker A** (timestamp): text\n\n" +
	"Identify different speakers and label them consistently."

// Result contains the outcome of a generateContent call.
type Result struct {
	Text string // Text of the first candidate's first part
	Raw  []byte // Raw response body, kept for diagnostics
}

// generateRequest represents the request body for generateContent.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

// part holds either inline data or text, never both.
type part struct {
	InlineData *inlineData `json:"inlineData,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// generateResponse represents the response from generateContent.
type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}
