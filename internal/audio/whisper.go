package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Defaults for WhisperDetector.
const (
	DefaultWhisperModel  = "tiny"
	DefaultLanguage      = "en"
	DefaultMinChars      = 10
	DefaultDetectTimeout = 30 * time.Second

	previewChars = 60
)

// Detection errors. Detect returns them alongside a kept chunk.
var (
	// ErrDetectTimeout is returned when whisper does not finish in time.
	ErrDetectTimeout = errors.New("audio: speech detection timed out")
	// ErrNoDetectOutput is returned when whisper exits without writing its JSON result.
	ErrNoDetectOutput = errors.New("audio: speech detection produced no output")
)

// WhisperDetector implements Detector with a small whisper model. A chunk
// has speech when the recognised text is longer than minChars.
type WhisperDetector struct {
	whisperPath string
	model       string
	language    string
	outputDir   string
	minChars    int
	timeout     time.Duration
	runner      commandRunner
}

// DetectorOption configures a WhisperDetector.
type DetectorOption func(*WhisperDetector)

// WithModel sets the whisper model name.
func WithModel(model string) DetectorOption {
	return func(d *WhisperDetector) {
		if model != "" {
			d.model = model
		}
	}
}

// WithLanguage sets the language whisper decodes in.
func WithLanguage(lang string) DetectorOption {
	return func(d *WhisperDetector) {
		if lang != "" {
			d.language = lang
		}
	}
}

// WithMinChars sets the text length a chunk must exceed to count as speech.
func WithMinChars(n int) DetectorOption {
	return func(d *WhisperDetector) {
		if n >= 0 {
			d.minChars = n
		}
	}
}

// WithTimeout bounds each whisper run.
func WithTimeout(timeout time.Duration) DetectorOption {
	return func(d *WhisperDetector) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// withDetectorRunner replaces the process runner (tests only).
func withDetectorRunner(r commandRunner) DetectorOption {
	return func(d *WhisperDetector) {
		d.runner = r
	}
}

// NewWhisperDetector creates a detector that runs whisperPath and writes its
// JSON output under outputDir.
func NewWhisperDetector(whisperPath, outputDir string, opts ...DetectorOption) *WhisperDetector {
	if whisperPath == "" {
		whisperPath = "whisper"
	}
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "clawhark_whisper")
	}
	d := &WhisperDetector{
		whisperPath: whisperPath,
		model:       DefaultWhisperModel,
		language:    DefaultLanguage,
		outputDir:   outputDir,
		minChars:    DefaultMinChars,
		timeout:     DefaultDetectTimeout,
		runner:      execRunner{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// whisperOutput is the subset of whisper's JSON output we read.
type whisperOutput struct {
	Text string `json:"text"`
}

// Detect implements Detector.Detect.
func (d *WhisperDetector) Detect(ctx context.Context, path string) (Detection, error) {
	text, err := d.transcribe(ctx, path)
	if err != nil {
		return Detection{Speech: true}, err
	}

	return Detection{
		Speech: utf8.RuneCountInString(text) > d.minChars,
		Text:   text,
	}, nil
}

// transcribe runs whisper on path and returns the trimmed recognised text.
func (d *WhisperDetector) transcribe(ctx context.Context, path string) (string, error) {
	if err := os.MkdirAll(d.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create whisper output directory: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	args := []string{
		path,
		"--model", d.model,
		"--language", d.language,
		"--output_format", "json",
		"--output_dir", d.outputDir,
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	jsonPath := filepath.Join(d.outputDir, stem+".json")
	defer os.Remove(jsonPath)

	result, err := d.runner.Run(runCtx, d.whisperPath, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrDetectTimeout, d.timeout)
		}
		return "", &CommandError{
			Tool:     "whisper",
			Args:     args,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			Err:      err,
		}
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoDetectOutput
		}
		return "", fmt.Errorf("read whisper output: %w", err)
	}

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse whisper output: %w", err)
	}

	return strings.TrimSpace(out.Text), nil
}

// Preview returns at most the first 60 characters of text.
func Preview(text string) string {
	r := []rune(text)
	if len(r) <= previewChars {
		return text
	}
	return string(r[:previewChars])
}

// Verify interface implementation at compile time.
var _ Detector = (*WhisperDetector)(nil)
