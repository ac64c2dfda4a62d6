package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoInputs is returned when Merge is called without input files.
var ErrNoInputs = errors.New("audio: no input files to merge")

// FFmpegMerger implements Merger using the ffmpeg concat demuxer.
// Streams are copied without re-encoding, so all inputs must share a codec.
type FFmpegMerger struct {
	ffmpegPath string
	runner     commandRunner
}

// MergerOption configures an FFmpegMerger.
type MergerOption func(*FFmpegMerger)

// withMergerRunner replaces the process runner (tests only).
func withMergerRunner(r commandRunner) MergerOption {
	return func(m *FFmpegMerger) {
		m.runner = r
	}
}

// NewFFmpegMerger creates a new FFmpegMerger.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegMerger(ffmpegPath string, opts ...MergerOption) *FFmpegMerger {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	m := &FFmpegMerger{
		ffmpegPath: ffmpegPath,
		runner:     execRunner{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge implements Merger.Merge. The concat list file is written next to
// output and removed once ffmpeg returns.
func (m *FFmpegMerger) Merge(ctx context.Context, paths []string, output string) error {
	if len(paths) == 0 {
		return ErrNoInputs
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	listFile, err := createConcatList(paths, filepath.Dir(output))
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer os.Remove(listFile)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		output,
	}

	result, err := m.runner.Run(ctx, m.ffmpegPath, args...)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &CommandError{
			Tool:     "ffmpeg",
			Args:     args,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			Err:      err,
		}
	}

	return nil
}

// createConcatList writes a list file in the format required by ffmpeg's
// concat demuxer. Paths are made absolute and single quotes escaped.
func createConcatList(paths []string, dir string) (string, error) {
	f, err := os.CreateTemp(dir, "concat_*.txt")
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("resolve %s: %w", p, err)
		}
		escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapedPath); err != nil {
			os.Remove(f.Name())
			return "", err
		}
	}

	return f.Name(), nil
}

// Verify interface implementation at compile time.
var _ Merger = (*FFmpegMerger)(nil)
