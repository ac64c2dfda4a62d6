// Package audio runs the external audio tools the pipeline depends on:
// a whisper-based speech detector and an ffmpeg concat merger.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Detection is the outcome of a speech check on one file.
type Detection struct {
	// Speech is true when the file holds enough recognisable speech.
	Speech bool
	// Text is the recognised text, empty when detection failed.
	Text string
}

// Detector reports whether an audio file contains speech.
type Detector interface {
	// Detect checks path for speech. Implementations fail open: when
	// detection itself fails they report Speech together with the error
	// so the caller keeps the file.
	Detect(ctx context.Context, path string) (Detection, error)
}

// Merger concatenates audio files into a single output file.
type Merger interface {
	// Merge joins paths, in order, into output. Parent directories of
	// output are created as needed.
	Merge(ctx context.Context, paths []string, output string) error
}

// commandResult is the captured outcome of one process execution.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout, stderr and exit code.
func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	// #nosec G204 - tool paths come from configuration, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// CommandError represents a failed external tool run, including its stderr output.
type CommandError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s error (exit %d): %v\nargs: %v\nstderr: %s", e.Tool, e.ExitCode, e.Err, e.Args, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
