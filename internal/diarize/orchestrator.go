// Package diarize dispatches merged conversation audio to a transcription
// provider, one conversation at a time, and assembles the day's transcript.
package diarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maauso/clawhark/internal/job"
	"github.com/maauso/clawhark/internal/provider"
	"github.com/maauso/clawhark/internal/storage"
)

// Separator joins per-conversation blocks in the transcript.
const Separator = "\n\n---\n\n"

// Artifact is one conversation's audio, ready for transcription.
type Artifact struct {
	// Index is the 1-based conversation number.
	Index int
	// Path is the merged (or single-chunk) audio file.
	Path string
	// ChunkCount is the number of chunks the artifact was built from.
	ChunkCount int
	// Err is set when the artifact could not be produced. The provider is
	// not called and the error is rendered in the conversation's slot.
	Err error
}

// Orchestrator runs conversations through a provider and writes the transcript.
type Orchestrator struct {
	store  storage.Storage
	repo   job.Repository
	logger *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. Jobs are recorded in repo so
// callers can report on them after the run.
func NewOrchestrator(store storage.Storage, repo job.Repository, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:  store,
		repo:   repo,
		logger: logger,
	}
}

// Run transcribes artifacts in order with p and writes the joined blocks to
// outputPath. A failed conversation becomes an inline "Error: <message>"
// block; only a write failure or cancellation fails the run.
func (o *Orchestrator) Run(ctx context.Context, artifacts []Artifact, p provider.Provider, outputPath string) (string, error) {
	blocks := make([]string, 0, len(artifacts))

	for _, a := range artifacts {
		blocks = append(blocks, o.dispatch(ctx, a, p))

		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("diarize cancelled after conversation %d: %w", a.Index, err)
		}
	}

	if err := o.store.WriteTranscript(ctx, outputPath, strings.Join(blocks, Separator)); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}

	o.logger.Info("transcript written",
		slog.String("path", outputPath),
		slog.Int("conversations", len(artifacts)),
	)
	return outputPath, nil
}

// dispatch transcribes one artifact and returns its rendered block.
func (o *Orchestrator) dispatch(ctx context.Context, a Artifact, p provider.Provider) string {
	j := job.New(a.Index, a.Path, p.Name())
	j.ChunkCount = a.ChunkCount
	o.save(ctx, j)

	logger := o.logger.With(
		slog.String("job_id", j.ID),
		slog.Int("conversation", a.Index),
		slog.String("provider", p.Name()),
	)

	if a.Err != nil {
		logger.Warn("conversation audio unavailable", slog.String("error", a.Err.Error()))
		_ = j.Fail(a.Err.Error())
		o.save(ctx, j)
		return errorBlock(a.Err)
	}

	logger.Info("transcribing conversation",
		slog.String("audio", a.Path),
		slog.Int("chunks", a.ChunkCount),
	)

	result, err := p.Transcribe(ctx, provider.Request{
		AudioPath: a.Path,
		OnProgress: func(pr provider.Progress) {
			o.track(ctx, j, pr, logger)
		},
	})
	if err != nil {
		o.finishWithError(ctx, j, err)
		logger.Error("transcription failed",
			slog.String("status", string(j.GetStatus())),
			slog.String("error", err.Error()),
		)
		return errorBlock(err)
	}

	_ = j.Complete()
	o.save(ctx, j)

	logger.Info("conversation transcribed",
		slog.Int("utterances", len(result.Utterances)),
	)
	return provider.Render(result)
}

// track mirrors provider lifecycle events onto the job.
func (o *Orchestrator) track(ctx context.Context, j *job.Job, pr provider.Progress, logger *slog.Logger) {
	switch pr.Stage {
	case provider.StageUploaded:
		logger.Debug("audio uploaded")
	case provider.StageSubmitted:
		if pr.RemoteID != "" {
			j.SetRemoteID(pr.RemoteID)
		}
		logger.Info("job submitted", slog.String("remote_id", pr.RemoteID))
	case provider.StagePolling:
		if err := j.RecordPoll(pr.RemoteID, pr.Poll); err != nil {
			logger.Warn("poll after terminal state", slog.String("error", err.Error()))
			return
		}
		logger.Debug("job polled",
			slog.String("remote_id", pr.RemoteID),
			slog.String("status", pr.Status),
			slog.Int("poll", pr.Poll),
		)
	}
	o.save(ctx, j)
}

// finishWithError moves the job into the terminal state matching err.
func (o *Orchestrator) finishWithError(ctx context.Context, j *job.Job, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		_ = j.Cancel()
	case errors.Is(err, provider.ErrPollTimeout):
		_ = j.Timeout(err.Error())
	default:
		_ = j.Fail(err.Error())
	}
	o.save(ctx, j)
}

func (o *Orchestrator) save(ctx context.Context, j *job.Job) {
	// Recorded even after cancellation.
	if err := o.repo.Save(context.WithoutCancel(ctx), j); err != nil {
		o.logger.Warn("failed to record job",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
}

func errorBlock(err error) string {
	return "Error: " + err.Error()
}
