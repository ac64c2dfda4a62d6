// Package pipeline runs one day's recordings through speech detection,
// conversation segmentation, merging and diarized transcription.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/clawhark/internal/audio"
	"github.com/maauso/clawhark/internal/chunk"
	"github.com/maauso/clawhark/internal/diarize"
	"github.com/maauso/clawhark/internal/job"
	"github.com/maauso/clawhark/internal/job/id"
	"github.com/maauso/clawhark/internal/provider"
	"github.com/maauso/clawhark/internal/segment"
	"github.com/maauso/clawhark/internal/storage"
)

// ErrInvalidInput is returned when Run is called with a malformed Input.
var ErrInvalidInput = errors.New("pipeline: invalid input")

// concatDirName is the per-day subdirectory holding merged conversations.
const concatDirName = "concat"

// archivePrefix is the object key prefix for archived transcripts.
const archivePrefix = "transcripts/"

// Input contains the parameters of one run.
type Input struct {
	// Date selects the day to transcribe (YYYY-MM-DD).
	Date string `validate:"required,datetime=2006-01-02"`
	// SkipDetect keeps every chunk without running the speech detector.
	SkipDetect bool
}

// Output describes the result of a run.
type Output struct {
	// RunID identifies the run in logs.
	RunID string
	// Skipped is true when no chunk held speech and nothing was written.
	Skipped bool
	// TranscriptPath is the written transcript.
	TranscriptPath string
	// ArchiveURL is the archived copy, when archiving is configured and succeeded.
	ArchiveURL string
	// Chunks is the number of chunks discovered.
	Chunks int
	// SpeechChunks is the number of chunks kept by the speech gate.
	SpeechChunks int
	// Conversations is the number of conversations transcribed.
	Conversations int
	// Jobs are the final states of the run's transcription jobs, in conversation order.
	Jobs []*job.Job
}

// Options configures where a Service reads and writes and which provider it uses.
type Options struct {
	// RecordingsDir holds one subdirectory of chunks per day.
	RecordingsDir string
	// TranscriptsDir receives <date>-diarized.md.
	TranscriptsDir string
	// Provider is the registry name of the transcription backend.
	Provider string
	// Segment configures conversation grouping.
	Segment segment.Options
}

// DayDir returns the recordings directory for date (YYYY-MM-DD).
func (o Options) DayDir(date string) string {
	return filepath.Join(o.RecordingsDir, date)
}

// TranscriptPath returns the transcript file path for date (YYYY-MM-DD).
func (o Options) TranscriptPath(date string) string {
	return filepath.Join(o.TranscriptsDir, date+"-diarized.md")
}

// Service orchestrates the daily transcription workflow.
type Service struct {
	detector  audio.Detector
	merger    audio.Merger
	registry  *provider.Registry
	store     storage.Storage
	opts      Options
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService creates a new Service.
func NewService(
	detector audio.Detector,
	merger audio.Merger,
	registry *provider.Registry,
	store storage.Storage,
	opts Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Segment == (segment.Options{}) {
		opts.Segment = segment.DefaultOptions()
	}
	return &Service{
		detector:  detector,
		merger:    merger,
		registry:  registry,
		store:     store,
		opts:      opts,
		validator: validator.New(),
		logger:    logger,
	}
}

// Run executes the workflow for in.Date:
//  1. Discover the day's chunks
//  2. Keep speech-bearing chunks
//  3. Segment them into conversations
//  4. Merge each multi-chunk conversation into one file
//  5. Transcribe each conversation and write the transcript
//
// A day without speech returns Output.Skipped and writes nothing.
func (s *Service) Run(ctx context.Context, in Input) (Output, error) {
	if err := s.validator.Struct(in); err != nil {
		return Output{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, in.Date)
	}

	out := Output{RunID: id.Generate("run")}
	logger := s.logger.With(slog.String("run_id", out.RunID), slog.String("date", in.Date))

	dayDir := s.opts.DayDir(in.Date)
	chunks, err := chunk.Discover(dayDir)
	if err != nil {
		return out, err
	}
	out.Chunks = len(chunks)

	p := s.registry.Lookup(s.opts.Provider)
	logger.Info("starting transcription run",
		slog.String("day_dir", dayDir),
		slog.Int("chunks", len(chunks)),
		slog.String("provider", p.Name()),
	)

	speech, err := s.detectSpeech(ctx, chunks, in.SkipDetect, logger)
	if err != nil {
		return out, err
	}
	out.SpeechChunks = len(speech)
	if len(speech) == 0 {
		logger.Info("no speech detected in any chunk, nothing to transcribe")
		out.Skipped = true
		return out, nil
	}

	groups := segment.Segment(speech, s.opts.Segment)
	for i, g := range groups {
		if i > 0 {
			logger.Info("conversation split",
				slog.Int("conversation", i+1),
				slog.Float64("gap_minutes", g.OpeningGap.Minutes()),
			)
		}
	}
	out.Conversations = len(groups)
	logger.Info("segmented into conversations", slog.Int("conversations", len(groups)))

	artifacts := s.mergeConversations(ctx, groups, filepath.Join(dayDir, concatDirName), logger)
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("merge cancelled: %w", err)
	}

	repo := job.NewMemoryRepository()
	orchestrator := diarize.NewOrchestrator(s.store, repo, logger)

	transcriptPath := s.opts.TranscriptPath(in.Date)
	written, runErr := orchestrator.Run(ctx, artifacts, p, transcriptPath)

	out.Jobs, _ = repo.List(context.WithoutCancel(ctx))
	s.logSummary(out.Jobs, logger)

	if runErr != nil {
		return out, runErr
	}
	out.TranscriptPath = written
	out.ArchiveURL = s.archive(ctx, written, logger)

	logger.Info("transcription run complete",
		slog.String("transcript", written),
		slog.Int("conversations", out.Conversations),
	)
	return out, nil
}

// detectSpeech returns the chunks the detector keeps, in order. Detector
// errors keep the chunk.
func (s *Service) detectSpeech(ctx context.Context, chunks []chunk.Chunk, skip bool, logger *slog.Logger) ([]chunk.Chunk, error) {
	if skip {
		logger.Info("speech detection skipped", slog.Int("chunks", len(chunks)))
		return chunks, nil
	}

	speech := make([]chunk.Chunk, 0, len(chunks))
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("speech detection cancelled: %w", err)
		}

		det, err := s.detector.Detect(ctx, c.Path)
		if err != nil {
			logger.Warn("speech detection failed, keeping chunk",
				slog.String("chunk", c.Name),
				slog.String("error", err.Error()),
			)
		}
		logger.Info("chunk checked",
			slog.Int("chunk", i+1),
			slog.Int("of", len(chunks)),
			slog.String("name", c.Name),
			slog.Bool("speech", det.Speech),
			slog.String("preview", audio.Preview(det.Text)),
		)
		if det.Speech {
			speech = append(speech, c)
		}
	}

	logger.Info("speech detection complete",
		slog.Int("speech_chunks", len(speech)),
		slog.Int("chunks", len(chunks)),
	)
	return speech, nil
}

// mergeConversations builds one artifact per group. Single-chunk groups use
// the chunk itself; merge failures are carried on the artifact.
func (s *Service) mergeConversations(ctx context.Context, groups []segment.Group, concatDir string, logger *slog.Logger) []diarize.Artifact {
	artifacts := make([]diarize.Artifact, 0, len(groups))

	for i, g := range groups {
		a := diarize.Artifact{Index: i + 1, ChunkCount: g.Len()}

		if g.Len() == 1 {
			a.Path = g.Chunks[0].Path
			artifacts = append(artifacts, a)
			continue
		}

		first := g.Chunks[0].Path
		a.Path = filepath.Join(concatDir, fmt.Sprintf("conversation_%d%s", a.Index, filepath.Ext(first)))
		if err := s.merger.Merge(ctx, chunk.Paths(g.Chunks), a.Path); err != nil {
			logger.Error("merge failed",
				slog.Int("conversation", a.Index),
				slog.String("error", err.Error()),
			)
			a.Err = fmt.Errorf("merge conversation %d: %w", a.Index, err)
		} else {
			logger.Info("conversation merged",
				slog.Int("conversation", a.Index),
				slog.Int("chunks", g.Len()),
				slog.String("path", a.Path),
			)
		}
		artifacts = append(artifacts, a)
	}

	return artifacts
}

// archive copies the transcript to the archive store. Failures are logged only.
func (s *Service) archive(ctx context.Context, transcriptPath string, logger *slog.Logger) string {
	f, err := os.Open(transcriptPath) // #nosec G304 - path is built from configuration
	if err != nil {
		logger.Warn("archive skipped", slog.String("error", err.Error()))
		return ""
	}
	defer f.Close()

	key := path.Join(archivePrefix, filepath.Base(transcriptPath))
	url, err := s.store.Archive(ctx, key, f)
	if err != nil {
		if !errors.Is(err, storage.ErrS3NotConfigured) {
			logger.Warn("archive failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}

	logger.Info("transcript archived", slog.String("url", url))
	return url
}

func (s *Service) logSummary(jobs []*job.Job, logger *slog.Logger) {
	counts := make(map[job.Status]int)
	for _, j := range jobs {
		counts[j.Status]++
		logger.Info("job summary",
			slog.String("job_id", j.ID),
			slog.Int("conversation", j.Index),
			slog.String("status", string(j.Status)),
			slog.Int("chunks", j.ChunkCount),
			slog.Int("polls", j.Polls),
			slog.String("error", j.Error),
		)
	}
	logger.Info("run summary",
		slog.Int("completed", counts[job.StatusCompleted]),
		slog.Int("failed", counts[job.StatusFailed]),
		slog.Int("timed_out", counts[job.StatusTimedOut]),
		slog.Int("cancelled", counts[job.StatusCancelled]),
	)
}
