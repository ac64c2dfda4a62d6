// Package bootstrap provides dependency initialization for the clawhark CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/maauso/clawhark/internal/assemblyai"
	"github.com/maauso/clawhark/internal/audio"
	"github.com/maauso/clawhark/internal/config"
	"github.com/maauso/clawhark/internal/gemini"
	"github.com/maauso/clawhark/internal/pipeline"
	"github.com/maauso/clawhark/internal/provider"
	"github.com/maauso/clawhark/internal/segment"
	"github.com/maauso/clawhark/internal/storage"
)

// Dependencies holds all initialized dependencies for a run.
type Dependencies struct {
	Pipeline *pipeline.Service
	Registry *provider.Registry
}

// NewDependencies creates and initializes all dependencies for the application.
// Missing provider credentials are not an error here: the affected provider
// fails each conversation with an authentication error instead.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := initProviders(cfg, logger)

	detector := audio.NewWhisperDetector(cfg.WhisperPath, filepath.Join(cfg.TempDir, "whisper"),
		audio.WithModel(cfg.WhisperModel),
		audio.WithLanguage(cfg.SpeechLanguage),
		audio.WithMinChars(cfg.SpeechMinChars),
		audio.WithTimeout(cfg.DetectTimeout),
	)
	merger := audio.NewFFmpegMerger(cfg.FFmpegPath)

	svc := pipeline.NewService(detector, merger, registry, store, pipeline.Options{
		RecordingsDir:  cfg.RecordingsDir,
		TranscriptsDir: cfg.TranscriptsDir,
		Provider:       cfg.Provider,
		Segment: segment.Options{
			Threshold:  cfg.GapThreshold,
			DefaultGap: cfg.DefaultGap,
		},
	}, logger)

	return &Dependencies{
		Pipeline: svc,
		Registry: registry,
	}, nil
}

// initProviders registers every known transcription backend. aaiOpts are
// appended to the AssemblyAI client options.
func initProviders(cfg *config.Config, logger *slog.Logger, aaiOpts ...assemblyai.ClientOption) *provider.Registry {
	aai := assemblyai.NewClient(append([]assemblyai.ClientOption{assemblyai.WithAPIKey(cfg.AssemblyAIAPIKey)}, aaiOpts...)...)
	gem := gemini.NewClient(
		gemini.WithAPIKey(cfg.GeminiAPIKey),
		gemini.WithModel(cfg.GeminiModel),
	)

	switch provider.NormalizeName(cfg.Provider) {
	case provider.NameAssemblyAI:
		if !aai.HasAPIKey() {
			logger.Warn("ASSEMBLYAI_API_KEY not set, conversations will fail")
		}
	case provider.NameGemini:
		if !gem.HasAPIKey() {
			logger.Warn("GEMINI_API_KEY not set, conversations will fail")
		}
	}

	return provider.NewRegistry(
		provider.NewAsyncJobProvider(aai,
			provider.WithPollInterval(cfg.PollInterval),
			provider.WithMaxPolls(cfg.MaxPolls),
			provider.WithLanguage(cfg.SpeechLanguage),
		),
		provider.NewMultimodalProvider(gem, gemini.DefaultPrompt),
	)
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 archive configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	logger.Debug("local storage configured",
		slog.String("transcripts_dir", cfg.TranscriptsDir),
	)
	return storage.NewLocalStorage(), nil
}
