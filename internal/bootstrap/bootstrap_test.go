package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/clawhark/internal/assemblyai"
	"github.com/maauso/clawhark/internal/config"
	"github.com/maauso/clawhark/internal/provider"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		RecordingsDir:  root + "/recordings",
		TranscriptsDir: root + "/transcripts",
		Provider:       "assemblyai",
		GeminiModel:    "gemini-2.0-flash",
		GapThreshold:   10 * time.Minute,
		DefaultGap:     5 * time.Minute,
		PollInterval:   3 * time.Second,
		MaxPolls:       600,
		WhisperPath:    "whisper",
		WhisperModel:   "tiny",
		SpeechLanguage: "en",
		SpeechMinChars: 10,
		DetectTimeout:  30 * time.Second,
		FFmpegPath:     "ffmpeg",
		TempDir:        root + "/tmp",
		LogFormat:      "text",
		LogLevel:       "info",
	}
}

func TestNewDependencies(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	deps, err := NewDependencies(context.Background(), testConfig(t), logger)
	require.NoError(t, err)

	require.NotNil(t, deps.Pipeline)
	assert.Equal(t, []string{"assemblyai", "gemini"}, deps.Registry.Names())
	assert.Contains(t, buf.String(), "ASSEMBLYAI_API_KEY not set")
}

func TestNewDependencies_WithCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := testConfig(t)
	cfg.Provider = "gemini"
	cfg.GeminiAPIKey = "key"

	_, err := NewDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "not set")
}

func TestNewDependencies_ProviderNameCase(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     string
	}{
		{"mixed case gemini", "Gemini", "GEMINI_API_KEY not set"},
		{"padded gemini", " gemini ", "GEMINI_API_KEY not set"},
		{"upper case assemblyai", "ASSEMBLYAI", "ASSEMBLYAI_API_KEY not set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			cfg := testConfig(t)
			cfg.Provider = tt.provider

			_, err := NewDependencies(context.Background(), cfg, logger)
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestInitProviders_SendsSpeechLanguage(t *testing.T) {
	var submitted map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/upload":
			_, _ = w.Write([]byte(`{"upload_url":"https://cdn.example/audio"}`))
		case r.URL.Path == "/transcript" && r.Method == http.MethodPost:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
			_, _ = w.Write([]byte(`{"id":"tr-1","status":"queued"}`))
		default:
			_, _ = w.Write([]byte(`{"id":"tr-1","status":"completed","text":"hola"}`))
		}
	}))
	defer server.Close()

	audioPath := filepath.Join(t.TempDir(), "conversation_1.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("RIFF"), 0600))

	cfg := testConfig(t)
	cfg.AssemblyAIAPIKey = "key"
	cfg.SpeechLanguage = "es"
	registry := initProviders(cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), assemblyai.WithBaseURL(server.URL))

	result, err := registry.Lookup(provider.NameAssemblyAI).Transcribe(context.Background(), provider.Request{AudioPath: audioPath})
	require.NoError(t, err)
	assert.Equal(t, "hola", result.Text)

	require.NotNil(t, submitted)
	assert.Equal(t, "es", submitted["language_code"])
	assert.Equal(t, true, submitted["speaker_labels"])
}

func TestNewDependencies_S3(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := testConfig(t)
	cfg.S3Bucket = "archive"
	cfg.S3Region = "eu-west-1"
	cfg.S3Endpoint = "http://localhost:4566"
	cfg.AWSAccessKeyID = "test"
	cfg.AWSSecretAccessKey = "test"

	deps, err := NewDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, deps.Pipeline)
	assert.Contains(t, buf.String(), "S3 archive configured")
}
