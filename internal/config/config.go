// Package config provides configuration loading from environment variables
// and an optional .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// EnvFileVar names the variable that points at the .env file to load.
const EnvFileVar = "CLAWHARK_ENV_FILE"

const defaultEnvFile = ".env"

// Static errors for configuration loading.
var (
	// ErrHomeDirUnavailable is returned when a default path needs the home
	// directory and it cannot be determined.
	ErrHomeDirUnavailable = errors.New("config: home directory unavailable")
	// ErrInvalid is returned when a loaded value fails validation.
	ErrInvalid = errors.New("config: invalid value")
)

// Config holds all configuration for the application.
type Config struct {
	// Paths
	RecordingsDir  string `env:"CLAWHARK_OUTPUT" json:"recordings_dir" validate:"required"`
	TranscriptsDir string `env:"CLAWHARK_TRANSCRIPTS" json:"transcripts_dir" validate:"required"`

	// Provider settings. The provider name is not validated here: an
	// unknown name is reported per conversation in the transcript.
	Provider         string `env:"CLAWHARK_PROVIDER, default=assemblyai" json:"provider"`
	AssemblyAIAPIKey string `env:"ASSEMBLYAI_API_KEY" json:"-"` // Masked in JSON
	GeminiAPIKey     string `env:"GEMINI_API_KEY" json:"-"`     // Masked in JSON
	GeminiModel      string `env:"GEMINI_MODEL, default=gemini-2.0-flash" json:"gemini_model" validate:"required"`

	// Segmentation and polling. DefaultGap stands in for unparseable
	// timestamps and may not exceed GapThreshold, so such chunks never split.
	GapThreshold time.Duration `env:"GAP_THRESHOLD, default=10m" json:"gap_threshold" validate:"gt=0"`
	DefaultGap   time.Duration `env:"DEFAULT_GAP, default=5m" json:"default_gap" validate:"gte=0,ltefield=GapThreshold"`
	PollInterval time.Duration `env:"POLL_INTERVAL, default=3s" json:"poll_interval" validate:"gt=0"`
	MaxPolls     int           `env:"MAX_POLLS, default=600" json:"max_polls" validate:"gt=0"`

	// Speech detection
	WhisperPath    string        `env:"WHISPER_PATH, default=whisper" json:"whisper_path" validate:"required"`
	WhisperModel   string        `env:"WHISPER_MODEL, default=tiny" json:"whisper_model" validate:"required"`
	SpeechLanguage string        `env:"SPEECH_LANGUAGE, default=en" json:"speech_language" validate:"required"`
	SpeechMinChars int           `env:"SPEECH_MIN_CHARS, default=10" json:"speech_min_chars" validate:"gte=0"`
	DetectTimeout  time.Duration `env:"DETECT_TIMEOUT, default=30s" json:"detect_timeout" validate:"gt=0"`

	// Tools and scratch space
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path" validate:"required"`
	TempDir    string `env:"TEMP_DIR, default=/tmp/clawhark" json:"temp_dir" validate:"required"`

	// Optional S3 archive settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=json text"`                 // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level" validate:"oneof=debug info warn warning error"` // "debug", "info", "warn", "error"
}

// Overrides carries command-line values that take precedence over the
// environment. Empty fields leave the loaded value untouched.
type Overrides struct {
	Provider       string
	RecordingsDir  string
	TranscriptsDir string
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads the optional .env file and then configuration from environment
// variables using go-envconfig. Variables already set in the environment win
// over the .env file.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.applyHomeDefaults(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads CLAWHARK_ENV_FILE (default .env). A missing default file
// is not an error; a missing explicitly named file is.
func loadEnvFile() error {
	path, explicit := os.LookupEnv(EnvFileVar)
	if !explicit || path == "" {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// applyHomeDefaults fills path settings that default to ~/.clawhark.
func (c *Config) applyHomeDefaults() error {
	if c.RecordingsDir != "" && c.TranscriptsDir != "" {
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHomeDirUnavailable, err)
	}

	if c.RecordingsDir == "" {
		c.RecordingsDir = filepath.Join(home, ".clawhark", "recordings")
	}
	if c.TranscriptsDir == "" {
		c.TranscriptsDir = filepath.Join(home, ".clawhark", "transcripts")
	}
	return nil
}

// Apply merges command-line overrides into the configuration.
func (c *Config) Apply(o Overrides) {
	if o.Provider != "" {
		c.Provider = o.Provider
	}
	if o.RecordingsDir != "" {
		c.RecordingsDir = o.RecordingsDir
	}
	if o.TranscriptsDir != "" {
		c.TranscriptsDir = o.TranscriptsDir
	}
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for log shipping.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{RecordingsDir: %s, TranscriptsDir: %s, Provider: %s, AssemblyAIAPIKey: %s, GeminiAPIKey: %s, GeminiModel: %s, GapThreshold: %s, DefaultGap: %s, PollInterval: %s, MaxPolls: %d, WhisperPath: %s, FFmpegPath: %s, TempDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.RecordingsDir,
		c.TranscriptsDir,
		c.Provider,
		mask(c.AssemblyAIAPIKey),
		mask(c.GeminiAPIKey),
		c.GeminiModel,
		c.GapThreshold,
		c.DefaultGap,
		c.PollInterval,
		c.MaxPolls,
		c.WhisperPath,
		c.FFmpegPath,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// mask reports whether a secret is set without revealing it.
func mask(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return "***"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
