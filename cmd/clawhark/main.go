// Package main provides the entry point for the clawhark transcription CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maauso/clawhark/internal/bootstrap"
	"github.com/maauso/clawhark/internal/config"
	"github.com/maauso/clawhark/internal/pipeline"
)

const usage = `usage: clawhark [flags] <date>

Transcribe one day of recordings (date as YYYY-MM-DD) into
<transcripts>/<date>-diarized.md.

flags:
`

// cliArgs holds the parsed command line.
type cliArgs struct {
	Date       string
	SkipDetect bool
	Overrides  config.Overrides
}

// errUsage is returned for a malformed command line.
var errUsage = errors.New("invalid arguments")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	args, err := parseArgs(argv, os.Stderr)
	if err != nil {
		return err
	}

	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Apply(args.Overrides)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("clawhark transcription pipeline",
		slog.String("date", args.Date),
		slog.String("provider", cfg.Provider),
		slog.String("recordings", cfg.RecordingsDir),
		slog.String("transcripts", cfg.TranscriptsDir),
		slog.String("log_level", cfg.LogLevel),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	out, err := deps.Pipeline.Run(ctx, pipeline.Input{
		Date:       args.Date,
		SkipDetect: args.SkipDetect,
	})
	if err != nil {
		return err
	}

	if out.Skipped {
		fmt.Println("No speech detected in any chunks.")
		return nil
	}
	fmt.Printf("Transcript saved: %s\n", out.TranscriptPath)
	return nil
}

// parseArgs parses flags and the positional date. Flags may appear before
// or after the date.
func parseArgs(argv []string, output io.Writer) (cliArgs, error) {
	var args cliArgs

	fs := flag.NewFlagSet("clawhark", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&args.Overrides.Provider, "provider", "", "transcription provider: assemblyai|gemini (default from CLAWHARK_PROVIDER)")
	fs.StringVar(&args.Overrides.RecordingsDir, "recordings", "", "recordings directory (default from CLAWHARK_OUTPUT)")
	fs.StringVar(&args.Overrides.TranscriptsDir, "transcripts", "", "transcripts directory (default from CLAWHARK_TRANSCRIPTS)")
	fs.BoolVar(&args.SkipDetect, "skip-detect", false, "keep every chunk without running speech detection")

	var positional []string
	rest := argv
	for {
		if err := fs.Parse(rest); err != nil {
			return cliArgs{}, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	if len(positional) != 1 {
		fs.Usage()
		return cliArgs{}, fmt.Errorf("%w: expected exactly one date, got %d", errUsage, len(positional))
	}
	args.Date = positional[0]
	return args, nil
}
