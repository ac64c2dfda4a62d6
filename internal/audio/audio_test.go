package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and delegates to fn when set.
type fakeRunner struct {
	calls [][]string
	fn    func(ctx context.Context, name string, args []string) (commandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.fn == nil {
		return commandResult{}, nil
	}
	return f.fn(ctx, name, args)
}

// argAfter returns the argument that follows flag.
func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestFFmpegMerger_Merge(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "2026-01-15", "concat", "conversation_1.wav")
	paths := []string{
		filepath.Join(dir, "chunk_2026-01-15_09-00-00.wav"),
		filepath.Join(dir, "it's", "chunk_2026-01-15_09-05-00.wav"),
	}

	var listContent string
	runner := &fakeRunner{fn: func(_ context.Context, _ string, args []string) (commandResult, error) {
		data, err := os.ReadFile(argAfter(args, "-i"))
		require.NoError(t, err)
		listContent = string(data)
		return commandResult{}, nil
	}}

	m := NewFFmpegMerger("", withMergerRunner(runner))
	require.NoError(t, m.Merge(context.Background(), paths, output))

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "ffmpeg", call[0])
	assert.Equal(t, []string{"-y", "-f", "concat", "-safe", "0"}, call[1:6])
	assert.Equal(t, output, call[len(call)-1])
	assert.Equal(t, "copy", argAfter(call, "-c"))

	assert.Equal(t,
		"file '"+paths[0]+"'\nfile '"+strings.ReplaceAll(paths[1], "'", "'\\''")+"'\n",
		listContent)

	_, err := os.Stat(argAfter(call, "-i"))
	assert.True(t, os.IsNotExist(err), "concat list should be removed")
	assert.DirExists(t, filepath.Dir(output))
}

func TestFFmpegMerger_Failure(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{fn: func(context.Context, string, []string) (commandResult, error) {
		return commandResult{Stderr: "Invalid data found", ExitCode: 1}, errors.New("exit status 1")
	}}

	err := NewFFmpegMerger("/usr/bin/ffmpeg", withMergerRunner(runner)).
		Merge(context.Background(), []string{"a.wav", "b.wav"}, filepath.Join(dir, "out.wav"))

	require.Error(t, err)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Contains(t, err.Error(), "Invalid data found")

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "concat list should be removed on failure")
}

func TestFFmpegMerger_NoInputs(t *testing.T) {
	runner := &fakeRunner{}
	err := NewFFmpegMerger("", withMergerRunner(runner)).Merge(context.Background(), nil, "out.wav")
	assert.ErrorIs(t, err, ErrNoInputs)
	assert.Empty(t, runner.calls)
}

// whisperWriting returns a runner fn that writes whisper JSON for the input file.
func whisperWriting(t *testing.T, text string) func(context.Context, string, []string) (commandResult, error) {
	return func(_ context.Context, _ string, args []string) (commandResult, error) {
		in := args[0]
		stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		out := filepath.Join(argAfter(args, "--output_dir"), stem+".json")
		require.NoError(t, os.WriteFile(out, []byte(`{"text": "`+text+`", "segments": []}`), 0644))
		return commandResult{}, nil
	}
}

func TestWhisperDetector_Detect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"speech", " Good morning, how are you doing today?", true},
		{"short noise", " Hmm.", false},
		{"exactly min chars", "0123456789", false},
		{"one over min chars", "0123456789a", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outDir := t.TempDir()
			runner := &fakeRunner{fn: whisperWriting(t, tt.text)}
			d := NewWhisperDetector("whisper", outDir, withDetectorRunner(runner))

			got, err := d.Detect(context.Background(), "/rec/chunk_2026-01-15_09-00-00.wav")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Speech)
			assert.Equal(t, strings.TrimSpace(tt.text), got.Text)

			_, statErr := os.Stat(filepath.Join(outDir, "chunk_2026-01-15_09-00-00.json"))
			assert.True(t, os.IsNotExist(statErr), "whisper output should be removed")
		})
	}
}

func TestWhisperDetector_Args(t *testing.T) {
	outDir := t.TempDir()
	runner := &fakeRunner{fn: whisperWriting(t, "hello there everyone")}
	d := NewWhisperDetector("/opt/whisper", outDir,
		withDetectorRunner(runner), WithModel("base"), WithLanguage("de"))

	_, err := d.Detect(context.Background(), "a.m4a")
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"/opt/whisper", "a.m4a",
		"--model", "base",
		"--language", "de",
		"--output_format", "json",
		"--output_dir", outDir,
	}, runner.calls[0])
}

func TestWhisperDetector_FailsOpen(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(context.Context, string, []string) (commandResult, error)
		wantErr error
	}{
		{
			name: "non-zero exit",
			fn: func(context.Context, string, []string) (commandResult, error) {
				return commandResult{ExitCode: 2, Stderr: "boom"}, errors.New("exit status 2")
			},
		},
		{
			name: "missing binary",
			fn: func(context.Context, string, []string) (commandResult, error) {
				return commandResult{ExitCode: -1}, errors.New(`exec: "whisper": executable file not found in $PATH`)
			},
		},
		{
			name: "no output",
			fn: func(context.Context, string, []string) (commandResult, error) {
				return commandResult{}, nil
			},
			wantErr: ErrNoDetectOutput,
		},
		{
			name: "timeout",
			fn: func(ctx context.Context, _ string, _ []string) (commandResult, error) {
				<-ctx.Done()
				return commandResult{ExitCode: -1}, ctx.Err()
			},
			wantErr: ErrDetectTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{fn: tt.fn}
			d := NewWhisperDetector("whisper", t.TempDir(),
				withDetectorRunner(runner), WithTimeout(10*time.Millisecond))

			got, err := d.Detect(context.Background(), "a.wav")
			require.Error(t, err)
			assert.True(t, got.Speech, "detection failures keep the chunk")
			assert.Empty(t, got.Text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestWhisperDetector_MalformedOutput(t *testing.T) {
	outDir := t.TempDir()
	runner := &fakeRunner{fn: func(context.Context, string, []string) (commandResult, error) {
		return commandResult{}, os.WriteFile(filepath.Join(outDir, "a.json"), []byte("{not json"), 0644)
	}}

	got, err := NewWhisperDetector("whisper", outDir, withDetectorRunner(runner)).
		Detect(context.Background(), "a.wav")
	require.Error(t, err)
	assert.True(t, got.Speech)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	long := strings.Repeat("é", 80)
	assert.Equal(t, strings.Repeat("é", 60), Preview(long))
}
