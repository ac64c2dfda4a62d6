package chunk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    time.Time
		wantErr bool
	}{
		{"wav", "/rec/2026-02-28/chunk_2026-02-28_10-04-00.wav", time.Date(2026, 2, 28, 10, 4, 0, 0, time.UTC), false},
		{"m4a", "chunk_2026-02-28_23-59-59.m4a", time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC), false},
		{"no prefix", "recording_2026-02-28_10-04-00.wav", time.Time{}, true},
		{"bad layout", "chunk_2026-02-28T10:04:00.wav", time.Time{}, true},
		{"garbage", "chunk_abc.wav", time.Time{}, true},
		{"out of range", "chunk_2026-13-40_10-04-00.wav", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrTimestamp)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestNew(t *testing.T) {
	c := New("/rec/chunk_2026-02-28_10-00-00.wav")
	assert.Equal(t, "chunk_2026-02-28_10-00-00.wav", c.Name)
	assert.True(t, c.HasTimestamp)

	bad := New("/rec/chunk_broken.wav")
	assert.False(t, bad.HasTimestamp)
	assert.True(t, bad.Timestamp.IsZero())
}

func TestGap(t *testing.T) {
	a := New("chunk_2026-02-28_10-00-00.wav")
	b := New("chunk_2026-02-28_10-04-00.wav")
	bad := New("chunk_nope.wav")

	gap, err := Gap(a, b)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Minute, gap)

	_, err = Gap(a, bad)
	assert.ErrorIs(t, err, ErrTimestamp)
	_, err = Gap(bad, b)
	assert.ErrorIs(t, err, ErrTimestamp)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"chunk_2026-02-28_10-20-00.wav",
		"chunk_2026-02-28_10-00-00.m4a",
		"chunk_2026-02-28_10-04-00.wav",
		"notes.txt",
		"chunk_2026-02-28_11-00-00.mp3",
		"other.wav",
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "chunk_dir.wav"), 0750))

	chunks, err := Discover(dir)
	require.NoError(t, err)

	names := make([]string, len(chunks))
	for i, c := range chunks {
		names[i] = c.Name
	}
	assert.Equal(t, []string{
		"chunk_2026-02-28_10-00-00.m4a",
		"chunk_2026-02-28_10-04-00.wav",
		"chunk_2026-02-28_10-20-00.wav",
	}, names)
	assert.Equal(t, filepath.Join(dir, "chunk_2026-02-28_10-00-00.m4a"), chunks[0].Path)
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "2026-02-28"))
	assert.ErrorIs(t, err, ErrNoDayDir)
}

func TestDiscover_NoChunks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0600))

	_, err := Discover(dir)
	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestPaths(t *testing.T) {
	chunks := []Chunk{New("/a/chunk_1.wav"), New("/a/chunk_2.wav")}
	assert.Equal(t, []string{"/a/chunk_1.wav", "/a/chunk_2.wav"}, Paths(chunks))
}
