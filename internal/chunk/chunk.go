// Package chunk discovers the raw audio chunks recorded for a day and
// extracts the capture timestamp embedded in each chunk's file name.
package chunk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Chunk file naming: chunk_YYYY-MM-DD_HH-MM-SS.<ext>
const (
	namePrefix      = "chunk_"
	timestampLayout = "2006-01-02_15-04-05"
)

// Extensions lists the container formats a chunk may be recorded in.
var Extensions = []string{".wav", ".m4a"}

// Static errors for chunk discovery.
var (
	// ErrTimestamp is returned when a chunk name carries no parseable timestamp.
	ErrTimestamp = errors.New("chunk: unparseable timestamp")
	// ErrNoDayDir is returned when the day's recording directory does not exist.
	ErrNoDayDir = errors.New("chunk: no recordings directory for day")
	// ErrNoChunks is returned when the day's directory holds no chunk files.
	ErrNoChunks = errors.New("chunk: no audio chunks found")
)

// Chunk is one short raw audio recording. Identity is its path.
type Chunk struct {
	// Path is the location of the chunk file.
	Path string
	// Name is the base file name.
	Name string
	// Timestamp is the capture time parsed from the name (zero when HasTimestamp is false).
	Timestamp time.Time
	// HasTimestamp reports whether Timestamp was parsed successfully.
	HasTimestamp bool
}

// New builds a Chunk for path, parsing its timestamp when possible.
func New(path string) Chunk {
	c := Chunk{Path: path, Name: filepath.Base(path)}
	if ts, err := ParseTimestamp(path); err == nil {
		c.Timestamp = ts
		c.HasTimestamp = true
	}
	return c
}

// String returns the chunk's file name.
func (c Chunk) String() string {
	return c.Name
}

// ParseTimestamp extracts the capture time from a chunk path such as
// ".../chunk_2026-02-28_10-04-00.wav".
func ParseTimestamp(path string) (time.Time, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	_, token, found := strings.Cut(stem, namePrefix)
	if !found {
		return time.Time{}, fmt.Errorf("%w: %q has no %q token", ErrTimestamp, base, namePrefix)
	}

	ts, err := time.Parse(timestampLayout, token)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrTimestamp, base, err)
	}
	return ts, nil
}

// Gap returns the time between two chunks' capture timestamps.
// It returns ErrTimestamp if either chunk has no timestamp.
func Gap(prev, curr Chunk) (time.Duration, error) {
	if !prev.HasTimestamp || !curr.HasTimestamp {
		return 0, ErrTimestamp
	}
	return curr.Timestamp.Sub(prev.Timestamp), nil
}

// Paths returns the file paths of chunks, in order.
func Paths(chunks []Chunk) []string {
	paths := make([]string, len(chunks))
	for i, c := range chunks {
		paths[i] = c.Path
	}
	return paths
}

// Discover lists the chunk files in dayDir, ordered ascending by name.
// Because names embed the capture time, name order is recording order.
func Discover(dayDir string) ([]Chunk, error) {
	info, err := os.Stat(dayDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoDayDir, dayDir)
		}
		return nil, fmt.Errorf("chunk: stat %s: %w", dayDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoDayDir, dayDir)
	}

	entries, err := os.ReadDir(dayDir)
	if err != nil {
		return nil, fmt.Errorf("chunk: read %s: %w", dayDir, err)
	}

	seen := make(map[string]struct{})
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isChunkName(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoChunks, dayDir)
	}

	sort.Strings(names)

	chunks := make([]Chunk, 0, len(names))
	for _, name := range names {
		chunks = append(chunks, New(filepath.Join(dayDir, name)))
	}
	return chunks, nil
}

func isChunkName(name string) bool {
	if !strings.HasPrefix(name, namePrefix) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
