// Package segment groups a time-ordered chunk sequence into conversations.
//
// Two consecutive chunks belong to the same conversation when the gap between
// their capture timestamps does not exceed a threshold. When either timestamp
// cannot be parsed, a fixed default gap is substituted. The default sits below
// the threshold, so malformed names bias toward merging rather than splitting.
package segment

import (
	"time"

	"github.com/maauso/clawhark/internal/chunk"
)

// Default segmentation parameters.
const (
	DefaultThreshold = 10 * time.Minute
	DefaultGap       = 5 * time.Minute
)

// Options configures segmentation.
type Options struct {
	// Threshold is the largest gap still considered the same conversation.
	Threshold time.Duration
	// DefaultGap is used when a gap cannot be computed from timestamps.
	DefaultGap time.Duration
}

// DefaultOptions returns the default segmentation options.
func DefaultOptions() Options {
	return Options{
		Threshold:  DefaultThreshold,
		DefaultGap: DefaultGap,
	}
}

// Group is one conversation: a non-empty run of chunks in recording order.
type Group struct {
	// Chunks are the group's members in input order.
	Chunks []chunk.Chunk
	// OpeningGap is the gap that started this group (zero for the first group).
	OpeningGap time.Duration
}

// Len returns the number of chunks in the group.
func (g Group) Len() int {
	return len(g.Chunks)
}

// Segment partitions chunks into conversation groups. Concatenating the
// returned groups reproduces chunks exactly. An empty input yields nil.
func Segment(chunks []chunk.Chunk, opts Options) []Group {
	if len(chunks) == 0 {
		return nil
	}

	var groups []Group
	current := Group{Chunks: []chunk.Chunk{chunks[0]}}

	for i := 1; i < len(chunks); i++ {
		gap := gapBetween(chunks[i-1], chunks[i], opts.DefaultGap)
		if gap > opts.Threshold {
			groups = append(groups, current)
			current = Group{Chunks: []chunk.Chunk{chunks[i]}, OpeningGap: gap}
			continue
		}
		current.Chunks = append(current.Chunks, chunks[i])
	}

	return append(groups, current)
}

func gapBetween(prev, curr chunk.Chunk, fallback time.Duration) time.Duration {
	gap, err := chunk.Gap(prev, curr)
	if err != nil {
		return fallback
	}
	return gap
}
