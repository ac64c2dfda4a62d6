package segment

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/clawhark/internal/chunk"
)

func chunkAt(hhmmss string) chunk.Chunk {
	return chunk.New(fmt.Sprintf("/rec/chunk_2026-02-28_%s.wav", hhmmss))
}

func chunksAt(times ...string) []chunk.Chunk {
	out := make([]chunk.Chunk, len(times))
	for i, ts := range times {
		out[i] = chunkAt(ts)
	}
	return out
}

func flatten(groups []Group) []chunk.Chunk {
	var out []chunk.Chunk
	for _, g := range groups {
		out = append(out, g.Chunks...)
	}
	return out
}

func names(g Group) []string {
	out := make([]string, len(g.Chunks))
	for i, c := range g.Chunks {
		out[i] = c.Name
	}
	return out
}

func TestSegment_Example(t *testing.T) {
	in := chunksAt("10-00-00", "10-04-00", "10-20-00")

	groups := Segment(in, DefaultOptions())

	require.Len(t, groups, 2)
	assert.Equal(t, []string{"chunk_2026-02-28_10-00-00.wav", "chunk_2026-02-28_10-04-00.wav"}, names(groups[0]))
	assert.Equal(t, []string{"chunk_2026-02-28_10-20-00.wav"}, names(groups[1]))
	assert.Equal(t, time.Duration(0), groups[0].OpeningGap)
	assert.Equal(t, 16*time.Minute, groups[1].OpeningGap)
}

func TestSegment_SingleChunk(t *testing.T) {
	groups := Segment(chunksAt("09-00-00"), DefaultOptions())

	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Len())
}

func TestSegment_Empty(t *testing.T) {
	assert.Nil(t, Segment(nil, DefaultOptions()))
}

func TestSegment_AllBelowThreshold(t *testing.T) {
	in := chunksAt("10-00-00", "10-05-00", "10-10-00", "10-20-00", "10-30-00")

	groups := Segment(in, DefaultOptions())

	require.Len(t, groups, 1)
	assert.Equal(t, in, groups[0].Chunks)
}

func TestSegment_GapEqualToThresholdStaysTogether(t *testing.T) {
	groups := Segment(chunksAt("10-00-00", "10-10-00"), DefaultOptions())
	assert.Len(t, groups, 1)
}

func TestSegment_AllAboveThreshold(t *testing.T) {
	in := chunksAt("08-00-00", "09-00-00", "10-00-00", "11-00-00")

	groups := Segment(in, DefaultOptions())

	require.Len(t, groups, len(in))
	for i, g := range groups {
		assert.Equal(t, []chunk.Chunk{in[i]}, g.Chunks)
	}
}

func TestSegment_Partitions(t *testing.T) {
	inputs := [][]chunk.Chunk{
		chunksAt("10-00-00"),
		chunksAt("10-00-00", "10-30-00", "10-31-00", "12-00-00", "12-01-00", "12-02-00"),
		{chunkAt("10-00-00"), chunk.New("/rec/chunk_bad.wav"), chunkAt("13-00-00")},
	}

	for i, in := range inputs {
		t.Run(fmt.Sprintf("input_%d", i), func(t *testing.T) {
			groups := Segment(in, DefaultOptions())
			assert.Equal(t, in, flatten(groups))
			for _, g := range groups {
				assert.NotZero(t, g.Len())
			}
		})
	}
}

// Malformed timestamps are deliberately treated as a below-threshold gap:
// they merge into the surrounding conversation rather than splitting it.
func TestSegment_MalformedTimestampBiasesTowardMerging(t *testing.T) {
	bad := chunk.New("/rec/chunk_corrupted.wav")
	in := []chunk.Chunk{chunkAt("10-00-00"), bad, chunkAt("15-00-00")}

	groups := Segment(in, DefaultOptions())

	require.Len(t, groups, 1)
	assert.Equal(t, in, groups[0].Chunks)
}

func TestSegment_MalformedTimestampNeverIncreasesGroupCount(t *testing.T) {
	good := chunksAt("10-00-00", "10-30-00", "11-00-00")
	withBad := []chunk.Chunk{good[0], chunk.New("/rec/chunk_x.wav"), good[1], chunk.New("/rec/chunk_y.wav"), good[2]}

	assert.LessOrEqual(t, len(Segment(withBad, DefaultOptions())), len(Segment(good, DefaultOptions())))
}

func TestSegment_DefaultGapAboveThresholdSplits(t *testing.T) {
	in := []chunk.Chunk{chunkAt("10-00-00"), chunk.New("/rec/chunk_bad.wav")}

	groups := Segment(in, Options{Threshold: time.Minute, DefaultGap: 2 * time.Minute})

	require.Len(t, groups, 2)
	assert.Equal(t, 2*time.Minute, groups[1].OpeningGap)
}

func TestSegment_Deterministic(t *testing.T) {
	in := chunksAt("10-00-00", "10-11-00", "10-12-00", "11-00-00")

	first := Segment(in, DefaultOptions())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Segment(in, DefaultOptions()))
	}
}
