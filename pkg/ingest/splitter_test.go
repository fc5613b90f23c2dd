package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks := Split("a short paragraph", 1200, 300)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0])
}

func TestSplit_EmptyText(t *testing.T) {
	assert.Empty(t, Split("", 1200, 300))
	assert.Empty(t, Split("   \n\n  ", 1200, 300))
}

func TestSplit_ChunksWithinSizeAndAreSubstrings(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Sentence number one about retrieval. Sentence number two about embeddings. ")
		if i%5 == 4 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()

	chunks := Split(text, 200, 50)
	require.Greater(t, len(chunks), 1)

	cursor := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 200)
		// Position recovery depends on every chunk being findable in order.
		pos := strings.Index(text[cursor:], c)
		require.GreaterOrEqual(t, pos, 0, "chunk is not a substring: %q", c)
		cursor += pos + 1
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	words := strings.Repeat("alpha beta gamma delta epsilon ", 30)
	chunks := Split(words, 100, 40)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		if len(chunks[i]) < 20 {
			continue
		}
		// The next chunk starts with text the previous chunk ends with.
		head := chunks[i][:20]
		assert.Contains(t, chunks[i-1], strings.TrimSpace(head),
			"chunk %d does not overlap its predecessor", i)
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("word ", 30) // ~150 chars
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)

	chunks := Split(text, 200, 20)
	require.Greater(t, len(chunks), 1)
	// Paragraphs fit whole into chunks, so no chunk cuts a word in half.
	for _, c := range chunks {
		assert.False(t, strings.HasSuffix(c, "wor"), "chunk cut mid-word: %q", c)
	}
}

func TestSplit_NoSeparatorsFallsBackToWindows(t *testing.T) {
	text := strings.Repeat("x", 1000)
	chunks := Split(text, 300, 50)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 300)
	}
	assert.Equal(t, 1000, totalRunes(chunks))
}

func totalRunes(chunks []string) int {
	n := 0
	for _, c := range chunks {
		n += len([]rune(c))
	}
	return n
}

func TestSplit_MultibyteSafe(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 100)
	for _, c := range Split(text, 120, 30) {
		assert.True(t, strings.Contains(text, c))
	}
}

func TestPageFor(t *testing.T) {
	starts := []int{0, 100, 250}

	assert.Equal(t, 1, pageFor(starts, 0))
	assert.Equal(t, 1, pageFor(starts, 99))
	assert.Equal(t, 2, pageFor(starts, 100))
	assert.Equal(t, 2, pageFor(starts, 249))
	assert.Equal(t, 3, pageFor(starts, 250))
	assert.Equal(t, 3, pageFor(starts, 99999))
	assert.Equal(t, 0, pageFor(nil, 10))
}

func TestValidPageStarts(t *testing.T) {
	assert.True(t, validPageStarts([]int{0}))
	assert.True(t, validPageStarts([]int{0, 10, 10, 30}))
	assert.False(t, validPageStarts(nil))
	assert.False(t, validPageStarts([]int{5, 10}))
	assert.False(t, validPageStarts([]int{0, 20, 10}))
}
