package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"origami-be/pkg/embedding"
	"origami-be/pkg/llm"
)

type stubLLM struct {
	fail bool
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	if s.fail {
		return "", errors.New("context model down")
	}
	return "This chunk discusses the experiment setup.", nil
}

type stubEmbedder struct {
	mu      sync.Mutex
	failAt  int // fail the Nth call (1-based), 0 disables
	calls   int
	inputs  []string
}

func (s *stubEmbedder) Generate(text string, taskType string) (*embedding.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failAt > 0 && s.calls >= s.failAt {
		return nil, errors.New("embedding backend down")
	}
	s.inputs = append(s.inputs, text)
	return &embedding.Response{Embedding: embedding.Values{Values: []float32{0.1, 0.2, 0.3}}}, nil
}

type memStore struct {
	mu      sync.Mutex
	records []*ChunkRecord
	fail    bool
}

func (m *memStore) SaveChunk(ctx context.Context, rec *ChunkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	m.records = append(m.records, rec)
	return nil
}

func testPipeline(llmProvider llm.LLMProvider, embedder embedding.EmbeddingProvider, store Store, cfg Config) *Pipeline {
	return NewPipeline(llmProvider, embedder, store, log.New(io.Discard, "", 0), cfg)
}

func docText(paragraphs int) string {
	var b strings.Builder
	for i := 0; i < paragraphs; i++ {
		b.WriteString(strings.Repeat("Measurement results for the annealing schedule. ", 4))
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestProcess_IngestsEveryChunk(t *testing.T) {
	store := &memStore{}
	embedder := &stubEmbedder{}
	p := testPipeline(&stubLLM{}, embedder, store, Config{ChunkSize: 200, ChunkOverlap: 40, Concurrency: 4, DocPrefixChars: 12000})

	doc := &Document{FileId: "f1", Filename: "paper.pdf", Text: docText(10)}
	result, err := p.Process(context.Background(), doc, nil)

	require.NoError(t, err)
	assert.Greater(t, result.TotalChunks, 1)
	assert.Equal(t, result.TotalChunks, result.Ingested)
	assert.Len(t, store.records, result.TotalChunks)

	seen := map[int]bool{}
	for _, rec := range store.records {
		assert.Equal(t, "f1", rec.FileId)
		assert.NotEmpty(t, rec.Text)
		assert.Equal(t, "This chunk discusses the experiment setup.", rec.Context)
		assert.Len(t, rec.Embedding, 3)
		seen[rec.ChunkIndex] = true
	}
	assert.Len(t, seen, result.TotalChunks, "chunk indexes must be unique")
}

func TestProcess_EmbedsContextPlusChunk(t *testing.T) {
	store := &memStore{}
	embedder := &stubEmbedder{}
	p := testPipeline(&stubLLM{}, embedder, store, Config{ChunkSize: 5000, ChunkOverlap: 100, Concurrency: 1, DocPrefixChars: 12000})

	doc := &Document{FileId: "f1", Filename: "a.pdf", Text: "just one small chunk of text"}
	_, err := p.Process(context.Background(), doc, nil)

	require.NoError(t, err)
	require.Len(t, embedder.inputs, 1)
	assert.Equal(t, "This chunk discusses the experiment setup.\n\njust one small chunk of text", embedder.inputs[0])
}

func TestProcess_ContextFailureDegradesToRawChunk(t *testing.T) {
	store := &memStore{}
	embedder := &stubEmbedder{}
	p := testPipeline(&stubLLM{fail: true}, embedder, store, Config{ChunkSize: 5000, ChunkOverlap: 100, Concurrency: 1, DocPrefixChars: 12000})

	doc := &Document{FileId: "f1", Filename: "a.pdf", Text: "text without any context help"}
	result, err := p.Process(context.Background(), doc, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Ingested)
	require.Len(t, store.records, 1)
	assert.Empty(t, store.records[0].Context)
	assert.Equal(t, []string{"text without any context help"}, embedder.inputs)
}

func TestProcess_EmbeddingFailureAborts(t *testing.T) {
	store := &memStore{}
	embedder := &stubEmbedder{failAt: 1}
	p := testPipeline(&stubLLM{}, embedder, store, Config{ChunkSize: 200, ChunkOverlap: 40, Concurrency: 2, DocPrefixChars: 12000})

	doc := &Document{FileId: "f1", Filename: "a.pdf", Text: docText(10)}
	result, err := p.Process(context.Background(), doc, nil)

	require.Error(t, err)
	assert.Less(t, result.Ingested, result.TotalChunks)
}

func TestProcess_ReportsProgress(t *testing.T) {
	store := &memStore{}
	p := testPipeline(&stubLLM{}, &stubEmbedder{}, store, Config{ChunkSize: 200, ChunkOverlap: 40, Concurrency: 3, DocPrefixChars: 12000})

	var mu sync.Mutex
	var dones []int
	total := 0
	progress := func(done, t int) {
		mu.Lock()
		defer mu.Unlock()
		dones = append(dones, done)
		total = t
	}

	doc := &Document{FileId: "f1", Filename: "a.pdf", Text: docText(8)}
	result, err := p.Process(context.Background(), doc, progress)

	require.NoError(t, err)
	assert.Len(t, dones, result.TotalChunks)
	assert.Equal(t, result.TotalChunks, total)
	// Concurrency reorders delivery but the final count always arrives.
	max := 0
	for _, d := range dones {
		if d > max {
			max = d
		}
	}
	assert.Equal(t, result.TotalChunks, max)
}

func TestProcess_PageAttribution(t *testing.T) {
	pageOne := strings.Repeat("First page sentence about methods. ", 10)
	pageTwo := strings.Repeat("Second page sentence about results. ", 10)
	text := pageOne + "\n\n" + pageTwo
	starts := []int{0, len(pageOne) + 2}

	store := &memStore{}
	p := testPipeline(&stubLLM{}, &stubEmbedder{}, store, Config{ChunkSize: 150, ChunkOverlap: 30, Concurrency: 2, DocPrefixChars: 12000})

	doc := &Document{FileId: "f1", Filename: "a.pdf", Text: text, PageStarts: starts}
	result, err := p.Process(context.Background(), doc, nil)

	require.NoError(t, err)
	require.Greater(t, result.TotalChunks, 2)

	byIndex := make(map[int]*ChunkRecord, len(store.records))
	for _, rec := range store.records {
		byIndex[rec.ChunkIndex] = rec
	}
	prev := 0
	crossed := false
	for i := 0; i < result.TotalChunks; i++ {
		rec := byIndex[i]
		require.NotNil(t, rec)
		assert.GreaterOrEqual(t, rec.Page, 1)
		assert.LessOrEqual(t, rec.Page, 2)
		assert.GreaterOrEqual(t, rec.Page, prev, "pages must not regress across chunks")
		assert.GreaterOrEqual(t, rec.PageEnd, rec.Page, "range end must not precede its start")
		assert.LessOrEqual(t, rec.PageEnd, 2)
		if rec.PageEnd > rec.Page {
			crossed = true
		}
		prev = rec.Page
	}
	assert.Equal(t, 1, byIndex[0].Page)
	assert.Equal(t, 1, byIndex[0].PageEnd)
	assert.Equal(t, 2, byIndex[result.TotalChunks-1].Page)
	assert.Equal(t, 2, byIndex[result.TotalChunks-1].PageEnd)
	// Some chunk straddles the page boundary and reports both pages.
	assert.True(t, crossed, "expected a chunk spanning the page break")
}

func TestProcess_BadPageOffsetsDropped(t *testing.T) {
	store := &memStore{}
	p := testPipeline(&stubLLM{}, &stubEmbedder{}, store, Config{ChunkSize: 5000, ChunkOverlap: 100, Concurrency: 1, DocPrefixChars: 12000})

	doc := &Document{FileId: "f1", Filename: "a.pdf", Text: "some text", PageStarts: []int{0, 50, 20}}
	_, err := p.Process(context.Background(), doc, nil)

	require.NoError(t, err)
	require.Len(t, store.records, 1)
	assert.Equal(t, 0, store.records[0].Page)
	assert.Equal(t, 0, store.records[0].PageEnd)
}

func TestProcess_EmptyDocument(t *testing.T) {
	store := &memStore{}
	p := testPipeline(&stubLLM{}, &stubEmbedder{}, store, DefaultConfig())

	result, err := p.Process(context.Background(), &Document{FileId: "f1", Filename: "empty.pdf", Text: "   "}, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalChunks)
	assert.Empty(t, store.records)
}
