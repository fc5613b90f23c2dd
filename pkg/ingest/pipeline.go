package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"origami-be/pkg/embedding"
	"origami-be/pkg/llm"
	"origami-be/pkg/textutil"
)

// Document is the extracted text of one uploaded file, ready for chunking.
type Document struct {
	FileId     string
	Filename   string
	Text       string
	PageStarts []int // offset at which each page begins, may be nil
}

// ChunkRecord is one embedded chunk handed to the store. Persistence happens
// per chunk as soon as its embedding is ready, so a failure partway through
// a document leaves the earlier chunks queryable.
type ChunkRecord struct {
	FileId     string
	Filename   string
	ChunkIndex int
	Page       int // first page the chunk touches, 1-based, 0 when unknown
	PageEnd    int // last page the chunk touches, inclusive, 0 when unknown
	Text       string
	Context    string // situating sentence, empty when generation failed
	Embedding  []float32
}

// Store persists embedded chunks. Implementations must be safe for
// concurrent use; the pipeline calls SaveChunk from several goroutines.
type Store interface {
	SaveChunk(ctx context.Context, rec *ChunkRecord) error
}

// ProgressFunc receives (done, total) after each chunk is persisted.
type ProgressFunc func(done, total int)

// Config holds the pipeline tunables.
type Config struct {
	ChunkSize      int   // characters per chunk
	ChunkOverlap   int   // characters shared between consecutive chunks
	Concurrency    int64 // chunks processed in parallel
	DocPrefixChars int   // document prefix given to the context model
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:      1200,
		ChunkOverlap:   300,
		Concurrency:    4,
		DocPrefixChars: 12000,
	}
}

// Result summarizes one document's ingestion.
type Result struct {
	TotalChunks int
	Ingested    int
}

// Pipeline implements contextual retrieval ingestion: each chunk is
// prefixed with a model-written sentence situating it in the whole document
// before being embedded. Context generation is best-effort; embedding and
// persistence are not.
type Pipeline struct {
	llmProvider llm.LLMProvider
	embedder    embedding.EmbeddingProvider
	store       Store
	logger      *log.Logger
	cfg         Config
}

func NewPipeline(llmProvider llm.LLMProvider, embedder embedding.EmbeddingProvider, store Store, logger *log.Logger, cfg Config) *Pipeline {
	if cfg.ChunkSize <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Pipeline{
		llmProvider: llmProvider,
		embedder:    embedder,
		store:       store,
		logger:      logger,
		cfg:         cfg,
	}
}

const contextPrompt = `<document>
%s
</document>

Here is a chunk from the document above:
<chunk>
%s
</chunk>

Write a short succinct context (1-2 sentences) situating this chunk within the overall document, to improve search retrieval of the chunk. Answer ONLY with the context and nothing else.`

const truncationMarker = "\n\n[... document truncated ...]"

// Process chunks, contextualizes, embeds and stores one document. An
// embedding or store failure aborts the remaining chunks and returns the
// error together with how far ingestion got.
func (p *Pipeline) Process(ctx context.Context, doc *Document, progress ProgressFunc) (*Result, error) {
	chunks := Split(doc.Text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	result := &Result{TotalChunks: len(chunks)}
	if len(chunks) == 0 {
		p.logger.Printf("[INGEST] %s: no text to ingest", doc.Filename)
		return result, nil
	}

	pageStarts := doc.PageStarts
	if pageStarts != nil && !validPageStarts(pageStarts) {
		p.logger.Printf("[INGEST] %s: unusable page offsets, skipping page attribution", doc.Filename)
		pageStarts = nil
	}
	spans := p.attributePages(doc.Text, chunks, pageStarts)

	docPrefix := doc.Text
	if len(docPrefix) > p.cfg.DocPrefixChars {
		docPrefix = docPrefix[:p.cfg.DocPrefixChars] + truncationMarker
	}

	p.logger.Printf("[INGEST] %s: %d chunks", doc.Filename, len(chunks))

	var done atomic.Int64
	sem := semaphore.NewWeighted(p.cfg.Concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := p.processChunk(gctx, doc, i, chunk, spans[i], docPrefix); err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			n := int(done.Add(1))
			if progress != nil {
				progress(n, len(chunks))
			}
			return nil
		})
	}

	err := g.Wait()
	result.Ingested = int(done.Load())
	if err != nil {
		p.logger.Printf("[INGEST] %s: aborted after %d/%d chunks: %v",
			doc.Filename, result.Ingested, result.TotalChunks, err)
		return result, err
	}
	return result, nil
}

func (p *Pipeline) processChunk(ctx context.Context, doc *Document, index int, chunk string, span pageSpan, docPrefix string) error {
	chunkContext := p.situate(ctx, docPrefix, chunk)

	embedText := chunk
	if chunkContext != "" {
		embedText = chunkContext + "\n\n" + chunk
	}

	resp, err := p.embedder.Generate(embedText, embedding.TaskRetrievalDocument)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	rec := &ChunkRecord{
		FileId:     doc.FileId,
		Filename:   doc.Filename,
		ChunkIndex: index,
		Page:       span.start,
		PageEnd:    span.end,
		Text:       chunk,
		Context:    chunkContext,
		Embedding:  resp.Embedding.Values,
	}
	if err := p.store.SaveChunk(ctx, rec); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// situate asks the model for a sentence placing the chunk in the document.
// Failure degrades to an empty context; the chunk is still embedded raw.
func (p *Pipeline) situate(ctx context.Context, docPrefix, chunk string) string {
	prompt := fmt.Sprintf(contextPrompt, docPrefix, chunk)
	out, err := p.llmProvider.Generate(ctx, prompt)
	if err != nil {
		p.logger.Printf("[INGEST] context generation failed, embedding raw chunk: %v", err)
		return ""
	}
	return strings.TrimSpace(textutil.StripThinkTags(out))
}

// attributePages locates each chunk in the document text and maps it to the
// inclusive range of pages it touches. Chunks are exact substrings emitted
// in order, so the search cursor only moves forward.
func (p *Pipeline) attributePages(text string, chunks []string, pageStarts []int) []pageSpan {
	spans := make([]pageSpan, len(chunks))
	if pageStarts == nil {
		return spans
	}
	cursor := 0
	for i, chunk := range chunks {
		pos := strings.Index(text[cursor:], chunk)
		if pos < 0 {
			// Should not happen; fall back to the previous chunk's pages.
			if i > 0 {
				spans[i] = spans[i-1]
			}
			continue
		}
		start := cursor + pos
		spans[i] = pageSpan{
			start: pageFor(pageStarts, start),
			end:   pageFor(pageStarts, start+len(chunk)-1),
		}
		// Overlapping chunks share a prefix with the tail of the previous
		// chunk, so advance only past this chunk's start.
		cursor = start + 1
	}
	return spans
}
