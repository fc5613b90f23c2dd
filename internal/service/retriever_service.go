package service

import (
	"context"
	"strings"

	"origami-be/internal/pkg/logger"
	"origami-be/internal/repository/contract"
	"origami-be/pkg/agent"
	"origami-be/pkg/embedding"

	"github.com/google/uuid"
)

// IRetrieverService bridges vector search to the research agent and to the
// direct chunk-search endpoint.
type IRetrieverService interface {
	agent.Retriever
	SearchScored(ctx context.Context, query string, k int, scope []string) ([]*contract.ScoredDocumentChunk, error)
}

type retrieverService struct {
	chunkRepo contract.DocumentChunkRepository
	embedder  embedding.EmbeddingProvider
	logger    logger.ILogger
}

func NewRetrieverService(chunkRepo contract.DocumentChunkRepository, embedder embedding.EmbeddingProvider, sysLogger logger.ILogger) IRetrieverService {
	return &retrieverService{
		chunkRepo: chunkRepo,
		embedder:  embedder,
		logger:    sysLogger,
	}
}

func (s *retrieverService) SearchScored(ctx context.Context, query string, k int, scope []string) ([]*contract.ScoredDocumentChunk, error) {
	resp, err := s.embedder.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}

	fileIds := s.resolveScope(ctx, scope)
	scored, err := s.chunkRepo.SearchSimilarWithScore(ctx, resp.Embedding.Values, k, fileIds, 0)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("retriever", "similarity search", map[string]interface{}{
		"query_len": len(query),
		"top_k":     k,
		"scoped":    len(fileIds),
		"hits":      len(scored),
	})
	return scored, nil
}

// Search implements agent.Retriever.
func (s *retrieverService) Search(ctx context.Context, query string, k int, fileIds []string) ([]agent.RetrievedChunk, error) {
	scored, err := s.SearchScored(ctx, query, k, fileIds)
	if err != nil {
		return nil, err
	}

	out := make([]agent.RetrievedChunk, 0, len(scored))
	for _, sc := range scored {
		text := sc.Chunk.Content
		if sc.Chunk.Context != "" {
			text = sc.Chunk.Context + "\n\n" + text
		}
		out = append(out, agent.RetrievedChunk{
			Text:       text,
			Source:     sc.Chunk.Filename,
			FileId:     sc.Chunk.FileId.String(),
			ChunkIndex: sc.Chunk.ChunkIndex,
			Score:      sc.Similarity,
		})
	}
	return out, nil
}

// resolveScope turns scope entries into file ids. Entries prefixed with "#"
// are tags and expand to every file carrying that tag; anything else is a
// file id. Malformed ids are dropped instead of failing the search.
func (s *retrieverService) resolveScope(ctx context.Context, scope []string) []uuid.UUID {
	var ids []uuid.UUID
	for _, entry := range scope {
		if tag, ok := strings.CutPrefix(entry, "#"); ok {
			tagged, err := s.chunkRepo.FileIdsByTag(ctx, tag)
			if err != nil {
				s.logger.Warn("retriever", "tag scope lookup failed", map[string]interface{}{
					"tag":   tag,
					"error": err.Error(),
				})
				continue
			}
			ids = append(ids, tagged...)
			continue
		}
		if id, err := uuid.Parse(entry); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
