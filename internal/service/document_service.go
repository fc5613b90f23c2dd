package service

import (
	"context"

	"origami-be/internal/dto"
	"origami-be/internal/pkg/logger"
	"origami-be/internal/repository/contract"
	"origami-be/internal/repository/specification"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentService interface {
	List(ctx context.Context) ([]*dto.DocumentResponse, error)
	Chunks(ctx context.Context, fileId uuid.UUID) ([]*dto.DocumentChunkResponse, error)
	Update(ctx context.Context, fileId uuid.UUID, req *dto.UpdateDocumentRequest) error
	Delete(ctx context.Context, fileId uuid.UUID) error
	Tags(ctx context.Context) (*dto.TagListResponse, error)
	SearchChunks(ctx context.Context, req *dto.SearchChunksRequest) ([]*dto.ScoredChunkResponse, error)
}

type documentService struct {
	chunkRepo contract.DocumentChunkRepository
	retriever IRetrieverService
	logger    logger.ILogger
}

func NewDocumentService(chunkRepo contract.DocumentChunkRepository, retriever IRetrieverService, sysLogger logger.ILogger) IDocumentService {
	return &documentService{
		chunkRepo: chunkRepo,
		retriever: retriever,
		logger:    sysLogger,
	}
}

func (s *documentService) List(ctx context.Context) ([]*dto.DocumentResponse, error) {
	docs, err := s.chunkRepo.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, &dto.DocumentResponse{
			FileId:      d.FileId,
			Filename:    d.Filename,
			Title:       d.Title,
			Tags:        tags,
			NumChunks:   d.NumChunks,
			PublishedAt: d.PublishedAt,
			CreatedAt:   d.CreatedAt,
		})
	}
	return out, nil
}

func (s *documentService) Chunks(ctx context.Context, fileId uuid.UUID) ([]*dto.DocumentChunkResponse, error) {
	chunks, err := s.chunkRepo.FindAll(ctx,
		specification.ByFileID{FileID: fileId},
		specification.OrderByChunkIndex{},
	)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fiber.NewError(fiber.StatusNotFound, "document not found")
	}

	out := make([]*dto.DocumentChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, &dto.DocumentChunkResponse{
			Id:         c.Id,
			ChunkIndex: c.ChunkIndex,
			Page:       c.Page,
			PageEnd:    c.PageEnd,
			Content:    c.Content,
			Context:    c.Context,
		})
	}
	return out, nil
}

func (s *documentService) Update(ctx context.Context, fileId uuid.UUID, req *dto.UpdateDocumentRequest) error {
	count, err := s.chunkRepo.Count(ctx, specification.ByFileID{FileID: fileId})
	if err != nil {
		return err
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	}

	if req.Title != nil {
		if err := s.chunkRepo.UpdateTitleByFileId(ctx, fileId, *req.Title); err != nil {
			return err
		}
	}
	if req.Tags != nil {
		if err := s.chunkRepo.UpdateTagsByFileId(ctx, fileId, *req.Tags); err != nil {
			return err
		}
	}

	s.logger.Info("document", "document metadata updated", map[string]interface{}{
		"file_id": fileId,
	})
	return nil
}

func (s *documentService) Delete(ctx context.Context, fileId uuid.UUID) error {
	count, err := s.chunkRepo.Count(ctx, specification.ByFileID{FileID: fileId})
	if err != nil {
		return err
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	}

	if err := s.chunkRepo.DeleteByFileId(ctx, fileId); err != nil {
		return err
	}
	s.logger.Info("document", "document deleted", map[string]interface{}{
		"file_id": fileId,
		"chunks":  count,
	})
	return nil
}

func (s *documentService) Tags(ctx context.Context) (*dto.TagListResponse, error) {
	tags, err := s.chunkRepo.DistinctTags(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return &dto.TagListResponse{Tags: tags}, nil
}

func (s *documentService) SearchChunks(ctx context.Context, req *dto.SearchChunksRequest) ([]*dto.ScoredChunkResponse, error) {
	k := req.TopK
	if k <= 0 {
		k = 5
	}

	scope := req.Scope
	if req.Tag != "" {
		fileIds, err := s.chunkRepo.FileIdsByTag(ctx, req.Tag)
		if err != nil {
			return nil, err
		}
		if len(fileIds) == 0 {
			return []*dto.ScoredChunkResponse{}, nil
		}
		for _, id := range fileIds {
			scope = append(scope, id.String())
		}
	}

	scored, err := s.retriever.SearchScored(ctx, req.Query, k, scope)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.ScoredChunkResponse, 0, len(scored))
	for _, sc := range scored {
		out = append(out, &dto.ScoredChunkResponse{
			FileId:     sc.Chunk.FileId,
			Filename:   sc.Chunk.Filename,
			ChunkIndex: sc.Chunk.ChunkIndex,
			Page:       sc.Chunk.Page,
			PageEnd:    sc.Chunk.PageEnd,
			Content:    sc.Chunk.Content,
			Similarity: sc.Similarity,
		})
	}
	return out, nil
}
