package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"origami-be/internal/dto"
	"origami-be/internal/entity"
	"origami-be/internal/pkg/logger"
	"origami-be/internal/repository/contract"
	"origami-be/internal/repository/memory"
	"origami-be/internal/repository/specification"
	"origami-be/pkg/pdfx"
	"origami-be/pkg/textutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IUploadService interface {
	// Upload is phase one: persist the file, inspect it, detect re-uploads.
	Upload(ctx context.Context, filename string, data []byte) (*dto.UploadResponse, error)
	// Confirm is phase two: queue the pending upload for ingestion.
	Confirm(ctx context.Context, req *dto.ConfirmUploadRequest) (*dto.ConfirmUploadResponse, error)
	Status(ctx context.Context, fileId uuid.UUID) (*dto.IngestStatusResponse, error)
}

type uploadService struct {
	uploadsDir string
	uploadRepo *memory.UploadRepository
	statusRepo *memory.IngestStatusRepository
	chunkRepo  contract.DocumentChunkRepository
	publisher  IPublisherService
	logger     logger.ILogger
}

func NewUploadService(
	uploadsDir string,
	uploadRepo *memory.UploadRepository,
	statusRepo *memory.IngestStatusRepository,
	chunkRepo contract.DocumentChunkRepository,
	publisher IPublisherService,
	sysLogger logger.ILogger,
) IUploadService {
	return &uploadService{
		uploadsDir: uploadsDir,
		uploadRepo: uploadRepo,
		statusRepo: statusRepo,
		chunkRepo:  chunkRepo,
		publisher:  publisher,
		logger:     sysLogger,
	}
}

func (s *uploadService) Upload(ctx context.Context, filename string, data []byte) (*dto.UploadResponse, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, fiber.NewError(fiber.StatusBadRequest, "only PDF files are supported")
	}
	if len(data) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "empty file")
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	// Same bytes already in the index: report instead of re-ingesting.
	if existing, err := s.chunkRepo.FindFirstByHash(ctx, hash); err != nil {
		return nil, err
	} else if existing != nil {
		s.logger.Info("upload", "duplicate upload detected", map[string]interface{}{
			"filename": filename,
			"file_id":  existing.FileId,
		})
		existingId := existing.FileId
		return &dto.UploadResponse{
			Filename:   filename,
			Duplicate:  true,
			ExistingId: &existingId,
		}, nil
	}

	extraction, err := pdfx.ExtractBytes(data)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("could not read PDF: %v", err))
	}

	uploadId := uuid.New()
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare uploads dir: %w", err)
	}
	path := filepath.Join(s.uploadsDir, uploadId.String()+".pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	title := extraction.Title
	if title == "" {
		title = textutil.ExtractTitle("", filename)
	}

	s.uploadRepo.Save(&entity.PendingUpload{
		UploadId:    uploadId,
		Filename:    filename,
		Path:        path,
		ContentHash: hash,
		Size:        int64(len(data)),
		NumPages:    extraction.NumPages,
		Title:       title,
		PublishedAt: extraction.PublishedAt,
		CreatedAt:   time.Now(),
	})

	s.logger.Info("upload", "upload staged", map[string]interface{}{
		"upload_id": uploadId,
		"filename":  filename,
		"pages":     extraction.NumPages,
	})

	return &dto.UploadResponse{
		UploadId:    uploadId,
		Filename:    filename,
		Title:       title,
		NumPages:    extraction.NumPages,
		Size:        int64(len(data)),
		PublishedAt: extraction.PublishedAt,
	}, nil
}

func (s *uploadService) Confirm(ctx context.Context, req *dto.ConfirmUploadRequest) (*dto.ConfirmUploadResponse, error) {
	pending, found := s.uploadRepo.Get(req.UploadId)
	if !found {
		return nil, fiber.NewError(fiber.StatusNotFound, "upload not found or expired")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = pending.Title
	}

	fileId := uuid.New()
	s.statusRepo.Save(&entity.IngestStatus{
		FileId:   fileId,
		Filename: pending.Filename,
		Status:   entity.IngestStatusPending,
	})

	payload, err := json.Marshal(dto.IngestDocumentMessage{
		FileId:      fileId,
		Path:        pending.Path,
		Filename:    pending.Filename,
		Title:       title,
		Tags:        req.Tags,
		ContentHash: pending.ContentHash,
		PublishedAt: pending.PublishedAt,
	})
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		return nil, err
	}

	s.uploadRepo.Delete(req.UploadId)

	s.logger.Info("upload", "ingestion queued", map[string]interface{}{
		"file_id":  fileId,
		"filename": pending.Filename,
	})

	return &dto.ConfirmUploadResponse{
		FileId: fileId,
		Status: entity.IngestStatusPending,
	}, nil
}

func (s *uploadService) Status(ctx context.Context, fileId uuid.UUID) (*dto.IngestStatusResponse, error) {
	status, found := s.statusRepo.Get(fileId.String())
	if !found {
		// The cache entry may have aged out; a fully ingested document
		// still answers from the database.
		count, err := s.chunkRepo.Count(ctx, specification.ByFileID{FileID: fileId})
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, fiber.NewError(fiber.StatusNotFound, "unknown file id")
		}
		return &dto.IngestStatusResponse{
			FileId:         fileId,
			Status:         entity.IngestStatusCompleted,
			TotalChunks:    int(count),
			IngestedChunks: int(count),
		}, nil
	}

	return &dto.IngestStatusResponse{
		FileId:         status.FileId,
		Filename:       status.Filename,
		Status:         status.Status,
		TotalChunks:    status.TotalChunks,
		IngestedChunks: status.IngestedChunks,
		Error:          status.Error,
	}, nil
}
