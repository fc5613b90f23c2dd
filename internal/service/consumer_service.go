package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"origami-be/internal/dto"
	"origami-be/internal/entity"
	"origami-be/internal/repository/contract"
	"origami-be/internal/repository/memory"
	"origami-be/pkg/embedding"
	"origami-be/pkg/events"
	"origami-be/pkg/ingest"
	"origami-be/pkg/llm"
	"origami-be/pkg/pdfx"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventPublisher fans ingestion progress out to the event bus. Nil is fine;
// ingestion proceeds without progress events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	chunkRepo      contract.DocumentChunkRepository
	statusRepo     *memory.IngestStatusRepository
	llmProvider    llm.LLMProvider
	embedder       embedding.EmbeddingProvider
	pipelineLogger *log.Logger
	pipelineCfg    ingest.Config
	bus            EventPublisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	chunkRepo contract.DocumentChunkRepository,
	statusRepo *memory.IngestStatusRepository,
	llmProvider llm.LLMProvider,
	embedder embedding.EmbeddingProvider,
	pipelineLogger *log.Logger,
	pipelineCfg ingest.Config,
	bus EventPublisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		chunkRepo:      chunkRepo,
		statusRepo:     statusRepo,
		llmProvider:    llmProvider,
		embedder:       embedder,
		pipelineLogger: pipelineLogger,
		pipelineCfg:    pipelineCfg,
		bus:            bus,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var job dto.IngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		log.Printf("[ERROR] Failed to unmarshal ingest message: %v", err)
		msg.Ack() // malformed payloads never become valid; do not retry
		return
	}

	log.Printf("[INFO] Ingesting document %s (%s)", job.FileId, job.Filename)
	cs.setStatus(job, entity.IngestStatusProcessing, 0, 0, "")

	extraction, err := pdfx.Extract(job.Path)
	if err != nil {
		log.Printf("[ERROR] Failed to extract %s: %v", job.Path, err)
		cs.fail(ctx, job, "could not extract text from PDF")
		msg.Ack()
		return
	}

	// The store adapter carries per-document metadata that ChunkRecord
	// does not, so the pipeline is assembled per message.
	pipeline := ingest.NewPipeline(cs.llmProvider, cs.embedder,
		&chunkStore{repo: cs.chunkRepo, job: &job}, cs.pipelineLogger, cs.pipelineCfg)

	doc := &ingest.Document{
		FileId:     job.FileId.String(),
		Filename:   job.Filename,
		Text:       extraction.Text,
		PageStarts: extraction.PageStarts,
	}

	result, err := pipeline.Process(ctx, doc, func(done, total int) {
		cs.setStatus(job, entity.IngestStatusProcessing, total, done, "")
		cs.publishProgress(ctx, job, done, total)
	})
	if err != nil {
		log.Printf("[ERROR] Ingestion failed for %s after %d/%d chunks: %v",
			job.FileId, result.Ingested, result.TotalChunks, err)
		cs.fail(ctx, job, "ingestion failed, please retry the upload")
		// Upserts key on (file_id, chunk_index), so a redelivery would be
		// safe, but a hard failure here is usually a dead provider; Ack
		// and let the client re-confirm instead of spinning.
		msg.Ack()
		return
	}

	cs.setStatus(job, entity.IngestStatusCompleted, result.TotalChunks, result.Ingested, "")
	cs.publishEvent(ctx, events.TypeDocumentIngested, map[string]interface{}{
		"fileId":   job.FileId.String(),
		"filename": job.Filename,
		"title":    job.Title,
		"chunks":   result.Ingested,
	})

	log.Printf("[SUCCESS] Document ingested: %d chunks for FileId: %s", result.Ingested, job.FileId)
	msg.Ack()
}

func (cs *consumerService) setStatus(job dto.IngestDocumentMessage, status string, total, done int, errMsg string) {
	cs.statusRepo.Save(&entity.IngestStatus{
		FileId:         job.FileId,
		Filename:       job.Filename,
		Status:         status,
		TotalChunks:    total,
		IngestedChunks: done,
		Error:          errMsg,
	})
}

func (cs *consumerService) fail(ctx context.Context, job dto.IngestDocumentMessage, reason string) {
	cs.setStatus(job, entity.IngestStatusFailed, 0, 0, reason)
	cs.publishEvent(ctx, events.TypeDocumentProgress, map[string]interface{}{
		"fileId": job.FileId.String(),
		"status": entity.IngestStatusFailed,
		"error":  reason,
	})
}

func (cs *consumerService) publishProgress(ctx context.Context, job dto.IngestDocumentMessage, done, total int) {
	cs.publishEvent(ctx, events.TypeDocumentProgress, map[string]interface{}{
		"fileId":   job.FileId.String(),
		"filename": job.Filename,
		"status":   entity.IngestStatusProcessing,
		"done":     done,
		"total":    total,
	})
}

func (cs *consumerService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if cs.bus == nil {
		return
	}
	event := events.BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
	if err := cs.bus.Publish(ctx, event); err != nil {
		log.Printf("[WARN] Failed to publish %s event: %v", eventType, err)
	}
}

// chunkStore adapts the chunk repository to the pipeline's store interface,
// stamping each record with the document metadata carried by the job.
type chunkStore struct {
	repo contract.DocumentChunkRepository
	job  *dto.IngestDocumentMessage
}

func (s *chunkStore) SaveChunk(ctx context.Context, rec *ingest.ChunkRecord) error {
	fileId, err := uuid.Parse(rec.FileId)
	if err != nil {
		return err
	}

	chunk := &entity.DocumentChunk{
		Id:             uuid.New(),
		FileId:         fileId,
		ChunkIndex:     rec.ChunkIndex,
		Filename:       rec.Filename,
		Page:           rec.Page,
		PageEnd:        rec.PageEnd,
		Content:        rec.Text,
		Context:        rec.Context,
		EmbeddingValue: rec.Embedding,
		CreatedAt:      time.Now(),
	}
	if s.job != nil {
		chunk.Title = s.job.Title
		chunk.Tags = s.job.Tags
		chunk.ContentHash = s.job.ContentHash
		chunk.PublishedAt = s.job.PublishedAt
	}
	return s.repo.Upsert(ctx, chunk)
}
