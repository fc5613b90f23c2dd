package service

import (
	"context"
	"errors"
	"log"
	"time"

	"origami-be/internal/dto"
	"origami-be/pkg/events"
	pktNats "origami-be/pkg/nats"
	"origami-be/pkg/notes"

	"github.com/gofiber/fiber/v2"
)

type INoteService interface {
	List(ctx context.Context) ([]*dto.NoteSummaryResponse, error)
	Show(ctx context.Context, id string) (*dto.NoteResponse, error)
	Create(ctx context.Context, req *dto.CreateNoteRequest) (*dto.NoteResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error)
	Delete(ctx context.Context, id string) error
}

type noteService struct {
	store          *notes.Store
	eventPublisher *pktNats.Publisher
}

func NewNoteService(store *notes.Store, eventPublisher *pktNats.Publisher) INoteService {
	return &noteService{
		store:          store,
		eventPublisher: eventPublisher,
	}
}

func (s *noteService) List(ctx context.Context) ([]*dto.NoteSummaryResponse, error) {
	list, err := s.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]*dto.NoteSummaryResponse, 0, len(list))
	for _, n := range list {
		out = append(out, &dto.NoteSummaryResponse{
			Id:        n.Id,
			Title:     n.Title,
			Filename:  n.Filename,
			UpdatedAt: n.UpdatedAt,
		})
	}
	return out, nil
}

func (s *noteService) Show(ctx context.Context, id string) (*dto.NoteResponse, error) {
	n, err := s.store.Read(id)
	if err != nil {
		return nil, mapNoteError(err)
	}
	return toNoteResponse(n), nil
}

func (s *noteService) Create(ctx context.Context, req *dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	n, err := s.store.Create(req.Title)
	if err != nil {
		return nil, err
	}
	if req.Content != "" {
		if n, err = s.store.Append(n.Id, req.Content); err != nil {
			return nil, err
		}
	}

	// Auxiliary: notify listeners, never fail the request over it.
	if s.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: events.TypeNoteCreated,
			Data: map[string]interface{}{
				"note_id": n.Id,
				"title":   n.Title,
			},
			OccurredAt: time.Now(),
		}
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish NOTE_CREATED event: %v", err)
		}
	}

	return toNoteResponse(n), nil
}

func (s *noteService) Update(ctx context.Context, id string, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	n, err := s.store.Update(id, req.Content)
	if err != nil {
		return nil, mapNoteError(err)
	}
	return toNoteResponse(n), nil
}

func (s *noteService) Delete(ctx context.Context, id string) error {
	return mapNoteError(s.store.Delete(id))
}

func toNoteResponse(n *notes.Note) *dto.NoteResponse {
	return &dto.NoteResponse{
		Id:        n.Id,
		Title:     n.Title,
		Filename:  n.Filename,
		Content:   n.Content,
		UpdatedAt: n.UpdatedAt,
	}
}

func mapNoteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notes.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "note not found")
	case errors.Is(err, notes.ErrInvalidId):
		return fiber.NewError(fiber.StatusBadRequest, "invalid note id")
	default:
		return err
	}
}
