package service

import (
	"context"
	"log"

	"origami-be/internal/config"
	"origami-be/internal/dto"
	"origami-be/pkg/agent"
	"origami-be/pkg/llm"
	"origami-be/pkg/notes"
)

type IChatService interface {
	// Stream runs a research session, delivering agent events until the
	// channel closes.
	Stream(ctx context.Context, req *dto.ChatRequest) <-chan agent.Event
}

type chatService struct {
	researchAgent *agent.Agent
}

func NewChatService(
	llmProvider llm.LLMProvider,
	retriever IRetrieverService,
	noteStore *notes.Store,
	agentLogger *log.Logger,
	cfg config.AgentConfig,
) IChatService {
	agentCfg := agent.DefaultConfig()
	if cfg.MaxLoops > 0 {
		agentCfg.MaxLoops = cfg.MaxLoops
	}
	if cfg.TopK > 0 {
		agentCfg.TopK = cfg.TopK
	}
	if cfg.HistoryTurns > 0 {
		agentCfg.HistoryTurns = cfg.HistoryTurns
	}

	return &chatService{
		researchAgent: agent.NewAgent(
			llmProvider,
			retriever,
			&noteWriterAdapter{store: noteStore},
			noteStore,
			agentLogger,
			agentCfg,
		),
	}
}

func (s *chatService) Stream(ctx context.Context, req *dto.ChatRequest) <-chan agent.Event {
	messages := make([]agent.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, agent.Message{Role: m.Role, Content: m.Content})
	}

	return s.researchAgent.Stream(ctx, agent.Request{
		Messages:        messages,
		CurrentNote:     req.CurrentNote,
		AllowEdits:      req.AllowEdits,
		ActiveNoteTitle: req.ActiveNoteTitle,
		ActiveNoteId:    req.ActiveNoteId,
		Scope:           req.Scope,
	})
}

// noteWriterAdapter exposes the markdown store through the agent's
// note-writing contract.
type noteWriterAdapter struct {
	store *notes.Store
}

func (a *noteWriterAdapter) Create(title string) (*agent.NoteResult, error) {
	n, err := a.store.Create(title)
	if err != nil {
		return nil, err
	}
	return toNoteResult(n), nil
}

func (a *noteWriterAdapter) Append(id string, markdown string) (*agent.NoteResult, error) {
	n, err := a.store.Append(id, markdown)
	if err != nil {
		return nil, err
	}
	return toNoteResult(n), nil
}

func toNoteResult(n *notes.Note) *agent.NoteResult {
	return &agent.NoteResult{
		Id:        n.Id,
		Title:     n.Title,
		Content:   n.Content,
		UpdatedAt: n.UpdatedAt,
	}
}
