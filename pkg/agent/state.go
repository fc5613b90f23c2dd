package agent

import (
	"context"
	"time"
)

// Message is one turn of the conversation driving a run.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything needed to start a research run.
type Request struct {
	Messages        []Message
	CurrentNote     string   // content of the note the user has open
	AllowEdits      bool     // whether edit/create actions may be materialized
	ActiveNoteTitle string   // title of the open note
	ActiveNoteId    string   // id of the open note, empty when none
	Scope           []string // optional restriction to specific document ids
}

// State is the mutable record threaded through one run. Callers receive it
// back from Run once the run has terminated.
type State struct {
	Messages        []Message
	CurrentNote     string
	CurrentQuery    string
	OriginalQuery   string
	ResearchNotes   []string
	RetrievedChunks []string
	LoopCount       int
	IsComplete      bool
	FinalAnswer     string
	Events          []Event
	AllowEdits      bool
	ActiveNoteTitle string
	ActiveNoteId    string
	Scope           []string
}

// RetrievedChunk is one similarity-search hit handed to the agent.
type RetrievedChunk struct {
	Text       string
	Source     string // filename of the originating document
	FileId     string
	ChunkIndex int
	Score      float64
}

// Retriever is the vector-search capability the agent depends on.
type Retriever interface {
	Search(ctx context.Context, query string, k int, fileIds []string) ([]RetrievedChunk, error)
}

// NoteResult is what the note store returns after a write.
type NoteResult struct {
	Id        string
	Title     string
	Content   string
	UpdatedAt time.Time
}

// NoteWriter is the note-storage capability used to materialize actions.
type NoteWriter interface {
	Create(title string) (*NoteResult, error)
	Append(id string, markdown string) (*NoteResult, error)
}

// ResearchLog receives dated sections of accumulated findings. Writes are
// best-effort; the agent ignores failures.
type ResearchLog interface {
	AppendSection(header, body string) error
}

// Config holds the run tunables. The zero value is unusable; use
// DefaultConfig as the baseline.
type Config struct {
	MaxLoops        int // review cycles before the run force-completes
	TopK            int // chunks fetched per retrieval
	HistoryTurns    int // conversation turns included in synthesis
	ActiveNoteChars int // bound on active-note content in prompts
	MinRefinedLen   int // refined queries at or below this length complete the run
}

func DefaultConfig() Config {
	return Config{
		MaxLoops:        3,
		TopK:            5,
		HistoryTurns:    6,
		ActiveNoteChars: 2000,
		MinRefinedLen:   5,
	}
}

func newState(req Request) *State {
	// The most recent user turn seeds the query and stays fixed as the
	// question the review step judges against.
	userQuery := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			userQuery = req.Messages[i].Content
			break
		}
	}

	return &State{
		Messages:        req.Messages,
		CurrentNote:     req.CurrentNote,
		CurrentQuery:    userQuery,
		OriginalQuery:   userQuery,
		ResearchNotes:   []string{},
		RetrievedChunks: []string{},
		Events:          []Event{},
		AllowEdits:      req.AllowEdits,
		ActiveNoteTitle: req.ActiveNoteTitle,
		ActiveNoteId:    req.ActiveNoteId,
		Scope:           req.Scope,
	}
}
