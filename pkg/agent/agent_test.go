package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"origami-be/pkg/llm"
)

// scriptedLLM routes prompts to canned responses by prompt role markers so a
// single fake covers analyze, review and final synthesis.
type scriptedLLM struct {
	analyses  []string
	verdicts  []string
	finals    []string
	failAll   bool
	analyzeAt int
	verdictAt int
	finalAt   int
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", errors.New("empty history")
	}
	return s.generate(history[len(history)-1].Content)
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.generate(prompt)
}

func (s *scriptedLLM) generate(prompt string) (string, error) {
	if s.failAll {
		return "", errors.New("model unavailable")
	}
	switch {
	case strings.Contains(prompt, "research analyst"):
		return s.take(s.analyses, &s.analyzeAt, "- a finding about the topic"), nil
	case strings.Contains(prompt, "research reviewer"):
		return s.take(s.verdicts, &s.verdictAt, "COMPLETE"), nil
	default:
		return s.take(s.finals, &s.finalAt, `{"action": "chat", "message": "done"}`), nil
	}
}

func (s *scriptedLLM) take(responses []string, at *int, fallback string) string {
	if *at >= len(responses) {
		return fallback
	}
	r := responses[*at]
	*at++
	return r
}

type fakeRetriever struct {
	chunks  []RetrievedChunk
	err     error
	queries []string
}

func (f *fakeRetriever) Search(ctx context.Context, query string, k int, fileIds []string) ([]RetrievedChunk, error) {
	f.queries = append(f.queries, query)
	return f.chunks, f.err
}

type fakeNotes struct {
	created  []string
	appended map[string]string
	err      error
}

func (f *fakeNotes) Create(title string) (*NoteResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, title)
	return &NoteResult{Id: fmt.Sprintf("note-%d", len(f.created)), Title: title}, nil
}

func (f *fakeNotes) Append(id string, markdown string) (*NoteResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.appended == nil {
		f.appended = map[string]string{}
	}
	f.appended[id] += markdown
	return &NoteResult{Id: id, Title: "Existing Note"}, nil
}

type fakeResearchLog struct {
	headers []string
	bodies  []string
}

func (f *fakeResearchLog) AppendSection(header, body string) error {
	f.headers = append(f.headers, header)
	f.bodies = append(f.bodies, body)
	return nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func userRequest(query string) Request {
	return Request{Messages: []Message{{Role: "user", Content: query}}}
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func eventsOfType(events []Event, typ EventType) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestRun_SingleLoopComplete(t *testing.T) {
	llm := &scriptedLLM{
		analyses: []string{"- transformers weigh tokens with attention"},
		verdicts: []string{"COMPLETE"},
		finals:   []string{`{"action": "chat", "message": "Transformers rely on attention."}`},
	}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{
		{Text: "Attention is all you need.", Source: "paper.pdf"},
	}}

	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())
	state, err := agent.Run(context.Background(), userRequest("how do transformers work?"))

	require.NoError(t, err)
	assert.True(t, state.IsComplete)
	assert.Equal(t, 1, state.LoopCount)
	assert.Equal(t, "Transformers rely on attention.", state.FinalAnswer)
	assert.Equal(t, []string{"transformers weigh tokens with attention"}, state.ResearchNotes)
	assert.Equal(t,
		[]EventType{EventSearching, EventNoteTaking, EventText},
		eventTypes(state.Events))
}

func TestRun_SearchingEventNamesSources(t *testing.T) {
	llm := &scriptedLLM{verdicts: []string{"COMPLETE"}}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{
		{Text: "attention scores", Source: "paper.pdf"},
		{Text: "softmax layer", Source: "survey.pdf"},
		{Text: "multi-head layout", Source: "paper.pdf"},
	}}

	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())
	state, err := agent.Run(context.Background(), userRequest("What is attention?"))

	require.NoError(t, err)
	searching := eventsOfType(state.Events, EventSearching)
	require.NotEmpty(t, searching)
	// Sources are deduplicated and keep first-seen order.
	assert.Equal(t, "Reading 3 chunks from paper.pdf, survey.pdf", searching[0].Content)
}

func TestRun_SearchingEventOnEmptyRetrieval(t *testing.T) {
	llm := &scriptedLLM{}
	agent := NewAgent(llm, &fakeRetriever{}, nil, nil, testLogger(), DefaultConfig())

	state, err := agent.Run(context.Background(), userRequest("anything"))

	require.NoError(t, err)
	searching := eventsOfType(state.Events, EventSearching)
	require.Len(t, searching, 1)
	assert.Equal(t, "No relevant documents found", searching[0].Content)
}

func TestRun_AnalysisSplitsIntoFindings(t *testing.T) {
	llm := &scriptedLLM{
		analyses: []string{"- attention weighs token relevance\n- ok\n- softmax normalizes the scores"},
		verdicts: []string{"COMPLETE"},
	}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{{Text: "x", Source: "paper.pdf"}}}

	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())
	state, err := agent.Run(context.Background(), userRequest("What is attention?"))

	require.NoError(t, err)
	// One note per substantial line, bullet markers stripped; "- ok" is too
	// short to count as a finding.
	assert.Equal(t, []string{
		"attention weighs token relevance",
		"softmax normalizes the scores",
	}, state.ResearchNotes)

	noteTaking := eventsOfType(state.Events, EventNoteTaking)
	require.Len(t, noteTaking, 1)
	assert.Equal(t, "Extracted 2 findings", noteTaking[0].Content)
}

func TestSplitFindings(t *testing.T) {
	findings := splitFindings("* starred finding here\n• bulleted finding here\nshort\n- plain dashed finding")
	assert.Equal(t, []string{
		"starred finding here",
		"bulleted finding here",
		"plain dashed finding",
	}, findings)
}

func TestRun_LoopCapForcesCompletion(t *testing.T) {
	llm := &scriptedLLM{
		analyses: []string{"- partial coverage of encodings", "- more about rotary variants", "- even more encoding details"},
		verdicts: []string{
			"INCOMPLETE: transformer positional encoding details",
			"INCOMPLETE: rotary embedding comparison",
			"INCOMPLETE: this verdict must never be requested",
		},
	}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{{Text: "x", Source: "a.pdf"}}}

	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())
	state, err := agent.Run(context.Background(), userRequest("explain positional encoding"))

	require.NoError(t, err)
	assert.Equal(t, 3, state.LoopCount)
	assert.Len(t, retriever.queries, 3)
	// The third review hits the cap before asking the model.
	assert.Equal(t, 2, llm.verdictAt)
	assert.Equal(t, "explain positional encoding", retriever.queries[0])
	assert.Equal(t, "transformer positional encoding details", retriever.queries[1])
	assert.Equal(t, "rotary embedding comparison", retriever.queries[2])
}

func TestRun_ShortRefinedQueryCompletes(t *testing.T) {
	llm := &scriptedLLM{
		verdicts: []string{`INCOMPLETE: "ok"`},
	}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{{Text: "x", Source: "a.pdf"}}}

	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())
	state, err := agent.Run(context.Background(), userRequest("anything"))

	require.NoError(t, err)
	assert.Equal(t, 1, state.LoopCount)
	assert.True(t, state.IsComplete)
}

func TestRun_NoRelevantInfoNotRecorded(t *testing.T) {
	llm := &scriptedLLM{
		analyses: []string{"NO_RELEVANT_INFO"},
	}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{{Text: "unrelated", Source: "b.pdf"}}}

	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())
	state, err := agent.Run(context.Background(), userRequest("who won the cup?"))

	require.NoError(t, err)
	assert.Empty(t, state.ResearchNotes)
}

func TestRun_NoFindingsCompletesFirstLoop(t *testing.T) {
	llm := &scriptedLLM{}
	retriever := &fakeRetriever{}
	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())

	state, err := agent.Run(context.Background(), userRequest("anything at all"))

	require.NoError(t, err)
	assert.Empty(t, state.ResearchNotes)
	// With nothing gathered the run completes without consulting the
	// reviewer again and again.
	assert.Equal(t, 1, state.LoopCount)
	assert.Len(t, retriever.queries, 1)
	assert.Equal(t, 0, llm.verdictAt)
}

func TestRun_ResearchLogGetsAllFindings(t *testing.T) {
	llm := &scriptedLLM{
		analyses: []string{"- attention weighs token relevance", "- softmax normalizes the scores"},
		verdicts: []string{"INCOMPLETE: softmax normalization details", "COMPLETE"},
	}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{{Text: "x", Source: "a.pdf"}}}
	researchLog := &fakeResearchLog{}

	req := userRequest("how does attention work?")
	req.AllowEdits = true
	agent := NewAgent(llm, retriever, nil, researchLog, testLogger(), DefaultConfig())
	_, err := agent.Run(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, researchLog.headers, 2)
	// The section header carries the query of the loop being saved.
	assert.Contains(t, researchLog.headers[0], "how does attention work?")
	assert.Contains(t, researchLog.headers[1], "softmax normalization details")
	// Each section holds everything gathered so far, one bullet per finding.
	assert.Equal(t, "- attention weighs token relevance\n", researchLog.bodies[0])
	assert.Equal(t, "- attention weighs token relevance\n- softmax normalizes the scores\n", researchLog.bodies[1])
}

func TestRun_ChatOnlySessionSkipsResearchLog(t *testing.T) {
	llm := &scriptedLLM{
		analyses: []string{"- attention weighs token relevance"},
		verdicts: []string{"COMPLETE"},
	}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{{Text: "x", Source: "a.pdf"}}}
	researchLog := &fakeResearchLog{}

	agent := NewAgent(llm, retriever, nil, researchLog, testLogger(), DefaultConfig())
	state, err := agent.Run(context.Background(), userRequest("how does attention work?"))

	require.NoError(t, err)
	assert.NotEmpty(t, state.ResearchNotes)
	assert.Empty(t, researchLog.headers)
}

func TestRun_EditActionAppendsToActiveNote(t *testing.T) {
	llm := &scriptedLLM{
		finals: []string{`{"action": "edit", "message": "Added a summary.", "content": "## Summary\n\nKey points."}`},
	}
	notes := &fakeNotes{}
	agent := NewAgent(llm, &fakeRetriever{}, notes, nil, testLogger(), DefaultConfig())

	req := userRequest("add a summary to my note")
	req.AllowEdits = true
	req.ActiveNoteId = "note-42"
	req.ActiveNoteTitle = "Existing Note"
	state, err := agent.Run(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "Added a summary.", state.FinalAnswer)
	assert.Equal(t, "## Summary\n\nKey points.", notes.appended["note-42"])

	var payload *ActionPayload
	for _, e := range state.Events {
		if e.Type == EventAction {
			p := e.Content.(ActionPayload)
			payload = &p
		}
	}
	require.NotNil(t, payload)
	assert.Equal(t, "edit_current", payload.Action)
	assert.Equal(t, "note-42", payload.NoteId)
}

func TestRun_CreateActionMakesNewNote(t *testing.T) {
	llm := &scriptedLLM{
		finals: []string{`{"action": "create", "filename": "attention.md", "message": "Created a note.", "content": "# Attention\n\nDetails."}`},
	}
	notes := &fakeNotes{}
	agent := NewAgent(llm, &fakeRetriever{}, notes, nil, testLogger(), DefaultConfig())

	req := userRequest("write a note about attention")
	req.AllowEdits = true
	state, err := agent.Run(context.Background(), req)

	require.NoError(t, err)
	require.Equal(t, []string{"Attention"}, notes.created)
	assert.Equal(t, "# Attention\n\nDetails.", notes.appended["note-1"])

	var payload *ActionPayload
	for _, e := range state.Events {
		if e.Type == EventAction {
			p := e.Content.(ActionPayload)
			payload = &p
		}
	}
	require.NotNil(t, payload)
	assert.Equal(t, "create_new", payload.Action)
	assert.Equal(t, "attention.md", payload.Filename)
}

func TestRun_ChatModeSuppressesActions(t *testing.T) {
	llm := &scriptedLLM{
		finals: []string{`{"action": "create", "filename": "x.md", "message": "Created it.", "content": "# X\n\nBody."}`},
	}
	notes := &fakeNotes{}
	agent := NewAgent(llm, &fakeRetriever{}, notes, nil, testLogger(), DefaultConfig())

	req := userRequest("write about X")
	req.AllowEdits = false
	state, err := agent.Run(context.Background(), req)

	require.NoError(t, err)
	assert.Empty(t, notes.created)
	// The write is dropped silently; the reply is exactly the message.
	assert.Equal(t, "Created it.", state.FinalAnswer)
	for _, e := range state.Events {
		assert.NotEqual(t, EventAction, e.Type)
	}
}

func TestRun_UnparseableFinalFallsBackToChat(t *testing.T) {
	llm := &scriptedLLM{
		finals: []string{"I could not produce JSON, but here is the answer in prose."},
	}
	agent := NewAgent(llm, &fakeRetriever{}, nil, nil, testLogger(), DefaultConfig())

	state, err := agent.Run(context.Background(), userRequest("anything"))

	require.NoError(t, err)
	assert.Equal(t, "I could not produce JSON, but here is the answer in prose.", state.FinalAnswer)
}

func TestRun_EmptyFinalOutputAnswersFromNotes(t *testing.T) {
	llm := &scriptedLLM{
		analyses: []string{"- attention weighs token relevance"},
		verdicts: []string{"COMPLETE"},
		finals:   []string{""},
	}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{{Text: "x", Source: "a.pdf"}}}
	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())

	state, err := agent.Run(context.Background(), userRequest("What is attention?"))

	require.NoError(t, err)
	assert.Contains(t, state.FinalAnswer, "Based on your notes")
	assert.Contains(t, state.FinalAnswer, "attention weighs token relevance")
}

func TestRun_EmptyFinalOutputWithoutNotes(t *testing.T) {
	llm := &scriptedLLM{finals: []string{"<think>nothing to say</think>"}}
	agent := NewAgent(llm, &fakeRetriever{}, nil, nil, testLogger(), DefaultConfig())

	state, err := agent.Run(context.Background(), userRequest("anything"))

	require.NoError(t, err)
	assert.Equal(t, "I couldn't find specific information about that. Could you rephrase?", state.FinalAnswer)
}

func TestRun_ThinkTagsStripped(t *testing.T) {
	llm := &scriptedLLM{
		analyses: []string{"<think>scanning</think>- attention weighs token relevance"},
		verdicts: []string{"<think>let me check the notes</think>COMPLETE"},
		finals:   []string{"<think>planning</think>{\"action\": \"chat\", \"message\": \"clean answer\"}"},
	}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{{Text: "x", Source: "a.pdf"}}}
	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())

	state, err := agent.Run(context.Background(), userRequest("anything"))

	require.NoError(t, err)
	assert.Equal(t, 1, state.LoopCount)
	assert.Equal(t, []string{"attention weighs token relevance"}, state.ResearchNotes)
	assert.Equal(t, "clean answer", state.FinalAnswer)
}

func TestRun_RetrieverFailureAbortsRun(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("vector store down")}
	agent := NewAgent(&scriptedLLM{}, retriever, nil, nil, testLogger(), DefaultConfig())

	state, err := agent.Run(context.Background(), userRequest("anything"))

	require.Error(t, err)
	assert.Empty(t, state.FinalAnswer)
	assert.Empty(t, eventsOfType(state.Events, EventText))
}

func TestRun_AnalysisFailureAbortsRun(t *testing.T) {
	llm := &scriptedLLM{failAll: true}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{{Text: "x", Source: "a.pdf"}}}
	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())

	state, err := agent.Run(context.Background(), userRequest("anything"))

	require.Error(t, err)
	assert.False(t, state.IsComplete)
	assert.Empty(t, state.FinalAnswer)
}

func TestStream_DeliversEventsAndCloses(t *testing.T) {
	llm := &scriptedLLM{
		analyses: []string{"- a finding about streams"},
		verdicts: []string{"COMPLETE"},
		finals:   []string{`{"action": "chat", "message": "streamed answer"}`},
	}
	retriever := &fakeRetriever{chunks: []RetrievedChunk{{Text: "x", Source: "a.pdf"}}}
	agent := NewAgent(llm, retriever, nil, nil, testLogger(), DefaultConfig())

	var events []Event
	for ev := range agent.Stream(context.Background(), userRequest("stream it")) {
		events = append(events, ev)
	}

	require.NotEmpty(t, events)
	assert.Equal(t,
		[]EventType{EventSearching, EventNoteTaking, EventText},
		eventTypes(events))
	assert.Equal(t, "streamed answer", events[len(events)-1].Content)
}

func TestStream_ClosesOnFailedRun(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("vector store down")}
	agent := NewAgent(&scriptedLLM{}, retriever, nil, nil, testLogger(), DefaultConfig())

	var events []Event
	for ev := range agent.Stream(context.Background(), userRequest("anything")) {
		events = append(events, ev)
	}

	assert.Empty(t, eventsOfType(events, EventText))
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &scriptedLLM{}
	agent := NewAgent(llm, &fakeRetriever{}, nil, nil, testLogger(), DefaultConfig())

	_, err := agent.Run(ctx, userRequest("anything"))
	assert.ErrorIs(t, err, context.Canceled)
}
