package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"origami-be/pkg/llm"
	"origami-be/pkg/textutil"
)

// Agent runs the iterative research loop: retrieve, analyze, save notes,
// review, and finally synthesize an answer or a note write.
type Agent struct {
	llmProvider llm.LLMProvider
	retriever   Retriever
	notes       NoteWriter
	researchLog ResearchLog
	logger      *log.Logger
	cfg         Config
}

// NewAgent creates an agent. notes and researchLog may be nil, in which case
// edit/create actions degrade to chat and findings are not persisted.
func NewAgent(llmProvider llm.LLMProvider, retriever Retriever, notes NoteWriter, researchLog ResearchLog, logger *log.Logger, cfg Config) *Agent {
	if cfg.MaxLoops <= 0 {
		cfg = DefaultConfig()
	}
	return &Agent{
		llmProvider: llmProvider,
		retriever:   retriever,
		notes:       notes,
		researchLog: researchLog,
		logger:      logger,
		cfg:         cfg,
	}
}

type emitFunc func(eventType EventType, content interface{})

// Run executes a full research run synchronously, collecting the events into
// the returned state. Returns the first node error, or the context error when
// the run is cancelled.
func (a *Agent) Run(ctx context.Context, req Request) (*State, error) {
	state := newState(req)
	emit := func(eventType EventType, content interface{}) {
		state.Events = append(state.Events, Event{Type: eventType, Content: content, Timestamp: time.Now()})
	}
	err := a.run(ctx, state, emit)
	return state, err
}

// Stream executes a research run in the background, delivering events as the
// run produces them. The channel is closed once the run terminates; closure
// is the only completion signal.
func (a *Agent) Stream(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event, 16)
	state := newState(req)
	emit := func(eventType EventType, content interface{}) {
		ev := Event{Type: eventType, Content: content, Timestamp: time.Now()}
		state.Events = append(state.Events, ev)
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}
	go func() {
		defer close(out)
		if err := a.run(ctx, state, emit); err != nil {
			a.logger.Printf("[RESEARCH] run aborted: %v", err)
		}
	}()
	return out
}

func (a *Agent) run(ctx context.Context, state *State, emit emitFunc) error {
	a.logger.Printf("[RESEARCH] starting run: %q", textutil.Truncate(state.OriginalQuery, 120))

	for !state.IsComplete {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.retrieve(ctx, state, emit); err != nil {
			return err
		}
		if err := a.analyze(ctx, state, emit); err != nil {
			return err
		}
		a.saveNotes(state)
		if err := a.review(ctx, state, emit); err != nil {
			return err
		}
	}

	a.finalResponse(ctx, state, emit)
	return ctx.Err()
}

// retrieve fetches the top-K chunks for the current query and reports which
// source documents they came from.
func (a *Agent) retrieve(ctx context.Context, state *State, emit emitFunc) error {
	chunks, err := a.retriever.Search(ctx, state.CurrentQuery, a.cfg.TopK, state.Scope)
	if err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}

	// Each loop replaces the previous excerpts; findings accumulate in
	// ResearchNotes instead.
	state.RetrievedChunks = state.RetrievedChunks[:0]
	for _, c := range chunks {
		state.RetrievedChunks = append(state.RetrievedChunks,
			fmt.Sprintf("[Source: %s]\n%s", c.Source, c.Text))
	}

	if len(chunks) == 0 {
		emit(EventSearching, "No relevant documents found")
	} else {
		emit(EventSearching, fmt.Sprintf("Reading %d chunks from %s",
			len(chunks), strings.Join(uniqueSources(chunks), ", ")))
	}

	a.logger.Printf("[RESEARCH] loop %d: retrieved %d chunks for %q",
		state.LoopCount+1, len(state.RetrievedChunks), textutil.Truncate(state.CurrentQuery, 80))
	return nil
}

// uniqueSources returns the chunk sources deduplicated in first-seen order.
func uniqueSources(chunks []RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.Source]; ok {
			continue
		}
		seen[c.Source] = struct{}{}
		sources = append(sources, c.Source)
	}
	return sources
}

// analyze asks the model to extract findings from the retrieved excerpts and
// records each bullet statement as its own note. With nothing retrieved, or
// when the model reports nothing relevant, no notes are added.
func (a *Agent) analyze(ctx context.Context, state *State, emit emitFunc) error {
	if len(state.RetrievedChunks) == 0 {
		return nil
	}

	currentNotes := "(none yet)"
	if len(state.ResearchNotes) > 0 {
		currentNotes = bulleted(state.ResearchNotes)
	}

	prompt := buildAnalyzePrompt(
		state.CurrentQuery,
		currentNotes,
		strings.Join(state.RetrievedChunks, "\n\n---\n\n"),
		textutil.Truncate(state.CurrentNote, a.cfg.ActiveNoteChars),
	)

	analysis, err := a.llmProvider.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	analysis = strings.TrimSpace(textutil.StripThinkTags(analysis))

	if strings.Contains(analysis, "NO_RELEVANT_INFO") {
		return nil
	}

	findings := splitFindings(analysis)
	if len(findings) > 0 {
		state.ResearchNotes = append(state.ResearchNotes, findings...)
		emit(EventNoteTaking, fmt.Sprintf("Extracted %d findings", len(findings)))
	}
	return nil
}

// splitFindings breaks an analysis into discrete statements, one per line,
// with leading bullet markers removed. Lines of ten characters or fewer are
// filler, not findings.
func splitFindings(analysis string) []string {
	var findings []string
	for _, raw := range strings.Split(analysis, "\n") {
		line := strings.TrimSpace(raw)
		if len(line) <= 10 {
			continue
		}
		findings = append(findings, strings.TrimSpace(strings.TrimLeft(line, "-•* ")))
	}
	return findings
}

func bulleted(notes []string) string {
	var b strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	return b.String()
}

// saveNotes appends the findings gathered so far to the research log.
// Skipped entirely for chat-only sessions. Failures are logged and ignored;
// the run never stalls on log I/O.
func (a *Agent) saveNotes(state *State) {
	if a.researchLog == nil || !state.AllowEdits || len(state.ResearchNotes) == 0 {
		return
	}
	header := fmt.Sprintf("%s - %s",
		time.Now().Format("2006-01-02 15:04"),
		textutil.Truncate(state.CurrentQuery, 80))
	if err := a.researchLog.AppendSection(header, bulleted(state.ResearchNotes)); err != nil {
		a.logger.Printf("[RESEARCH] research log write failed: %v", err)
	}
}

// review decides whether the gathered notes answer the original question.
// The verdict either completes the run or refines the query for another
// loop. A run with no findings completes immediately; anything unparseable
// completes the run rather than risking a spin.
func (a *Agent) review(ctx context.Context, state *State, emit emitFunc) error {
	state.LoopCount++
	if state.LoopCount >= a.cfg.MaxLoops {
		a.logger.Printf("[RESEARCH] loop cap reached (%d), forcing completion", a.cfg.MaxLoops)
		state.IsComplete = true
		return nil
	}

	if len(state.ResearchNotes) == 0 {
		state.IsComplete = true
		return nil
	}

	verdict, err := a.llmProvider.Generate(ctx, buildReviewPrompt(state.OriginalQuery, bulleted(state.ResearchNotes)))
	if err != nil {
		return fmt.Errorf("review: %w", err)
	}
	verdict = strings.TrimSpace(textutil.StripThinkTags(verdict))

	upper := strings.ToUpper(verdict)
	idx := strings.Index(upper, "INCOMPLETE")
	if idx == -1 {
		state.IsComplete = true
		return nil
	}

	refined := verdict[idx+len("INCOMPLETE"):]
	refined = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(refined), ":"))
	refined = strings.Trim(refined, `"'[]`)
	if len(refined) <= a.cfg.MinRefinedLen {
		state.IsComplete = true
		return nil
	}

	a.logger.Printf("[RESEARCH] refining query: %q", textutil.Truncate(refined, 80))
	state.CurrentQuery = refined
	emit(EventReasoning, fmt.Sprintf("Refining search: %s", refined))
	return nil
}

// finalResponse synthesizes the answer, recovers the structured action from
// the model output, materializes note writes, and emits the closing events.
func (a *Agent) finalResponse(ctx context.Context, state *State, emit emitFunc) {
	var history strings.Builder
	msgs := state.Messages
	if len(msgs) > a.cfg.HistoryTurns {
		msgs = msgs[len(msgs)-a.cfg.HistoryTurns:]
	}
	for _, m := range msgs {
		fmt.Fprintf(&history, "%s: %s\n", m.Role, m.Content)
	}

	notesText := "No research notes were gathered."
	if len(state.ResearchNotes) > 0 {
		notesText = bulleted(state.ResearchNotes)
	}

	modeInstruction := chatOnlyInstruction
	if state.AllowEdits {
		modeInstruction = strings.ReplaceAll(editAllowedInstruction, "{active_note_title}", state.ActiveNoteTitle)
	}

	prompt := buildFinalPrompt(
		history.String(),
		notesText,
		textutil.Truncate(state.CurrentNote, a.cfg.ActiveNoteChars),
		state.ActiveNoteTitle,
		modeInstruction,
	)

	raw, err := a.llmProvider.Generate(ctx, prompt)
	if err != nil {
		a.logger.Printf("[RESEARCH] final synthesis failed: %v", err)
		state.FinalAnswer = "Sorry, something went wrong while composing the answer. Please try again."
		emit(EventText, state.FinalAnswer)
		return
	}
	raw = strings.TrimSpace(textutil.StripThinkTags(raw))

	if raw == "" {
		// The model can return nothing at all. Answer from the notes
		// directly rather than handing the user an empty reply.
		if len(state.ResearchNotes) > 0 {
			top := state.ResearchNotes
			if len(top) > 5 {
				top = top[:5]
			}
			state.FinalAnswer = "Based on your notes, here's what I found: " + strings.Join(top, "; ")
		} else {
			state.FinalAnswer = "I couldn't find specific information about that. Could you rephrase?"
		}
		emit(EventText, state.FinalAnswer)
		return
	}

	action, ok := ExtractStructuredAction(raw)
	if !ok {
		// Unrecoverable output is still useful as a plain reply.
		a.logger.Printf("[RESEARCH] structured extraction failed, falling back to chat")
		action = &StructuredAction{Action: ActionChat, Message: raw}
	}

	if !state.AllowEdits && action.Action != ActionChat {
		// The reply stays as written; only the note write is dropped.
		a.logger.Printf("[RESEARCH] action %s suppressed, edits not permitted", action.Action)
		action = &StructuredAction{Action: ActionChat, Message: action.Message}
	}

	switch action.Action {
	case ActionEdit:
		a.materializeEdit(state, action, emit)
	case ActionCreate:
		a.materializeCreate(state, action, emit)
	}

	state.FinalAnswer = action.Message
	emit(EventText, state.FinalAnswer)
}

func (a *Agent) materializeEdit(state *State, action *StructuredAction, emit emitFunc) {
	if a.notes == nil || state.ActiveNoteId == "" || action.Content == "" {
		a.logger.Printf("[RESEARCH] edit requested but no editable note, skipping write")
		*action = StructuredAction{Action: ActionChat, Message: action.Message}
		return
	}

	res, err := a.notes.Append(state.ActiveNoteId, action.Content)
	if err != nil {
		a.logger.Printf("[RESEARCH] note append failed: %v", err)
		*action = StructuredAction{Action: ActionChat, Message: action.Message}
		return
	}

	emit(EventAction, ActionPayload{
		Action:    "edit_current",
		NoteId:    res.Id,
		Title:     res.Title,
		Markdown:  action.Content,
		UpdatedAt: res.UpdatedAt.Format(time.RFC3339),
	})
}

func (a *Agent) materializeCreate(state *State, action *StructuredAction, emit emitFunc) {
	if a.notes == nil || action.Content == "" {
		a.logger.Printf("[RESEARCH] create requested but nothing to write, skipping write")
		*action = StructuredAction{Action: ActionChat, Message: action.Message}
		return
	}

	title := textutil.ExtractTitle(action.Content, action.Filename)
	res, err := a.notes.Create(title)
	if err == nil {
		res, err = a.notes.Append(res.Id, action.Content)
	}
	if err != nil {
		a.logger.Printf("[RESEARCH] note create failed: %v", err)
		*action = StructuredAction{Action: ActionChat, Message: action.Message}
		return
	}

	filename := action.Filename
	if filename == "" {
		filename = textutil.SanitizeFilename(title) + ".md"
	}

	emit(EventAction, ActionPayload{
		Action:    "create_new",
		NoteId:    res.Id,
		Title:     res.Title,
		Filename:  filename,
		Markdown:  action.Content,
		UpdatedAt: res.UpdatedAt.Format(time.RFC3339),
	})
}
