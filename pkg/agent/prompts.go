package agent

import "strings"

// Prompt templates for the research loop. Placeholders are substituted with
// strings.NewReplacer because several templates contain literal braces.

const analyzePrompt = `You are a research analyst. Analyze these document excerpts to answer the user's question.

## User's Question
{current_query}

## Current Research Notes
{current_notes}

## Retrieved Document Excerpts
{chunks_text}

## User's Active Notes (for context)
{active_notes}

Extract specific facts, data points, and key findings that help answer the question.
If you find relevant information, list each finding as a separate bullet point.
If the excerpts don't contain relevant information, say "NO_RELEVANT_INFO".
Be precise and cite specific details from the excerpts.`

const reviewPrompt = `You are a research reviewer. Determine if the research notes fully answer the user's original question.

## Original Question
{original_question}

## Research Notes Gathered So Far
{notes_text}

If the notes FULLY answer the question, respond with exactly: COMPLETE
If more information is needed, respond with: INCOMPLETE: [a refined search query to find the missing information]

Respond with ONLY one of the above formats.`

const chatOnlyInstruction = `The user has selected CHAT mode. You MUST set action to "chat". Do NOT use "edit" or "create" under any circumstances — the user has explicitly disabled file edits.`

const editAllowedInstruction = `Decide the appropriate action based on the user's request:

- "chat" — the user is asking a question or having a discussion (no file changes)
- "edit" — the user wants to modify their CURRENTLY OPEN note ("{active_note_title}")
- "create" — the user wants NEW content written to a NEW file

You MUST use "create" whenever the user says "new file", "new note", "create", "write about", "explain in a file", or otherwise requests content that does not belong in their current note.

Use "edit" ONLY when the user explicitly wants to add to or modify the note they already have open. Default to "chat" for questions, summaries, and discussion.`

const finalResponsePrompt = `You are a helpful AI research assistant embedded in a note-taking app. The user's currently open note is "{active_note_title}".

## Conversation History
{history}

## Research Findings
{notes_text}

## User's Active Notes
{active_notes}

{mode_instruction}

Respond with a single JSON object. No text before or after the JSON.

For "chat" — your full markdown response goes in "message":
{"action": "chat", "message": "Your detailed response with **markdown** formatting here"}

For "edit" — short confirmation in "message", markdown content in "content":
{"action": "edit", "message": "Added a section on attention mechanisms.", "content": "## New Section\n..."}

For "create" — same as edit plus "filename":
{"action": "create", "filename": "attention-mechanisms.md", "message": "Created a new note on attention mechanisms.", "content": "# Attention Mechanisms\n..."}

Requirements:
- Output ONLY valid JSON — no markdown code fences, no extra text
- Escape special characters in strings: newlines as \n, quotes as \"
- For chat: "message" should be thorough and use markdown (headings, lists, bold, math)
- For edit/create: "message" should be a brief confirmation (under 15 words)
- For create: pick a short 2-3 word filename ending in .md
- Math: ALWAYS wrap LaTeX in delimiters — inline $...$ and display $$...$$ on own lines. NEVER write bare LaTeX.

Every variable, equation, and symbol MUST be inside $ or $$. No exceptions.`

func buildAnalyzePrompt(currentQuery, currentNotes, chunksText, activeNotes string) string {
	return strings.NewReplacer(
		"{current_query}", currentQuery,
		"{current_notes}", currentNotes,
		"{chunks_text}", chunksText,
		"{active_notes}", activeNotes,
	).Replace(analyzePrompt)
}

func buildReviewPrompt(originalQuestion, notesText string) string {
	return strings.NewReplacer(
		"{original_question}", originalQuestion,
		"{notes_text}", notesText,
	).Replace(reviewPrompt)
}

func buildFinalPrompt(history, notesText, activeNotes, activeNoteTitle, modeInstruction string) string {
	return strings.NewReplacer(
		"{history}", history,
		"{notes_text}", notesText,
		"{active_notes}", activeNotes,
		"{active_note_title}", activeNoteTitle,
		"{mode_instruction}", modeInstruction,
	).Replace(finalResponsePrompt)
}
