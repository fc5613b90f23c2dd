package notes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestStore_CreateAndRead(t *testing.T) {
	s := newTestStore(t)

	note, err := s.Create("Attention Mechanisms")
	require.NoError(t, err)
	assert.Equal(t, "attention-mechanisms", note.Id)
	assert.Equal(t, "attention-mechanisms.md", note.Filename)
	assert.Equal(t, "Attention Mechanisms", note.Title)
	assert.Equal(t, "# Attention Mechanisms\n", note.Content)

	got, err := s.Read(note.Id)
	require.NoError(t, err)
	assert.Equal(t, note.Content, got.Content)
}

func TestStore_CreateDuplicateTitlesGetSuffix(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Create("Same Title")
	require.NoError(t, err)
	second, err := s.Create("Same Title")
	require.NoError(t, err)

	assert.Equal(t, "same-title", first.Id)
	assert.Equal(t, "same-title-2", second.Id)
}

func TestStore_CreateEmptyTitle(t *testing.T) {
	s := newTestStore(t)

	note, err := s.Create("   ")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", note.Title)
}

func TestStore_Append(t *testing.T) {
	s := newTestStore(t)

	note, err := s.Create("Transformers")
	require.NoError(t, err)

	updated, err := s.Append(note.Id, "## Encoder\n\nStacked layers.")
	require.NoError(t, err)
	assert.Equal(t, "# Transformers\n\n## Encoder\n\nStacked layers.\n", updated.Content)

	_, err = s.Append("missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RejectsTraversalIds(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Read("../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidId)
	_, err = s.Append("a/b", "x")
	assert.ErrorIs(t, err, ErrInvalidId)
	assert.ErrorIs(t, s.Delete(""), ErrInvalidId)
}

func TestStore_ListSkipsNonMarkdown(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	_, err = s.Create("Alpha")
	require.NoError(t, err)
	_, err = s.Create("Beta")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("x"), 0o644))

	list, err := s.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	s := newTestStore(t)

	note, err := s.Create("Draft")
	require.NoError(t, err)

	updated, err := s.Update(note.Id, "# Final\n\nDone.\n")
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)

	require.NoError(t, s.Delete(note.Id))
	_, err = s.Read(note.Id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(note.Id), ErrNotFound)
}

func TestStore_ResearchLog(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AppendSection("2026-08-28 10:00 - annealing", "- found the schedule"))
	require.NoError(t, s.AppendSection("2026-08-28 10:05 - cooling", "- found the rate"))

	log, err := s.Read(ResearchLogName)
	require.NoError(t, err)
	assert.Contains(t, log.Content, "# Research Log")
	assert.Contains(t, log.Content, "## 2026-08-28 10:00 - annealing")
	assert.Contains(t, log.Content, "- found the rate")
}
