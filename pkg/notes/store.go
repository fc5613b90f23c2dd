// Package notes stores user notes as markdown files in a single directory.
// The filename stem doubles as the note id.
package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"origami-be/pkg/textutil"
)

// Note is one markdown file.
type Note struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResearchLogName is the reserved file accumulated findings are appended to.
// It is listed and readable like any other note.
const ResearchLogName = "research"

var (
	ErrNotFound  = fmt.Errorf("note not found")
	ErrInvalidId = fmt.Errorf("invalid note id")
)

// Store reads and writes notes under a single directory. All operations are
// serialized; note files are small and contention is a non-issue.
type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create notes dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// validId rejects ids that could escape the notes directory.
func validId(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".md")
}

// Create makes a new empty note titled title. The filename is slugged from
// the title, suffixed with a counter when the slug is taken.
func (s *Store) Create(title string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	slug := textutil.SanitizeFilename(title)
	if slug == "" || slug == ResearchLogName {
		slug = "note"
	}

	id := slug
	for n := 2; ; n++ {
		if _, err := os.Stat(s.path(id)); os.IsNotExist(err) {
			break
		}
		id = fmt.Sprintf("%s-%d", slug, n)
	}

	content := fmt.Sprintf("# %s\n", title)
	if err := os.WriteFile(s.path(id), []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write note: %w", err)
	}
	return s.read(id)
}

// Append adds markdown to the end of an existing note, separated by a blank
// line.
func (s *Store) Append(id string, markdown string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(id, markdown)
}

func (s *Store) appendLocked(id string, markdown string) (*Note, error) {
	if !validId(id) {
		return nil, ErrInvalidId
	}
	existing, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read note: %w", err)
	}

	body := strings.TrimRight(string(existing), "\n")
	if body != "" {
		body += "\n\n"
	}
	body += strings.TrimSpace(markdown) + "\n"

	if err := os.WriteFile(s.path(id), []byte(body), 0o644); err != nil {
		return nil, fmt.Errorf("write note: %w", err)
	}
	return s.read(id)
}

// Read returns one note by id.
func (s *Store) Read(id string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

func (s *Store) read(id string) (*Note, error) {
	if !validId(id) {
		return nil, ErrInvalidId
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read note: %w", err)
	}
	info, err := os.Stat(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("stat note: %w", err)
	}
	content := string(data)
	return &Note{
		Id:        id,
		Title:     textutil.ExtractTitle(content, id+".md"),
		Filename:  id + ".md",
		Content:   content,
		UpdatedAt: info.ModTime(),
	}, nil
}

// List returns every note, most recently updated first.
func (s *Store) List() ([]*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	var out []*Note
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		note, err := s.read(strings.TrimSuffix(e.Name(), ".md"))
		if err != nil {
			continue
		}
		out = append(out, note)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Update replaces a note's content wholesale.
func (s *Store) Update(id string, content string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validId(id) {
		return nil, ErrInvalidId
	}
	if _, err := os.Stat(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat note: %w", err)
	}
	if err := os.WriteFile(s.path(id), []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write note: %w", err)
	}
	return s.read(id)
}

// Delete removes a note.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validId(id) {
		return ErrInvalidId
	}
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// AppendSection appends a dated findings section to the research log,
// creating the log on first use.
func (s *Store) AppendSection(header, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(ResearchLogName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		seed := "# Research Log\n"
		if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
			return fmt.Errorf("create research log: %w", err)
		}
	}
	section := fmt.Sprintf("## %s\n\n%s", header, strings.TrimSpace(body))
	_, err := s.appendLocked(ResearchLogName, section)
	return err
}
