// Package pdfx extracts text and metadata from PDF files for ingestion.
package pdfx

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"origami-be/pkg/textutil"
)

// Extraction is the text of a PDF plus everything needed for page
// attribution and cataloguing.
type Extraction struct {
	Text        string     // all pages joined by blank lines
	PageStarts  []int      // offset of each page within Text
	NumPages    int
	Title       string     // metadata title or first-page heuristic, may be empty
	PublishedAt *time.Time // creation date from metadata, nil when absent
}

const pageJoiner = "\n\n"

// Extract reads a PDF from disk.
func Extract(path string) (*Extraction, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return extract(r)
}

// ExtractBytes reads a PDF already held in memory, as uploads arrive.
func ExtractBytes(data []byte) (*Extraction, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return extract(r)
}

func extract(r *pdf.Reader) (*Extraction, error) {
	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		pages = append(pages, pageText(r, i))
	}

	// Empty pages keep their slot so offsets stay aligned with page numbers.
	starts := make([]int, len(pages))
	offset := 0
	for i, p := range pages {
		starts[i] = offset
		offset += len(p) + len(pageJoiner)
	}
	text := strings.Join(pages, pageJoiner)

	ext := &Extraction{
		Text:       text,
		PageStarts: starts,
		NumPages:   numPages,
	}

	title, published := readInfo(r)
	ext.PublishedAt = published
	ext.Title = resolveTitle(title, pages[0])

	return ext, nil
}

// pageText extracts one page's plain text. The underlying parser panics on
// some malformed content streams, so a broken page degrades to empty text
// instead of killing the extraction.
func pageText(r *pdf.Reader, num int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
		}
	}()
	p := r.Page(num)
	if p.V.IsNull() {
		return ""
	}
	s, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return s
}

// readInfo pulls title and creation date out of the document info
// dictionary. Malformed trailers panic in the parser, hence the recover.
func readInfo(r *pdf.Reader) (title string, published *time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			title, published = "", nil
		}
	}()

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return "", nil
	}

	if v := info.Key("Title"); v.Kind() == pdf.String {
		title = strings.TrimSpace(v.RawString())
	}
	if v := info.Key("CreationDate"); v.Kind() == pdf.String {
		if t, ok := ParsePDFDate(v.RawString()); ok {
			published = &t
		}
	}
	return title, published
}

var pdfDateLayouts = []string{
	"20060102150405",
	"200601021504",
	"2006010215",
	"20060102",
	"200601",
	"2006",
}

// ParsePDFDate parses PDF date strings such as "D:20240131235959+07'00'".
// Timezone suffixes are ignored; producers disagree wildly on their format.
func ParsePDFDate(s string) (time.Time, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	s = s[:i]

	for _, layout := range pdfDateLayouts {
		if len(s) == len(layout) {
			t, err := time.Parse(layout, s)
			if err != nil {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// resolveTitle picks the document title from metadata, falling back to the
// first page, and keeps only the part after a colon/dash separator so
// "arXiv:2104.12345v2: Real Title" surfaces as "Real Title".
func resolveTitle(metaTitle, firstPage string) string {
	title := metaTitle
	if len(title) <= 3 {
		// Metadata titles this short are producer junk ("1", "doc").
		title = firstPageTitle(firstPage)
	}
	if title == "" {
		return ""
	}
	return textutil.PickSubtitle(title)
}

// firstPageTitle scans the opening lines of page one for something that
// reads like a document title.
func firstPageTitle(page string) string {
	lines := strings.Split(page, "\n")
	if len(lines) > 15 {
		lines = lines[:15]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if textutil.IsPlausibleTitleLine(line) {
			return line
		}
	}
	return ""
}
