package ingest

import "strings"

// defaultSeparators orders the boundaries the splitter prefers: paragraph
// breaks, then lines, then sentences, then words, then raw characters.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Split breaks text into chunks of at most chunkSize characters, overlapping
// consecutive chunks by roughly overlap characters. Boundaries fall on the
// coarsest separator that keeps chunks under the limit. Every returned chunk
// is an exact substring of text, which lets callers recover its position for
// page attribution.
func Split(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}

	pieces := splitRecursive(text, chunkSize, defaultSeparators)
	merged := mergePieces(pieces, chunkSize, overlap)

	chunks := make([]string, 0, len(merged))
	for _, c := range merged {
		c = strings.TrimSpace(c)
		if c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// splitRecursive cuts text on the first separator present, recursing with
// finer separators on any piece still over the limit. Separators stay
// attached to the preceding piece so concatenating pieces reproduces text.
func splitRecursive(text string, chunkSize int, separators []string) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return splitFixed(text, chunkSize)
	}

	sep := separators[0]
	rest := separators[1:]
	if sep == "" {
		return splitFixed(text, chunkSize)
	}
	if !strings.Contains(text, sep) {
		return splitRecursive(text, chunkSize, rest)
	}

	var out []string
	for _, piece := range splitAfter(text, sep) {
		if len(piece) > chunkSize {
			out = append(out, splitRecursive(piece, chunkSize, rest)...)
		} else {
			out = append(out, piece)
		}
	}
	return out
}

// splitAfter is strings.SplitAfter without the trailing empty piece that
// appears when text ends with the separator.
func splitAfter(text, sep string) []string {
	pieces := strings.SplitAfter(text, sep)
	if n := len(pieces); n > 0 && pieces[n-1] == "" {
		pieces = pieces[:n-1]
	}
	return pieces
}

// splitFixed slices text into plain character windows. Rune-aligned so a
// multi-byte character never straddles a boundary.
func splitFixed(text string, chunkSize int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}
	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// mergePieces greedily packs consecutive pieces into chunks of at most
// chunkSize characters. When a chunk is emitted, a tail of whole pieces up
// to overlap characters seeds the next chunk so context carries across the
// boundary.
func mergePieces(pieces []string, chunkSize, overlap int) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		if total+len(piece) > chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, ""))
			for len(current) > 0 && (total > overlap || total+len(piece) > chunkSize) {
				total -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += len(piece)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}
