package ingest

import "sort"

// pageSpan is the inclusive 1-based page range a chunk covers. The zero
// value means no page data.
type pageSpan struct {
	start, end int
}

// pageFor maps a character offset in the combined document text to a 1-based
// page number. starts holds the offset at which each page begins and must be
// non-decreasing with starts[0] == 0. Returns 0 when no page data exists.
func pageFor(starts []int, offset int) int {
	if len(starts) == 0 {
		return 0
	}
	// Rightmost page whose start is at or before the offset.
	return sort.Search(len(starts), func(i int) bool { return starts[i] > offset })
}

// validPageStarts reports whether starts can be used for attribution. A
// regressing sequence would misattribute every chunk after the regression,
// so the pipeline drops page data entirely rather than trusting it.
func validPageStarts(starts []int) bool {
	if len(starts) == 0 {
		return false
	}
	if starts[0] != 0 {
		return false
	}
	for i := 1; i < len(starts); i++ {
		if starts[i] < starts[i-1] {
			return false
		}
	}
	return true
}
