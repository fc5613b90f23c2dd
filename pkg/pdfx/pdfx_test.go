package pdfx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePDFDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"full with timezone", "D:20240131235959+07'00'", "2024-01-31T23:59:59Z", true},
		{"full utc marker", "D:20240131235959Z", "2024-01-31T23:59:59Z", true},
		{"minutes precision", "D:202401312359", "2024-01-31T23:59:00Z", true},
		{"date only", "D:20240131", "2024-01-31T00:00:00Z", true},
		{"year only", "D:2024", "2024-01-01T00:00:00Z", true},
		{"no prefix", "20240615120000", "2024-06-15T12:00:00Z", true},
		{"garbage", "not a date", "", false},
		{"empty", "", "", false},
		{"odd digit count", "D:202401312", "", false},
		{"impossible month", "D:20241331", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePDFDate(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				want, err := time.Parse(time.RFC3339, tt.want)
				require.NoError(t, err)
				assert.True(t, got.Equal(want), "got %v want %v", got, want)
			}
		})
	}
}

func TestResolveTitle(t *testing.T) {
	tests := []struct {
		name      string
		meta      string
		firstPage string
		want      string
	}{
		{"metadata wins", "Deep Learning Survey", "Something Else\n", "Deep Learning Survey"},
		{"metadata subtitle after colon", "Attention Is All You Need: A Retrospective", "", "A Retrospective"},
		{"metadata subtitle after dash", "TR-2024-07 - Sparse Attention Kernels", "", "Sparse Attention Kernels"},
		{"junk metadata falls back to page", "doc", "\nGradient Descent Notes\nAuthor\n", "Gradient Descent Notes"},
		{"page candidate gets subtitle too", "", "Lecture 4: Convex Optimization\n", "Convex Optimization"},
		{"nothing usable", "", "1\n2\n3\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveTitle(tt.meta, tt.firstPage))
		})
	}
}

func TestFirstPageTitle(t *testing.T) {
	page := "\n  \nAttention Is All You Need\nAshish Vaswani et al.\nAbstract\n"
	assert.Equal(t, "Attention Is All You Need", firstPageTitle(page))

	assert.Empty(t, firstPageTitle(""))
	assert.Empty(t, firstPageTitle("1\n2\n3\n"))
}
