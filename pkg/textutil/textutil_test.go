package textutil

import (
	"testing"
)

func TestStripThinkTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no tags",
			in:   "plain answer",
			want: "plain answer",
		},
		{
			name: "single block",
			in:   "<think>reasoning here</think>the answer",
			want: "the answer",
		},
		{
			name: "multiline block",
			in:   "<think>line one\nline two</think>\n\nfinal text",
			want: "final text",
		},
		{
			name: "multiple blocks",
			in:   "<think>a</think>first<think>b</think> second",
			want: "first second",
		},
		{
			name: "only tags",
			in:   "<think>everything was reasoning</think>",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripThinkTags(tt.in); got != tt.want {
				t.Errorf("StripThinkTags(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		filename string
		want     string
	}{
		{"heading", "# My Note\n\nbody", "x.md", "My Note"},
		{"heading later", "preamble\n# Real Title\n", "x.md", "Real Title"},
		{"no heading uses stem", "just text", "meeting-notes.md", "meeting-notes"},
		{"no heading no filename", "just text", "", "Untitled"},
		{"hash without space is not heading", "#tag\ncontent", "f.md", "f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.content, tt.filename); got != tt.want {
				t.Errorf("ExtractTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Attention Is All You Need", "attention-is-all-you-need"},
		{"  LoRA: Low-Rank Adaptation  ", "lora-low-rank-adaptation"},
		{"///", "untitled"},
		{"", "untitled"},
		{"café notes", "caf-notes"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPickSubtitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LoRA: Low-Rank Adaptation", "Low-Rank Adaptation"},
		{"Paper - A Study", "A Study"},
		{"No Separator Here", "No Separator Here"},
		{"Trailing colon:", "Trailing colon:"},
	}

	for _, tt := range tests {
		if got := PickSubtitle(tt.in); got != tt.want {
			t.Errorf("PickSubtitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 4); got != "abcd..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 4); got != "abc" {
		t.Errorf("Truncate short = %q", got)
	}
}
