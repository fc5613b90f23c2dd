package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStructuredAction_ValidJSON(t *testing.T) {
	raw := `{"action": "chat", "message": "The derivative of x^2 is 2x."}`

	action, ok := ExtractStructuredAction(raw)
	require.True(t, ok)
	assert.Equal(t, ActionChat, action.Action)
	assert.Equal(t, "The derivative of x^2 is 2x.", action.Message)
}

func TestExtractStructuredAction_LatexEscapes(t *testing.T) {
	// \alpha is an illegal JSON escape so the direct parse fails; the
	// repair pass must then double it along with \frac, \nabla and \beta
	// instead of decoding those as form-feed, newline and backspace.
	raw := `{"action": "chat", "message": "With rate $\alpha$ the slope is $\frac{1}{2}$ and the field is $\nabla \beta$."}`

	action, ok := ExtractStructuredAction(raw)
	require.True(t, ok)
	assert.Equal(t, `With rate $\alpha$ the slope is $\frac{1}{2}$ and the field is $\nabla \beta$.`, action.Message)
}

func TestExtractStructuredAction_CodeFence(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"action\": \"chat\", \"message\": \"Use $\\eta$ for the learning rate, $\\alpha$ for momentum.\"}\n```\nDone."

	action, ok := ExtractStructuredAction(raw)
	require.True(t, ok)
	assert.Equal(t, ActionChat, action.Action)
	assert.Equal(t, `Use $\eta$ for the learning rate, $\alpha$ for momentum.`, action.Message)
}

func TestExtractStructuredAction_SurroundingProse(t *testing.T) {
	raw := `Sure! Here's my answer: {"action": "create", "filename": "bayes.md", "message": "Created a note on Bayes.", "content": "# Bayes\n\nFor prior $\pi$: $P(A|B) = \frac{P(B|A)P(A)}{P(B)}$"} Hope that helps!`

	action, ok := ExtractStructuredAction(raw)
	require.True(t, ok)
	assert.Equal(t, ActionCreate, action.Action)
	assert.Equal(t, "bayes.md", action.Filename)
	assert.Contains(t, action.Content, `\frac{P(B|A)P(A)}{P(B)}`)
}

func TestExtractStructuredAction_FieldFallback(t *testing.T) {
	// Trailing comma keeps every structural tier from parsing; the field
	// walker must still recover action and message.
	raw := `{"action": "edit", "message": "Added the proof for $\pi$.", "content": "## Proof\n\nLet $\epsilon > 0$.",}`

	action, ok := ExtractStructuredAction(raw)
	require.True(t, ok)
	assert.Equal(t, ActionEdit, action.Action)
	assert.Equal(t, `Added the proof for $\pi$.`, action.Message)
	assert.Contains(t, action.Content, `$\epsilon > 0$`)
}

func TestExtractStructuredAction_AllTiersFail(t *testing.T) {
	action, ok := ExtractStructuredAction("just a plain sentence, no JSON at all")
	assert.False(t, ok)
	assert.Nil(t, action)
}

func TestFixJSONEscapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"legal escapes untouched", `"a\nB\"c\\d\u00e9"`, `"a\nB\"c\\d\u00e9"`},
		{"latex frac doubled", `"\frac{1}{2}"`, `"\\frac{1}{2}"`},
		{"latex beta doubled", `"\beta"`, `"\\beta"`},
		{"latex nabla doubled", `"\nabla"`, `"\\nabla"`},
		{"latex text doubled", `"\text{ok}"`, `"\\text{ok}"`},
		{"newline before uppercase kept", `"line\nNext"`, `"line\nNext"`},
		{"tab before space kept", `"a\t b"`, `"a\t b"`},
		{"lone invalid escape doubled", `"\pi"`, `"\\pi"`},
		{"trailing backslash doubled", `"abc\`, `"abc\\`},
		{"already doubled stays", `"\\frac{1}{2}"`, `"\\frac{1}{2}"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fixJSONEscapes(tt.in))
		})
	}
}

func TestWalkJSONString(t *testing.T) {
	// Input is the raw text between quotes as the model wrote it. \n here
	// precedes a lowercase letter so it decodes as LaTeX, \b keeps its
	// backslash, and the walk stops at the closing quote.
	input := `\frac{1}{2} \beta" tail`
	value, end := walkJSONString(input, 0)
	assert.Equal(t, `\frac{1}{2} \beta`, value)
	assert.Equal(t, len(input)-len(" tail"), end)

	value, end = walkJSONString(`first line\nSecond" rest`, 0)
	assert.Equal(t, "first line\nSecond", value)
	assert.Equal(t, '"', rune(`first line\nSecond" rest`[end-1]))
}
