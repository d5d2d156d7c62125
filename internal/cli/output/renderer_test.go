package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	tests := map[string]OutputMode{
		"":         ModeAuto,
		"auto":     ModeAuto,
		"TEXT":     ModeText,
		"markdown": ModeMarkdown,
		"md":       ModeMarkdown,
		"json":     ModeJSON,
		"html":     ModeAuto,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Mode(in))
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{name: "auto tty", mode: ModeAuto, isTTY: true, want: ModeText},
		{name: "auto pipe", mode: ModeAuto, isTTY: false, want: ModeMarkdown},
		{name: "explicit text on pipe", mode: ModeText, isTTY: false, want: ModeText},
		{name: "json", mode: ModeJSON, isTTY: true, want: ModeJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_Markdown(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	r := NewRendererWithTTY(out, errOut, false, ModeMarkdown)

	r.Header(2, "Models")
	r.StatusLine("orders", "partial", "relation not found in catalog")
	r.Success("done")
	r.Warning("two models share a path")
	r.Error("boom")

	assert.Equal(t, "## Models\n\n- `orders` partial: relation not found in catalog\n**done**\n", out.String())
	assert.Equal(t, "> Warning: two models share a path\n> Error: boom\n", errOut.String())
}

func TestRenderer_TextWithoutColorOnPipe(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeText)

	r.StatusLine("orders", "failed", "")
	r.Success("done")

	assert.NotContains(t, out.String(), "\x1b[")
	assert.Contains(t, out.String(), "✗ orders")
	assert.Contains(t, out.String(), "✓ done")
}

func TestRenderer_JSON(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"processed": 2}))
	assert.Equal(t, "{\n  \"processed\": 2\n}\n", out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Title", FormatHeader(3, "Title"))
	assert.Equal(t, "- **Adapter:** duckdb", FormatKeyValue("Adapter", "duckdb"))
}
