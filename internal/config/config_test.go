package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udis/internal/mpy"
	"udis/internal/qstr"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "promote", c.Decoder.WindowPolicy)
	assert.Equal(t, FormatJSON, c.Output.Format)

	opts, err := c.DecodeOptions()
	require.NoError(t, err)
	assert.Equal(t, qstr.PolicyPromote, opts.WindowPolicy)
	assert.Equal(t, mpy.DefaultMaxDepth, opts.MaxDepth)
}

func TestParseOverridesDefaults(t *testing.T) {
	src := `
[decoder]
window_policy = "remove"
max_depth = 8
max_window = 64

[output]
format = "cbor"
instructions = true
`
	c, err := Parse([]byte(src), "test.toml")
	require.NoError(t, err)
	assert.Equal(t, "remove", c.Decoder.WindowPolicy)
	assert.Equal(t, 8, c.Decoder.MaxDepth)
	assert.Equal(t, mpy.DefaultMaxCodeSize, c.Decoder.MaxCodeSize, "omitted key keeps default")
	assert.Equal(t, FormatCBOR, c.Output.Format)
	assert.True(t, c.Output.Instructions)

	opts, err := c.DecodeOptions()
	require.NoError(t, err)
	assert.Equal(t, qstr.PolicyRemove, opts.WindowPolicy)
	assert.Equal(t, 8, opts.MaxDepth)
	assert.Equal(t, 64, opts.MaxWindow)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "[decoder\n", "parse error"},
		{"policy", "[decoder]\nwindow_policy = \"lru\"\n", "window policy"},
		{"format", "[output]\nformat = \"xml\"\n", "output format"},
		{"negative", "[decoder]\nmax_depth = -1\n", "negative"},
		{"negative window", "[decoder]\nmax_window = -1\n", "negative"},
		{"unknown key", "[decoder]\nwindow = 3\n", "unknown key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.toml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "udis.toml")
	require.NoError(t, os.WriteFile(path, []byte("[output]\ninstructions = true\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Output.Instructions)
	assert.Equal(t, FormatJSON, c.Output.Format)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
