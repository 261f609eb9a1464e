package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udis/internal/bytecode"
	"udis/internal/mpyfmt"
	"udis/internal/output"
	"udis/internal/qstr"
)

// writeSample writes a module holding one function:
//
//	def f(): return None
func writeSample(t *testing.T) string {
	t.Helper()
	uv := mpyfmt.EncodeUint
	var data []byte
	for _, p := range [][]byte{
		{'M', 5, 0, 31},
		uv(8),
		uv(13 << 2),
		{0x00, 0x08},
		{0x00, byte(qstr.Static.ID("<module>"))},
		uv(4 << 1), []byte("m.py"),
		{bytecode.MakeFunction, 0x00},
		{bytecode.StoreName}, uv(1 << 1), []byte("f"),
		{bytecode.LoadConstNone, bytecode.ReturnValue},
		uv(0), uv(1),
		// child
		uv(8 << 2),
		{0x00, 0x08},
		uv(0<<1 | 1), // "f"
		uv(1<<1 | 1), // "m.py"
		{bytecode.LoadConstNone, bytecode.ReturnValue},
		uv(0), uv(0),
	} {
		data = append(data, p...)
	}
	path := filepath.Join(t.TempDir(), "m.mpy")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestCmdDump(t *testing.T) {
	in := writeSample(t)
	out := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, cmdDump([]string{"--in", in, "--out", out, "--instructions"}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var v output.FileView
	require.NoError(t, json.Unmarshal(data, &v))
	require.NotNil(t, v.Root)
	assert.Equal(t, "<module>", v.Root.Name)
	require.Len(t, v.Root.Children, 1)
	assert.Equal(t, "<module>.f", v.Root.Children[0].Name)
	require.NotEmpty(t, v.Root.Insts)
	assert.Equal(t, "MAKE_FUNCTION 0 (f)", v.Root.Insts[0].Text)
}

func TestCmdDumpConfig(t *testing.T) {
	in := writeSample(t)
	dir := t.TempDir()
	conf := filepath.Join(dir, "udis.toml")
	require.NoError(t, os.WriteFile(conf, []byte("[output]\nformat = \"cbor\"\n"), 0644))

	out := filepath.Join(dir, "dump.cbor")
	require.NoError(t, cmdDump([]string{"--in", in, "--out", out, "--config", conf}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.NotEqual(t, byte('{'), data[0])
}

func TestCmdDumpErrors(t *testing.T) {
	assert.ErrorContains(t, cmdDump(nil), "--in is required")
	in := writeSample(t)
	assert.ErrorContains(t, cmdDump([]string{"--in", in, "--window-policy", "lru"}), "window policy")
	assert.Error(t, cmdDump([]string{"--in", filepath.Join(t.TempDir(), "missing.mpy")}))
}

func TestCmdGraph(t *testing.T) {
	in := writeSample(t)
	out := t.TempDir()
	require.NoError(t, cmdGraph([]string{"--in", in, "--out", out}))

	for _, name := range []string{"nesting.dot", "cfg.dot", "cfg/_module_.dot", "cfg/_module_.f.dot"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestCmdHeader(t *testing.T) {
	assert.ErrorContains(t, cmdHeader(nil), "--in is required")

	bad := filepath.Join(t.TempDir(), "bad.mpy")
	require.NoError(t, os.WriteFile(bad, []byte("X\x05\x00\x1f"), 0644))
	assert.Error(t, cmdHeader([]string{"--in", bad}))
}

func TestCmdHeaderVerbose(t *testing.T) {
	in := writeSample(t)
	require.NoError(t, cmdHeader([]string{"--in", in, "--verbose"}))
}
