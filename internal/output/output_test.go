package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udis/internal/bytecode"
	"udis/internal/mpy"
	"udis/internal/mpyfmt"
	"udis/internal/qstr"
)

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func uv(v uint64) []byte { return mpyfmt.EncodeUint(v) }

func qNew(s string) []byte { return cat(uv(uint64(len(s))<<1), []byte(s)) }

func qWin(i int) []byte { return uv(uint64(i)<<1 | 1) }

// sampleFile decodes:
//
//	x = "hi"
//	def f(n): return n
func sampleFile(t *testing.T) *mpy.File {
	t.Helper()
	child := cat(
		uv(8<<2),
		[]byte{0x01, 0x08},
		qWin(0), // "f"
		qWin(2), // "m.py"
		[]byte{bytecode.LoadFastMulti, bytecode.ReturnValue},
		uv(0), uv(0),
		qNew("n"),
	)
	data := cat(
		[]byte{'M', 5, 0, 31},
		uv(8),
		uv(18<<2),
		[]byte{0x00, 0x08},
		[]byte{0x00, byte(qstr.Static.ID("<module>"))},
		qNew("m.py"),
		[]byte{bytecode.LoadConstObj, 0x00},
		[]byte{bytecode.StoreName}, qNew("x"),
		[]byte{bytecode.MakeFunction, 0x01},
		[]byte{bytecode.StoreName}, qNew("f"),
		[]byte{bytecode.LoadConstNone, bytecode.ReturnValue},
		uv(1), uv(1),
		[]byte{'s'}, uv(2), []byte("hi"),
		child,
	)
	f, err := mpy.Decode(data, mpy.Options{})
	require.NoError(t, err)
	return f
}

func TestNewView(t *testing.T) {
	v, err := NewView(sampleFile(t), true)
	require.NoError(t, err)

	assert.Equal(t, "none", v.Arch)
	assert.Equal(t, 8, v.WindowSize)
	require.NotNil(t, v.Root)

	root := v.Root
	assert.Equal(t, "<module>", root.Name)
	assert.Equal(t, "m.py", root.SourceFile)
	assert.Equal(t, "bytecode", root.Kind)
	assert.Equal(t, []string{"<module>", "m.py", "x", "f"}, root.Qstrs)
	assert.Equal(t, []ConstView{{Kind: "str", Value: `"hi"`}}, root.Consts)
	assert.Len(t, root.Code, 18)

	var texts []string
	for _, in := range root.Insts {
		texts = append(texts, in.Text)
	}
	assert.Equal(t, []string{
		`LOAD_CONST_OBJ 0 ("hi")`,
		"STORE_NAME x",
		"MAKE_FUNCTION 1 (f)",
		"STORE_NAME f",
		"LOAD_CONST_NONE",
		"RETURN_VALUE",
	}, texts)
	assert.Equal(t, 6, root.Insts[0].Offset)

	require.Len(t, root.Children, 1)
	child := root.Children[0]
	assert.Equal(t, "<module>.f", child.Name)
	assert.Equal(t, []string{"n"}, child.ArgNames)
	assert.Equal(t, 1, child.Prelude.NPosArgs)
	assert.Equal(t, 4, child.Prelude.NInfo)
}

func TestNewViewWithoutInstructions(t *testing.T) {
	v, err := NewView(sampleFile(t), false)
	require.NoError(t, err)
	assert.Empty(t, v.Root.Insts)
}

func TestInstTextJump(t *testing.T) {
	f := sampleFile(t)
	in := bytecode.Inst{Name: "JUMP", Op: bytecode.Jump, Format: bytecode.FormatOffset, Target: 0x1c}
	assert.Equal(t, "JUMP 0x1c", InstText(f, f.Root, in))

	in = bytecode.Inst{Name: "LOAD_CONST_OBJ", Op: bytecode.LoadConstObj, Format: bytecode.FormatVarUint, Arg: 9}
	assert.Equal(t, "LOAD_CONST_OBJ 9", InstText(f, f.Root, in))
}

func TestJSONRoundTrip(t *testing.T) {
	v, err := NewView(sampleFile(t), true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, v))

	var got FileView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, v, &got)
}

func TestCBORRoundTrip(t *testing.T) {
	v, err := NewView(sampleFile(t), true)
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, WriteCBOR(&a, v))
	require.NoError(t, WriteCBOR(&b, v))
	assert.Equal(t, a.Bytes(), b.Bytes(), "canonical encoding is deterministic")

	var got FileView
	require.NoError(t, cbor.Unmarshal(a.Bytes(), &got))
	assert.Equal(t, v, &got)
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "xml", struct{}{})
	assert.ErrorContains(t, err, "unknown format")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")
	require.NoError(t, WriteFile(path, FormatJSON, map[string]int{"a": 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(data))

	dot := filepath.Join(dir, "cfg", "x.dot")
	require.NoError(t, WriteText(dot, "digraph {}\n"))
	data, err = os.ReadFile(dot)
	require.NoError(t, err)
	assert.Equal(t, "digraph {}\n", string(data))
}
