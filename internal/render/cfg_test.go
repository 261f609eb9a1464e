package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udis/internal/bytecode"
)

func branchCFG() bytecode.FuncCFG {
	insts := []bytecode.Inst{
		{Offset: 0x00, Op: bytecode.LoadName, Name: "LOAD_NAME", Format: bytecode.FormatQstr, Size: 3, Arg: 42},
		{Offset: 0x03, Op: bytecode.PopJumpIfFalse, Name: "POP_JUMP_IF_FALSE", Format: bytecode.FormatOffset, Size: 3, Target: 0x08},
		{Offset: 0x06, Op: bytecode.LoadConstTrue, Name: "LOAD_CONST_TRUE", Size: 1},
		{Offset: 0x07, Op: bytecode.ReturnValue, Name: "RETURN_VALUE", Size: 1},
		{Offset: 0x08, Op: bytecode.LoadConstFalse, Name: "LOAD_CONST_FALSE", Size: 1},
		{Offset: 0x09, Op: bytecode.ReturnValue, Name: "RETURN_VALUE", Size: 1},
	}
	return bytecode.BuildCFG("<module>.check", insts)
}

func TestCFGDOT(t *testing.T) {
	dot := CFGDOT(branchCFG(), nil, Paper)
	require.NotEmpty(t, dot)

	assert.True(t, strings.HasPrefix(dot, "digraph cfg {\n"))
	assert.Contains(t, dot, "&lt;module&gt;.check")
	assert.Contains(t, dot, "0000: LOAD_NAME 42")
	assert.Contains(t, dot, "0003: POP_JUMP_IF_FALSE 0x8")
	assert.Contains(t, dot, "bb0 -> bb2")
	assert.Contains(t, dot, ">T</font>")
	assert.Contains(t, dot, "bb0 -> bb1")
	assert.Contains(t, dot, ">F</font>")
	assert.Contains(t, dot, Paper.TermFill)
}

func TestCFGDOTCustomLabel(t *testing.T) {
	dot := CFGDOT(branchCFG(), func(in bytecode.Inst) string {
		if in.Op == bytecode.LoadName {
			return "LOAD_NAME x"
		}
		return in.Name
	}, Paper)
	assert.Contains(t, dot, "0000: LOAD_NAME x")
}

func TestCFGDOTEmpty(t *testing.T) {
	assert.Equal(t, "", CFGDOT(bytecode.BuildCFG("empty", nil), nil, Paper))
}

func TestCFGDOTTruncatesLongBlocks(t *testing.T) {
	var insts []bytecode.Inst
	for i := 0; i < 20; i++ {
		insts = append(insts, bytecode.Inst{Offset: i, Op: bytecode.LoadConstNone, Name: "LOAD_CONST_NONE", Size: 1})
	}
	insts = append(insts, bytecode.Inst{Offset: 20, Op: bytecode.ReturnValue, Name: "RETURN_VALUE", Size: 1})

	dot := CFGDOT(bytecode.BuildCFG("long", insts), nil, Paper)
	assert.Contains(t, dot, "... (11 more)")
	assert.Contains(t, dot, "0014: RETURN_VALUE")
	assert.NotContains(t, dot, "0007: LOAD_CONST_NONE")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "_module_.f", FileName("<module>.f"))
	assert.Equal(t, "a_0020b", FileName("a b"))
}

func TestTruncLabel(t *testing.T) {
	assert.Equal(t, "abc", truncLabel("abc", 5))
	assert.Equal(t, "ab...", truncLabel("abcdefgh", 5))
}
