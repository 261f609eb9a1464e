package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeFormat(t *testing.T) {
	tests := []struct {
		op   byte
		want Format
	}{
		{0x00, FormatByte},
		{LoadConstString, FormatQstr},
		{StoreAttr, FormatQstr},
		{MakeClosure, FormatVarUint},
		{CallFunction, FormatVarUint},
		{Jump, FormatOffset},
		{ForIter, FormatOffset},
		{LoadConstNone, FormatByte},
		{ReturnValue, FormatByte},
		{0x80, FormatByte},
		{0xff, FormatByte},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OpcodeFormat(tt.op), "OpcodeFormat(0x%02x)", tt.op)
	}
}

func TestHasExtraByte(t *testing.T) {
	for op := 0; op < 256; op++ {
		want := op == 0x00 || op == 0x01 || op == 0x20 || op == 0x21 ||
			op == 0x40 || op == 0x41 || op == 0x60 || op == 0x61
		assert.Equal(t, want, HasExtraByte(byte(op)), "HasExtraByte(0x%02x)", op)
	}
}

func TestOpcodeSize(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		count bool
		opts  ScanOptions
		f     Format
		size  int
	}{
		{"byte", []byte{LoadConstNone}, true, ScanOptions{}, FormatByte, 1},
		{"qstr", []byte{LoadAttr, 7, 0}, true, ScanOptions{}, FormatQstr, 3},
		{"qstr cached", []byte{LoadAttr, 7, 0, 0}, true, ScanOptions{CacheMapLookup: true}, FormatQstr, 4},
		{"qstr uncached op", []byte{LoadMethod, 7, 0}, true, ScanOptions{CacheMapLookup: true}, FormatQstr, 3},
		{"var uint short", []byte{CallFunction, 0x01}, true, ScanOptions{}, FormatVarUint, 2},
		{"var uint long", []byte{BuildList, 0x81, 0x80, 0x00}, true, ScanOptions{}, FormatVarUint, 4},
		{"var uint uncounted", []byte{BuildList, 0x81, 0x80, 0x00}, false, ScanOptions{}, FormatVarUint, 1},
		{"var uint extra", []byte{MakeClosure, 0x00, 0x02}, true, ScanOptions{}, FormatVarUint, 3},
		{"var uint extra uncounted", []byte{MakeClosure, 0x00, 0x02}, false, ScanOptions{}, FormatVarUint, 2},
		{"offset", []byte{Jump, 0x00, 0x80}, true, ScanOptions{}, FormatOffset, 3},
		{"offset extra", []byte{UnwindJump, 0x00, 0x80, 0x01}, true, ScanOptions{}, FormatOffset, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, size, err := OpcodeSize(tt.code, 0, tt.count, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.f, f)
			assert.Equal(t, tt.size, size)
		})
	}
}

func TestOpcodeSizeTruncated(t *testing.T) {
	_, _, err := OpcodeSize([]byte{LoadAttr, 7}, 0, true, ScanOptions{})
	assert.ErrorIs(t, err, ErrTruncatedInstruction)

	_, _, err = OpcodeSize([]byte{BuildList, 0x81}, 0, true, ScanOptions{})
	assert.ErrorIs(t, err, ErrTruncatedInstruction)

	_, _, err = OpcodeSize(nil, 0, true, ScanOptions{})
	assert.ErrorIs(t, err, ErrTruncatedInstruction)
}

func TestDecodeSignature(t *testing.T) {
	sig, err := DecodeSignature(bytes.NewReader([]byte{0x00}))
	require.NoError(t, err)
	assert.Equal(t, Signature{NState: 1}, sig)

	// xSSSSEAA = 1 0010 1 01, then xFSSKAED = 0 1 00 1 0 0 1.
	sig, err = DecodeSignature(bytes.NewReader([]byte{0x95, 0x49}))
	require.NoError(t, err)
	assert.Equal(t, Signature{
		NState:      3,
		NExcStack:   1,
		ScopeFlags:  1,
		NPosArgs:    1,
		NKwOnlyArgs: 1,
		NDefPosArgs: 1,
	}, sig)

	_, err = DecodeSignature(bytes.NewReader([]byte{0x80}))
	assert.Error(t, err)
}

func TestDecodeSize(t *testing.T) {
	info, cell, err := DecodeSize(bytes.NewReader([]byte{0x08}))
	require.NoError(t, err)
	assert.Equal(t, 4, info)
	assert.Equal(t, 0, cell)

	// 0x8b: info 5, cell 1, continue; 0x02: info += 1<<6.
	info, cell, err = DecodeSize(bytes.NewReader([]byte{0x8b, 0x02}))
	require.NoError(t, err)
	assert.Equal(t, 69, info)
	assert.Equal(t, 1, cell)
}

func TestParsePrelude(t *testing.T) {
	code := []byte{
		0x00,       // signature
		0x0b,       // size: info 5, cell 1
		0x07, 0x00, // simple_name = <module>
		0x42, 0x01, // source_file
		0x61, // line info
		0x00, // cell 0
		LoadConstNone, ReturnValue,
	}
	p, err := ParsePrelude(code)
	require.NoError(t, err)
	assert.Equal(t, 2, p.HeaderLen)
	assert.Equal(t, 5, p.NInfo)
	assert.Equal(t, 1, p.NCell)
	assert.Equal(t, 8, p.CodeOffset())
	assert.Equal(t, []byte{0x61}, p.LineInfo(code))
	assert.Equal(t, []byte{0x00}, p.Cells(code))

	name, err := UnpackQstr(code, p.SimpleNameOffset())
	require.NoError(t, err)
	assert.Equal(t, 7, name)
	src, err := UnpackQstr(code, p.SourceFileOffset())
	require.NoError(t, err)
	assert.Equal(t, 0x142, src)
}

func TestParsePreludeInvalid(t *testing.T) {
	_, err := ParsePrelude([]byte{0x00, 0x04}) // info 2 < 4
	assert.ErrorIs(t, err, ErrInvalidPrelude)

	_, err = ParsePrelude([]byte{0x00, 0x10, 0x01}) // info 8, buffer too short
	assert.ErrorIs(t, err, ErrInvalidPrelude)
}

func TestPackQstr(t *testing.T) {
	assert.Equal(t, []byte{0x34, 0x12}, PackQstr(nil, 0x1234))
}

func TestScan(t *testing.T) {
	code := []byte{
		LoadGlobal, 0x07, 0x00,
		LoadConstSmallInt, 0x7f,
		CallFunction, 0x01,
		MakeClosure, 0x00, 0x02,
		Jump, 0xfb, 0x7f, // -5 -> back to offset 8
		ReturnValue,
	}
	insts, err := Scan(code, 0, ScanOptions{})
	require.NoError(t, err)
	require.Len(t, insts, 6)

	assert.Equal(t, "LOAD_GLOBAL", insts[0].Name)
	assert.Equal(t, int64(7), insts[0].Arg)

	assert.Equal(t, "LOAD_CONST_SMALL_INT", insts[1].Name)
	assert.Equal(t, int64(-1), insts[1].Arg)

	assert.Equal(t, int64(1), insts[2].Arg)

	assert.Equal(t, 7, insts[3].Offset)
	assert.Equal(t, 3, insts[3].Size)
	assert.Equal(t, 2, insts[3].Extra)

	assert.True(t, insts[4].IsJump())
	assert.Equal(t, int64(-5), insts[4].Arg)
	assert.Equal(t, 8, insts[4].Target)

	assert.Equal(t, "RETURN_VALUE", insts[5].Name)
}

func TestScanTruncated(t *testing.T) {
	_, err := Scan([]byte{LoadConstNone, Jump, 0x00}, 0, ScanOptions{})
	assert.ErrorIs(t, err, ErrTruncatedInstruction)
}

func TestScanMaxSteps(t *testing.T) {
	code := bytes.Repeat([]byte{PopTop}, 10)
	insts, err := Scan(code, 0, ScanOptions{MaxSteps: 4})
	assert.Error(t, err)
	assert.Len(t, insts, 4)
}

func TestOpName(t *testing.T) {
	assert.Equal(t, "POP_JUMP_IF_FALSE", OpName(PopJumpIfFalse))
	assert.Equal(t, "LOAD_CONST_SMALL_INT_MULTI 0", OpName(0x80))
	assert.Equal(t, "LOAD_FAST_MULTI 2", OpName(0xb2))
	assert.Equal(t, "BINARY_OP_MULTI 0", OpName(BinaryOpMulti))
	assert.Equal(t, "0x4c", OpName(0x4c))
}

func TestBuildCFG(t *testing.T) {
	// B0: LOAD_CONST_NONE; POP_JUMP_IF_FALSE -> B2
	// B1: LOAD_CONST_NONE; RETURN_VALUE
	// B2: LOAD_CONST_TRUE; RETURN_VALUE
	code := []byte{
		LoadConstNone,
		PopJumpIfFalse, 0x02, 0x80,
		LoadConstNone,
		ReturnValue,
		LoadConstTrue,
		ReturnValue,
	}
	insts, err := Scan(code, 0, ScanOptions{})
	require.NoError(t, err)
	require.Equal(t, 6, insts[1].Target)

	cfg := BuildCFG("f", insts)
	require.Len(t, cfg.Blocks, 3)

	b0 := cfg.Blocks[0]
	assert.True(t, b0.IsEntry)
	assert.Equal(t, []Succ{{BlockID: 2, Cond: "T"}, {BlockID: 1, Cond: "F"}}, b0.Succs)

	assert.True(t, cfg.Blocks[1].IsTerm)
	assert.Empty(t, cfg.Blocks[1].Succs)
	assert.True(t, cfg.Blocks[2].IsTerm)
}

func TestBuildCFGHandler(t *testing.T) {
	code := []byte{
		SetupExcept, 0x02, 0x00, // handler at 5
		PopTop,
		ReturnValue,
		RaiseLast,
	}
	insts, err := Scan(code, 0, ScanOptions{})
	require.NoError(t, err)
	cfg := BuildCFG("g", insts)
	require.Len(t, cfg.Blocks, 3)
	assert.Equal(t, []Succ{{BlockID: 1}, {BlockID: 2, Cond: "E"}}, cfg.Blocks[0].Succs)
}

func TestBuildCFGEmpty(t *testing.T) {
	cfg := BuildCFG("empty", nil)
	assert.Empty(t, cfg.Blocks)
}
