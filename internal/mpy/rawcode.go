package mpy

import (
	"fmt"

	"udis/internal/bytecode"
)

// CodeKind distinguishes plain bytecode from native code variants.
type CodeKind int

const (
	CodeBytecode    CodeKind = 2
	CodeNativePy    CodeKind = 3
	CodeNativeViper CodeKind = 4
	CodeNativeAsm   CodeKind = 5
)

func (k CodeKind) String() string {
	switch k {
	case CodeBytecode:
		return "bytecode"
	case CodeNativePy:
		return "native_py"
	case CodeNativeViper:
		return "native_viper"
	case CodeNativeAsm:
		return "native_asm"
	default:
		return fmt.Sprintf("CodeKind(%d)", int(k))
	}
}

// RawCode is one decoded code object. A RawCode owns its children; the
// tree has no back references.
type RawCode struct {
	Kind    CodeKind
	Offset  int    // stream offset of the record
	Code    []byte // instruction buffer: prelude + opcodes, qstrs packed as uint16 LE
	Prelude bytecode.Prelude

	SimpleName int // qstr id, re-read from Code
	SourceFile int // qstr id, re-read from Code

	// QstrRefs lists every qstr id packed into Code, in stream order.
	QstrRefs []int
	// ArgNames lists the parameter-name qstr ids (positional then keyword-only).
	ArgNames []int
	Consts   []Const
	Children []*RawCode

	scan bytecode.ScanOptions
}

// Instructions decodes the opcodes following the prelude.
func (rc *RawCode) Instructions() ([]bytecode.Inst, error) {
	return bytecode.Scan(rc.Code, rc.Prelude.CodeOffset(), rc.scan)
}

// Opcodes returns the bytes after the prelude.
func (rc *RawCode) Opcodes() []byte {
	return rc.Code[rc.Prelude.CodeOffset():]
}

// ConstRef is an entry of the runtime constant table that LOAD_CONST_OBJ,
// MAKE_FUNCTION and MAKE_CLOSURE index into: argument names, then
// constants, then child code objects.
type ConstRef struct {
	ArgName int // qstr id when the index falls in the argument names
	Const   *Const
	Child   *RawCode
}

// ConstTableLen returns the size of the runtime constant table.
func (rc *RawCode) ConstTableLen() int {
	return len(rc.ArgNames) + len(rc.Consts) + len(rc.Children)
}

// ConstTable resolves a constant-table index.
func (rc *RawCode) ConstTable(i int) (ConstRef, bool) {
	if i < 0 {
		return ConstRef{}, false
	}
	if i < len(rc.ArgNames) {
		return ConstRef{ArgName: rc.ArgNames[i]}, true
	}
	i -= len(rc.ArgNames)
	if i < len(rc.Consts) {
		return ConstRef{Const: &rc.Consts[i]}, true
	}
	i -= len(rc.Consts)
	if i < len(rc.Children) {
		return ConstRef{Child: rc.Children[i]}, true
	}
	return ConstRef{}, false
}

// Walk visits rc and its descendants depth-first, parents before children.
// Returning a non-nil error stops the walk.
func (rc *RawCode) Walk(fn func(rc *RawCode, depth int) error) error {
	return rc.walk(fn, 0)
}

func (rc *RawCode) walk(fn func(*RawCode, int) error, depth int) error {
	if err := fn(rc, depth); err != nil {
		return err
	}
	for _, c := range rc.Children {
		if err := c.walk(fn, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of code objects in the tree rooted at rc.
func (rc *RawCode) Count() int {
	n := 0
	_ = rc.Walk(func(*RawCode, int) error { n++; return nil })
	return n
}
