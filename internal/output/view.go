package output

import (
	"fmt"

	"udis/internal/bytecode"
	"udis/internal/graph"
	"udis/internal/mpy"
	"udis/internal/mpyfmt"
)

// FileView is the serialisable form of a decoded file.
type FileView struct {
	Header     mpy.Header    `json:"header" cbor:"header"`
	Arch       string        `json:"arch" cbor:"arch"`
	WindowSize int           `json:"window_size" cbor:"window_size"`
	Root       *CodeView     `json:"root" cbor:"root"`
	Diags      []mpyfmt.Diag `json:"diags,omitempty" cbor:"diags,omitempty"`
}

// CodeView is one code object with its qstr ids resolved to text.
type CodeView struct {
	Name       string      `json:"name" cbor:"name"` // qualified name
	SimpleName string      `json:"simple_name" cbor:"simple_name"`
	SourceFile string      `json:"source_file" cbor:"source_file"`
	Kind       string      `json:"kind" cbor:"kind"`
	Offset     int         `json:"offset" cbor:"offset"`
	Prelude    PreludeView `json:"prelude" cbor:"prelude"`
	ArgNames   []string    `json:"arg_names,omitempty" cbor:"arg_names,omitempty"`
	Qstrs      []string    `json:"qstrs,omitempty" cbor:"qstrs,omitempty"`
	Consts     []ConstView `json:"consts,omitempty" cbor:"consts,omitempty"`
	Code       []byte      `json:"code" cbor:"code"`
	Insts      []InstView  `json:"insts,omitempty" cbor:"insts,omitempty"`
	Children   []*CodeView `json:"children,omitempty" cbor:"children,omitempty"`
}

// PreludeView mirrors bytecode.Prelude.
type PreludeView struct {
	NState      int `json:"n_state" cbor:"n_state"`
	NExcStack   int `json:"n_exc_stack" cbor:"n_exc_stack"`
	ScopeFlags  int `json:"scope_flags" cbor:"scope_flags"`
	NPosArgs    int `json:"n_pos_args" cbor:"n_pos_args"`
	NKwOnlyArgs int `json:"n_kwonly_args" cbor:"n_kwonly_args"`
	NDefPosArgs int `json:"n_def_pos_args" cbor:"n_def_pos_args"`
	NInfo       int `json:"n_info" cbor:"n_info"`
	NCell       int `json:"n_cell" cbor:"n_cell"`
}

// ConstView is a constant rendered as text.
type ConstView struct {
	Kind  string `json:"kind" cbor:"kind"`
	Value string `json:"value" cbor:"value"`
}

// InstView is one instruction of a listing.
type InstView struct {
	Offset int    `json:"offset" cbor:"offset"`
	Op     byte   `json:"op" cbor:"op"`
	Text   string `json:"text" cbor:"text"`
}

// NewView builds the serialisable view of f. With insts set each code
// object carries its instruction listing.
func NewView(f *mpy.File, insts bool) (*FileView, error) {
	v := &FileView{
		Header:     f.Header,
		Arch:       f.Header.Arch().String(),
		WindowSize: f.WindowSize,
		Diags:      f.Diags,
	}
	if f.Root == nil {
		return v, nil
	}
	names := graph.Names(f)
	root, err := newCodeView(f, f.Root, names, insts)
	if err != nil {
		return nil, err
	}
	v.Root = root
	return v, nil
}

func newCodeView(f *mpy.File, rc *mpy.RawCode, names map[*mpy.RawCode]string, insts bool) (*CodeView, error) {
	p := rc.Prelude
	cv := &CodeView{
		Name:       names[rc],
		SimpleName: f.QstrName(rc.SimpleName),
		SourceFile: f.QstrName(rc.SourceFile),
		Kind:       rc.Kind.String(),
		Offset:     rc.Offset,
		Prelude: PreludeView{
			NState:      p.NState,
			NExcStack:   p.NExcStack,
			ScopeFlags:  p.ScopeFlags,
			NPosArgs:    p.NPosArgs,
			NKwOnlyArgs: p.NKwOnlyArgs,
			NDefPosArgs: p.NDefPosArgs,
			NInfo:       p.NInfo,
			NCell:       p.NCell,
		},
		Code: rc.Code,
	}
	for _, id := range rc.ArgNames {
		cv.ArgNames = append(cv.ArgNames, f.QstrName(id))
	}
	for _, id := range rc.QstrRefs {
		cv.Qstrs = append(cv.Qstrs, f.QstrName(id))
	}
	for _, c := range rc.Consts {
		cv.Consts = append(cv.Consts, ConstView{Kind: c.Kind.String(), Value: c.String()})
	}
	if insts {
		list, err := rc.Instructions()
		if err != nil {
			return nil, fmt.Errorf("output: %s: %w", names[rc], err)
		}
		for _, in := range list {
			cv.Insts = append(cv.Insts, InstView{
				Offset: in.Offset,
				Op:     in.Op,
				Text:   InstText(f, rc, in),
			})
		}
	}
	for _, c := range rc.Children {
		child, err := newCodeView(f, c, names, insts)
		if err != nil {
			return nil, err
		}
		cv.Children = append(cv.Children, child)
	}
	return cv, nil
}

// InstText renders an instruction with its operand resolved against the
// file's qstr table and rc's constant table.
func InstText(f *mpy.File, rc *mpy.RawCode, in bytecode.Inst) string {
	switch {
	case in.Format == bytecode.FormatQstr:
		return in.Name + " " + f.QstrName(int(in.Arg))
	case in.IsJump():
		return fmt.Sprintf("%s 0x%x", in.Name, in.Target)
	case in.Format == bytecode.FormatByte:
		return in.Name
	}
	switch in.Op {
	case bytecode.LoadConstObj, bytecode.MakeFunction, bytecode.MakeFunctionDefargs,
		bytecode.MakeClosure, bytecode.MakeClosureDefargs:
		ref, ok := rc.ConstTable(int(in.Arg))
		switch {
		case !ok:
		case ref.Const != nil:
			return fmt.Sprintf("%s %d (%s)", in.Name, in.Arg, ref.Const)
		case ref.Child != nil:
			return fmt.Sprintf("%s %d (%s)", in.Name, in.Arg, f.QstrName(ref.Child.SimpleName))
		default:
			return fmt.Sprintf("%s %d (%s)", in.Name, in.Arg, f.QstrName(ref.ArgName))
		}
	}
	return fmt.Sprintf("%s %d", in.Name, in.Arg)
}
