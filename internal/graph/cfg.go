package graph

import (
	"github.com/zboralski/lattice"

	"udis/internal/bytecode"
	"udis/internal/mpy"
)

// Ref is a named reference made by one instruction: a function or closure
// created from a child code object, an imported module, or a resolved call.
type Ref struct {
	Index  int // index into the instruction list
	Callee string
}

// FuncInfo holds the data needed to build the CFG of one code object.
type FuncInfo struct {
	Name  string
	Insts []bytecode.Inst
	Refs  []Ref
}

// Funcs decodes every code object in f. Objects whose instructions cannot
// be scanned are returned with the prefix that did decode.
func Funcs(f *mpy.File) ([]FuncInfo, error) {
	if f.Root == nil {
		return nil, nil
	}
	names := Names(f)
	var funcs []FuncInfo
	err := f.Root.Walk(func(rc *mpy.RawCode, _ int) error {
		insts, err := rc.Instructions()
		funcs = append(funcs, FuncInfo{
			Name:  names[rc],
			Insts: insts,
			Refs:  CollectRefs(f, rc, insts, names),
		})
		return err
	})
	return funcs, err
}

// CollectRefs finds the named references in insts:
//   - MAKE_FUNCTION / MAKE_CLOSURE (and the _DEFARGS forms) name the child
//     they instantiate;
//   - IMPORT_NAME names the module as "import <name>";
//   - CALL_FUNCTION and CALL_METHOD name their callee when it was loaded by
//     LOAD_NAME, LOAD_GLOBAL or LOAD_METHOD and every argument was pushed by
//     a single-value load.
func CollectRefs(f *mpy.File, rc *mpy.RawCode, insts []bytecode.Inst, names map[*mpy.RawCode]string) []Ref {
	var refs []Ref
	for i, in := range insts {
		switch in.Op {
		case bytecode.MakeFunction, bytecode.MakeFunctionDefargs,
			bytecode.MakeClosure, bytecode.MakeClosureDefargs:
			ref, ok := rc.ConstTable(int(in.Arg))
			if !ok || ref.Child == nil {
				continue
			}
			refs = append(refs, Ref{Index: i, Callee: names[ref.Child]})
		case bytecode.ImportName:
			refs = append(refs, Ref{Index: i, Callee: "import " + f.QstrName(int(in.Arg))})
		case bytecode.CallFunction, bytecode.CallMethod:
			if callee, ok := resolveCallee(f, insts, i); ok {
				refs = append(refs, Ref{Index: i, Callee: callee})
			}
		}
	}
	return refs
}

// resolveCallee walks back over the arguments of the call at insts[call].
func resolveCallee(f *mpy.File, insts []bytecode.Inst, call int) (string, bool) {
	arg := insts[call].Arg
	nargs := int(arg&0xff) + 2*int(arg>>8&0xff)
	at := call - 1 - nargs
	if at < 0 {
		return "", false
	}
	for j := at + 1; j < call; j++ {
		if !pushesOne(insts[j].Op) {
			return "", false
		}
	}
	load := insts[at]
	switch {
	case insts[call].Op == bytecode.CallMethod && load.Op == bytecode.LoadMethod:
		return "." + f.QstrName(int(load.Arg)), true
	case insts[call].Op == bytecode.CallFunction && (load.Op == bytecode.LoadName || load.Op == bytecode.LoadGlobal):
		return f.QstrName(int(load.Arg)), true
	}
	return "", false
}

// pushesOne reports whether op pushes exactly one value and pops none.
func pushesOne(op byte) bool {
	switch op {
	case bytecode.LoadConstString, bytecode.LoadName, bytecode.LoadGlobal,
		bytecode.LoadConstSmallInt, bytecode.LoadConstObj, bytecode.LoadFastN, bytecode.LoadDeref,
		bytecode.LoadConstFalse, bytecode.LoadConstNone, bytecode.LoadConstTrue:
		return true
	}
	return op >= bytecode.LoadConstSmallIntMulti && op < bytecode.StoreFastMulti
}

// BuildCFG constructs a lattice.CFGGraph from every code object in f.
func BuildCFG(f *mpy.File) (*lattice.CFGGraph, error) {
	funcs, err := Funcs(f)
	cg := &lattice.CFGGraph{}
	for _, fi := range funcs {
		lcfg, _ := BuildFuncCFG(fi)
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg, err
}

// BuildFuncCFG builds a single-function lattice.FuncCFG. It also returns
// the number of basic blocks.
func BuildFuncCFG(fi FuncInfo) (*lattice.FuncCFG, int) {
	bcfg := bytecode.BuildCFG(fi.Name, fi.Insts)
	return convertFuncCFG(&bcfg, fi.Refs), len(bcfg.Blocks)
}

// convertFuncCFG maps a bytecode.FuncCFG to a lattice.FuncCFG.
// References are placed into the block whose range holds their instruction.
func convertFuncCFG(bcfg *bytecode.FuncCFG, refs []Ref) *lattice.FuncCFG {
	refsAt := make(map[int][]string, len(refs))
	for _, r := range refs {
		refsAt[r.Index] = append(refsAt[r.Index], r.Callee)
	}

	lcfg := &lattice.FuncCFG{Name: bcfg.Name}
	for _, bb := range bcfg.Blocks {
		lb := &lattice.BasicBlock{
			ID:    bb.ID,
			Start: bb.Start,
			End:   bb.End,
			Term:  bb.IsTerm,
		}
		for _, s := range bb.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: s.BlockID,
				Cond:    s.Cond,
			})
		}
		for idx := bb.Start; idx < bb.End; idx++ {
			for _, callee := range refsAt[idx] {
				lb.Calls = append(lb.Calls, lattice.CallSite{
					Offset: idx,
					Callee: callee,
				})
			}
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
