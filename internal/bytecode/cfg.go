package bytecode

import "sort"

// BasicBlock represents a sequence of instructions with a single entry point.
type BasicBlock struct {
	ID      int
	Start   int    // index into FuncCFG.Insts (inclusive)
	End     int    // index into FuncCFG.Insts (exclusive)
	Succs   []Succ // successor edges
	IsEntry bool
	IsTerm  bool // ends with RETURN_VALUE or RAISE_*
}

// Succ describes a control-flow successor edge.
type Succ struct {
	BlockID int
	Cond    string // "" = unconditional, "T" = taken, "F" = fallthrough, "E" = exception/with handler
}

// FuncCFG is a per-code-object control flow graph.
type FuncCFG struct {
	Name   string
	Blocks []BasicBlock
	Insts  []Inst
}

type flowKind int

const (
	flowNone flowKind = iota
	flowTerm
	flowJump
	flowCond
	flowHandler
)

func flowOf(op byte) flowKind {
	switch op {
	case ReturnValue, RaiseLast, RaiseObj, RaiseFrom:
		return flowTerm
	case Jump, UnwindJump, PopExceptJump:
		return flowJump
	case PopJumpIfTrue, PopJumpIfFalse, JumpIfTrueOrPop, JumpIfFalseOrPop, ForIter:
		return flowCond
	case SetupWith, SetupExcept, SetupFinally:
		return flowHandler
	}
	return flowNone
}

// BuildCFG constructs a control flow graph from a code object's instructions.
//  1. Find block leaders: index 0, jump targets, instructions after any flow change.
//  2. Partition instructions into blocks by leaders.
//  3. Compute successor edges from each block's last instruction.
func BuildCFG(name string, insts []Inst) FuncCFG {
	if len(insts) == 0 {
		return FuncCFG{Name: name, Insts: insts}
	}

	offToIdx := make(map[int]int, len(insts))
	for i, inst := range insts {
		offToIdx[inst.Offset] = i
	}

	// Pass 1: leaders.
	leaders := map[int]bool{0: true}
	for i, inst := range insts {
		fk := flowOf(inst.Op)
		if fk == flowNone {
			continue
		}
		if i+1 < len(insts) {
			leaders[i+1] = true
		}
		if fk != flowTerm {
			if idx, ok := offToIdx[inst.Target]; ok {
				leaders[idx] = true
			}
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	// Pass 2: partition.
	blocks := make([]BasicBlock, len(sorted))
	leaderToBlock := make(map[int]int, len(sorted))
	for i, start := range sorted {
		end := len(insts)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		blocks[i] = BasicBlock{ID: i, Start: start, End: end, IsEntry: start == 0}
		leaderToBlock[start] = i
	}

	targetBlock := func(off int) int {
		if idx, ok := offToIdx[off]; ok {
			if bid, ok := leaderToBlock[idx]; ok {
				return bid
			}
		}
		return -1
	}

	// Pass 3: successors.
	for i := range blocks {
		blk := &blocks[i]
		last := insts[blk.End-1]
		next, hasNext := leaderToBlock[blk.End]

		switch flowOf(last.Op) {
		case flowNone:
			if hasNext {
				blk.Succs = append(blk.Succs, Succ{BlockID: next})
			}
		case flowTerm:
			blk.IsTerm = true
		case flowJump:
			if t := targetBlock(last.Target); t >= 0 {
				blk.Succs = append(blk.Succs, Succ{BlockID: t})
			} else {
				blk.IsTerm = true
			}
		case flowCond:
			if t := targetBlock(last.Target); t >= 0 {
				blk.Succs = append(blk.Succs, Succ{BlockID: t, Cond: "T"})
			}
			if hasNext {
				blk.Succs = append(blk.Succs, Succ{BlockID: next, Cond: "F"})
			}
		case flowHandler:
			if hasNext {
				blk.Succs = append(blk.Succs, Succ{BlockID: next})
			}
			if t := targetBlock(last.Target); t >= 0 {
				blk.Succs = append(blk.Succs, Succ{BlockID: t, Cond: "E"})
			}
		}
	}

	return FuncCFG{Name: name, Blocks: blocks, Insts: insts}
}
