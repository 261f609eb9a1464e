package render

import (
	"fmt"
	"strings"

	"udis/internal/bytecode"
)

// InstLabel renders one instruction for a block listing.
type InstLabel func(bytecode.Inst) string

// DefaultLabel prints the mnemonic with its raw operand or jump target.
func DefaultLabel(in bytecode.Inst) string {
	switch {
	case in.IsJump():
		return fmt.Sprintf("%s 0x%x", in.Name, in.Target)
	case in.Format == bytecode.FormatByte:
		return in.Name
	default:
		return fmt.Sprintf("%s %d", in.Name, in.Arg)
	}
}

// maxBlockLines caps the instruction listing of one block.
const maxBlockLines = 12

// CFGDOT renders a per-code-object basic-block CFG as DOT.
// Each basic block is a node; edges represent control flow.
// The entry block is highlighted. Conditional edges use T/F colors and
// handler edges use E.
func CFGDOT(cfg bytecode.FuncCFG, label InstLabel, t Theme) string {
	if len(cfg.Blocks) == 0 {
		return ""
	}
	if label == nil {
		label = DefaultLabel
	}

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	b.WriteString("  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	b.WriteString("  labelloc=t;\n  labeljust=l;\n")
	fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s</font>>;\n",
		t.TextColor, dotEscape(cfg.Name))
	b.WriteByte('\n')

	for _, blk := range cfg.Blocks {
		var lines []string
		end := min(blk.End, len(cfg.Insts))
		for i := blk.Start; i < end; i++ {
			in := cfg.Insts[i]
			line := fmt.Sprintf("%04x: %s", in.Offset, truncLabel(label(in), 60))
			lines = append(lines, dotEscape(line))
		}
		if len(lines) > maxBlockLines {
			kept := append(lines[:5:5], fmt.Sprintf("... (%d more)", len(lines)-10))
			lines = append(kept, lines[len(lines)-5:]...)
		}

		text := strings.Join(lines, "<br align=\"left\"/>") + "<br align=\"left\"/>"
		attrs := ""
		if blk.IsEntry {
			attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EntryBorder)
		}
		if blk.IsTerm {
			attrs += fmt.Sprintf(", fillcolor=%q", t.TermFill)
		}
		fmt.Fprintf(&b, "  bb%d [label=<%s>%s];\n", blk.ID, text, attrs)
	}
	b.WriteByte('\n')

	for _, blk := range cfg.Blocks {
		for _, s := range blk.Succs {
			from, to := fmt.Sprintf("bb%d", blk.ID), fmt.Sprintf("bb%d", s.BlockID)
			var color string
			switch s.Cond {
			case "T":
				color = t.EdgeTaken
			case "F":
				color = t.EdgeFall
			case "E":
				color = t.EdgeHandler
			default:
				fmt.Fprintf(&b, "  %s -> %s [color=%q];\n", from, to, t.EdgeFlow)
				continue
			}
			fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">%s</font>>];\n",
				from, to, color, color, s.Cond)
		}
	}

	b.WriteString("}\n")
	return b.String()
}
