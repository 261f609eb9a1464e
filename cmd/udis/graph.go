package main

import (
	"flag"
	"fmt"
	"path/filepath"

	lrender "github.com/zboralski/lattice/render"

	"udis/internal/bytecode"
	"udis/internal/graph"
	"udis/internal/mpy"
	"udis/internal/output"
	"udis/internal/render"
)

func cmdGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	common := addCommonFlags(fs)
	outDir := fs.String("out", "", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *common.in == "" || *outDir == "" {
		return fmt.Errorf("--in and --out are required")
	}

	log := newLogger(*common.verbose)

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	opts, err := cfg.DecodeOptions()
	if err != nil {
		return err
	}

	f, err := mpy.Open(*common.in, opts)
	if err != nil {
		return err
	}
	logFile(log, *common.in, f)
	title := filepath.Base(*common.in)

	// Code object nesting.
	ng := graph.BuildNestingGraph(f)
	if err := output.WriteText(filepath.Join(*outDir, "nesting.dot"), lrender.DOT(ng, title)); err != nil {
		return err
	}

	// Whole-file CFG with references.
	cg, err := graph.BuildCFG(f)
	if err != nil {
		return err
	}
	if err := output.WriteText(filepath.Join(*outDir, "cfg.dot"), lrender.DOTCFG(cg, title)); err != nil {
		return err
	}

	// One listing per code object.
	names := graph.Names(f)
	written := 0
	err = f.Root.Walk(func(rc *mpy.RawCode, _ int) error {
		insts, err := rc.Instructions()
		if err != nil {
			return fmt.Errorf("%s: %w", names[rc], err)
		}
		bcfg := bytecode.BuildCFG(names[rc], insts)
		dot := render.CFGDOT(bcfg, func(in bytecode.Inst) string {
			return output.InstText(f, rc, in)
		}, render.Paper)
		if dot == "" {
			return nil
		}
		path := filepath.Join(*outDir, "cfg", render.FileName(names[rc])+".dot")
		log.Debug().Str("func", names[rc]).Int("blocks", len(bcfg.Blocks)).Str("out", path).Msg("cfg")
		written++
		return output.WriteText(path, dot)
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("nodes", len(ng.Nodes)).
		Int("edges", len(ng.Edges)).
		Int("cfgs", written).
		Str("out", *outDir).
		Msg("wrote graphs")
	return nil
}
