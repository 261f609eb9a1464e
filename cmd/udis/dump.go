package main

import (
	"flag"
	"fmt"
	"os"

	"udis/internal/mpy"
	"udis/internal/output"
)

func cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	common := addCommonFlags(fs)
	outPath := fs.String("out", "", "output file (default stdout)")
	format := fs.String("format", "", "output encoding: json or cbor")
	insts := fs.Bool("instructions", false, "include instruction listings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *common.in == "" {
		return fmt.Errorf("--in is required")
	}

	log := newLogger(*common.verbose)

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if flagSet(fs, "instructions") {
		cfg.Output.Instructions = *insts
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := cfg.DecodeOptions()
	if err != nil {
		return err
	}
	log.Debug().
		Str("window_policy", opts.WindowPolicy.String()).
		Str("format", cfg.Output.Format).
		Bool("instructions", cfg.Output.Instructions).
		Msg("config")

	f, err := mpy.Open(*common.in, opts)
	if err != nil {
		return err
	}
	logFile(log, *common.in, f)

	view, err := output.NewView(f, cfg.Output.Instructions)
	if err != nil {
		return err
	}
	if *outPath == "" {
		return output.Write(os.Stdout, cfg.Output.Format, view)
	}
	if err := output.WriteFile(*outPath, cfg.Output.Format, view); err != nil {
		return err
	}
	log.Info().Str("out", *outPath).Msg("wrote dump")
	return nil
}
