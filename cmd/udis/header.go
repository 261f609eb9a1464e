package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"udis/internal/mpy"
	"udis/internal/output"
)

type headerInfo struct {
	mpy.Header
	Supported      bool   `json:"supported"`
	CacheMapLookup bool   `json:"cache_map_lookup"`
	StrUnicode     bool   `json:"str_unicode"`
	Arch           string `json:"arch"`
}

func cmdHeader(args []string) error {
	fs := flag.NewFlagSet("header", flag.ExitOnError)
	in := fs.String("in", "", "input .mpy file")
	verbose := fs.Bool("verbose", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("--in is required")
	}

	f, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	buf := make([]byte, mpy.HeaderSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("read: %w", err)
	}
	h, err := mpy.ParseHeader(buf[:n])
	if err != nil {
		return err
	}
	log := newLogger(*verbose)
	log.Debug().
		Str("file", *in).
		Uint8("features", h.Features).
		Msg("header")
	return output.WriteJSON(os.Stdout, headerInfo{
		Header:         *h,
		Supported:      h.Supported(),
		CacheMapLookup: h.CacheMapLookup(),
		StrUnicode:     h.StrUnicode(),
		Arch:           h.Arch().String(),
	})
}
