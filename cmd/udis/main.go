package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "header":
		err = cmdHeader(os.Args[2:])
	case "dump":
		err = cmdDump(os.Args[2:])
	case "graph":
		err = cmdGraph(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `udis: MicroPython .mpy (v5) decoder

Usage:
  udis header --in <file.mpy>                      Print the file header
  udis dump   --in <file.mpy> [--out <path>]       Dump the code object tree
  udis graph  --in <file.mpy> --out <dir>          Write nesting and CFG graphs

Flags:
  --in <path>             Input .mpy file
  --out <path>            Output file (dump) or directory (graph)
  --config <path>         udis.toml with [decoder] and [output] settings
  --format json|cbor      Dump encoding (default json)
  --window-policy <p>     promote (default) or remove
  --instructions          Include instruction listings in the dump
  --verbose               Debug logging
`)
}
