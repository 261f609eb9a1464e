// Package output writes decoded .mpy trees as JSON or CBOR.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// Formats accepted by Write and WriteFile.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("output: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode json: %w", err)
	}
	return nil
}

// WriteCBOR writes v in canonical CBOR.
func WriteCBOR(w io.Writer, v any) error {
	if err := cborEncMode.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("output: encode cbor: %w", err)
	}
	return nil
}

// Write encodes v in the named format.
func Write(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, v)
	case FormatCBOR:
		return WriteCBOR(w, v)
	default:
		return fmt.Errorf("output: unknown format %q", format)
	}
}

// WriteFile creates path (and its directory) and encodes v into it.
func WriteFile(path, format string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, format, v); err != nil {
		return fmt.Errorf("%w (%s)", err, path)
	}
	return f.Close()
}

// WriteText writes a text artifact such as a DOT graph.
func WriteText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, []byte(text), 0644)
}
