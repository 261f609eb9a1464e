// Package mpyfmt provides the byte stream and diagnostics shared by the .mpy decoders.
package mpyfmt

import "fmt"

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagEvicted     DiagKind = "evicted"
	DiagNullQstr    DiagKind = "null_qstr"
	DiagUnknownFlag DiagKind = "unknown_flag"
	DiagTrailing    DiagKind = "trailing"
)

// Diag records a non-fatal observation made during decoding.
type Diag struct {
	Offset uint64   `json:"offset" cbor:"offset"`
	Kind   DiagKind `json:"kind" cbor:"kind"`
	Msg    string   `json:"msg" cbor:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] 0x%x: %s", d.Kind, d.Offset, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(offset uint64, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(offset uint64, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }
