package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"udis/internal/mpyfmt"
)

var ErrTruncatedInstruction = errors.New("bytecode: instruction runs past end of code")

// ScanOptions carries the file features that change instruction sizes.
type ScanOptions struct {
	// CacheMapLookup adds one cache byte after the qstr operand of
	// LOAD_NAME, LOAD_GLOBAL, LOAD_ATTR and STORE_ATTR.
	CacheMapLookup bool
	// MaxSteps caps the number of instructions Scan decodes; 0 = 1M.
	MaxSteps int
}

const defaultMaxSteps = 1_000_000

func (o ScanOptions) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

// FixedSize returns the number of bytes op occupies in a code buffer,
// excluding the continuation bytes of a var-uint operand (the first
// operand byte is included).
func FixedSize(op byte, opts ScanOptions) (Format, int) {
	f := OpcodeFormat(op)
	size := 1
	switch f {
	case FormatQstr:
		size += 2
		if opts.CacheMapLookup && usesMapCache(op) {
			size++
		}
	case FormatVarUint:
		size++
	case FormatOffset:
		size += 2
	}
	if HasExtraByte(op) {
		size++
	}
	return f, size
}

// OpcodeSize classifies the instruction at code[ip] and returns its length.
// With countVarUint false a var-uint operand is not walked and only the
// opcode byte plus any extra byte is counted.
func OpcodeSize(code []byte, ip int, countVarUint bool, opts ScanOptions) (Format, int, error) {
	if ip < 0 || ip >= len(code) {
		return 0, 0, ErrTruncatedInstruction
	}
	op := code[ip]
	f, size := FixedSize(op, opts)
	if f == FormatVarUint {
		if !countVarUint {
			size--
		} else {
			p := ip + 1
			for {
				if p >= len(code) {
					return f, 0, ErrTruncatedInstruction
				}
				if code[p]&0x80 == 0 {
					break
				}
				p++
				size++
			}
		}
	}
	if ip+size > len(code) {
		return f, size, ErrTruncatedInstruction
	}
	return f, size, nil
}

// Inst is one decoded instruction in a code buffer.
type Inst struct {
	Offset int    `json:"offset"`
	Op     byte   `json:"op"`
	Name   string `json:"name"`
	Format Format `json:"format"`
	Size   int    `json:"size"`
	Arg    int64  `json:"arg"`              // qstr id, var-uint, or raw jump offset
	Target int    `json:"target,omitempty"` // jump destination for FormatOffset
	Extra  int    `json:"extra,omitempty"`  // trailing extra byte, if any
}

// IsJump reports whether the instruction carries a jump offset.
func (i Inst) IsJump() bool { return i.Format == FormatOffset }

// Scan walks the opcodes of a filled code buffer starting at start.
func Scan(code []byte, start int, opts ScanOptions) ([]Inst, error) {
	maxSteps := opts.effectiveMax()
	var insts []Inst
	for ip := start; ip < len(code); {
		if len(insts) >= maxSteps {
			return insts, fmt.Errorf("bytecode: more than %d instructions", maxSteps)
		}
		inst, err := decodeInst(code, ip, opts)
		if err != nil {
			return insts, fmt.Errorf("%w at offset %d", err, ip)
		}
		insts = append(insts, inst)
		ip += inst.Size
	}
	return insts, nil
}

func decodeInst(code []byte, ip int, opts ScanOptions) (Inst, error) {
	f, size, err := OpcodeSize(code, ip, true, opts)
	if err != nil {
		return Inst{}, err
	}
	op := code[ip]
	inst := Inst{Offset: ip, Op: op, Name: OpName(op), Format: f, Size: size}
	p := ip + 1
	switch f {
	case FormatQstr:
		inst.Arg = int64(binary.LittleEndian.Uint16(code[p:]))
	case FormatVarUint:
		if op == LoadConstSmallInt {
			inst.Arg = decodeSignedVarInt(code[p:])
		} else {
			v, _, err := mpyfmt.DecodeUint(code[p:])
			if err != nil {
				return Inst{}, err
			}
			inst.Arg = int64(v)
		}
	case FormatOffset:
		raw := int(binary.LittleEndian.Uint16(code[p:]))
		if signedJump(op) {
			raw -= 0x8000
		}
		inst.Arg = int64(raw)
		// Offsets are relative to the end of the 2-byte operand.
		inst.Target = p + 2 + raw
	}
	if HasExtraByte(op) {
		inst.Extra = int(code[ip+size-1])
	}
	return inst, nil
}

// decodeSignedVarInt decodes LOAD_CONST_SMALL_INT's operand: bit 6 of the
// first byte sign-extends the value.
func decodeSignedVarInt(buf []byte) int64 {
	var v int64
	if len(buf) > 0 && buf[0]&0x40 != 0 {
		v = -1
	}
	for _, b := range buf {
		v = v<<7 | int64(b&0x7f)
		if b&0x80 == 0 {
			break
		}
	}
	return v
}
