package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrInvalidPrelude = errors.New("bytecode: invalid prelude")

// Signature is the calling-convention half of a prelude.
type Signature struct {
	NState      int // state slots (stored as count-1)
	NExcStack   int
	ScopeFlags  int
	NPosArgs    int
	NKwOnlyArgs int
	NDefPosArgs int
}

// Prelude is the decoded header of a bytecode function.
// Layout inside the code buffer:
//
//	+0:             signature bytes (xSSSSEAA, then xFSSKAED while bit 7 set)
//	+sig:           size bytes (xIIIIIIC while bit 7 set)
//	+HeaderLen:     simple_name qstr (uint16 LE)
//	+HeaderLen+2:   source_file qstr (uint16 LE)
//	+HeaderLen+4:   line info (NInfo-4 bytes)
//	+HeaderLen+NInfo: cell local indices (NCell bytes)
//	+CodeOffset():  opcodes
type Prelude struct {
	Signature
	NInfo     int
	NCell     int
	HeaderLen int // signature + size bytes
}

// DecodeSignature reads the bit-interleaved signature record.
func DecodeSignature(src io.ByteReader) (Signature, error) {
	z, err := src.ReadByte()
	if err != nil {
		return Signature{}, err
	}
	// xSSSSEAA
	s := int(z>>3) & 0xf
	e := int(z>>2) & 0x1
	f := 0
	a := int(z) & 0x3
	k := 0
	d := 0
	for n := 0; z&0x80 != 0; n++ {
		if n >= 32 {
			return Signature{}, fmt.Errorf("%w: signature too long", ErrInvalidPrelude)
		}
		z, err = src.ReadByte()
		if err != nil {
			return Signature{}, err
		}
		// xFSSKAED
		s |= int(z&0x30) << (2 * n)
		e |= int(z&0x02) << n
		f |= int((z&0x40)>>6) << n
		a |= int(z&0x04) << n
		k |= int((z&0x08)>>3) << n
		d |= int(z&0x01) << n
	}
	return Signature{
		NState:      s + 1,
		NExcStack:   e,
		ScopeFlags:  f,
		NPosArgs:    a,
		NKwOnlyArgs: k,
		NDefPosArgs: d,
	}, nil
}

// DecodeSize reads the size record: info byte count and cell count.
func DecodeSize(src io.ByteReader) (info, cell int, err error) {
	for n := 0; ; n++ {
		if n >= 10 {
			return 0, 0, fmt.Errorf("%w: size record too long", ErrInvalidPrelude)
		}
		z, err := src.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		// xIIIIIIC
		info |= int((z&0x7e)>>1) << (6 * n)
		cell |= int(z&0x01) << n
		if z&0x80 == 0 {
			return info, cell, nil
		}
	}
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.ByteReader
	n int
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

// DecodePrelude reads both prelude records from src.
func DecodePrelude(src io.ByteReader) (Prelude, error) {
	cr := &countingReader{r: src}
	sig, err := DecodeSignature(cr)
	if err != nil {
		return Prelude{}, err
	}
	info, cell, err := DecodeSize(cr)
	if err != nil {
		return Prelude{}, err
	}
	if info < 4 {
		return Prelude{}, fmt.Errorf("%w: info size %d < 4", ErrInvalidPrelude, info)
	}
	return Prelude{Signature: sig, NInfo: info, NCell: cell, HeaderLen: cr.n}, nil
}

// ParsePrelude decodes the prelude at the start of a filled code buffer.
func ParsePrelude(code []byte) (Prelude, error) {
	p, err := DecodePrelude(&sliceReader{buf: code})
	if err != nil {
		return Prelude{}, err
	}
	if p.CodeOffset() > len(code) {
		return Prelude{}, fmt.Errorf("%w: prelude extends past code (%d > %d)", ErrInvalidPrelude, p.CodeOffset(), len(code))
	}
	return p, nil
}

// NArgs returns the number of declared parameter names.
func (p Prelude) NArgs() int { return p.NPosArgs + p.NKwOnlyArgs }

// SimpleNameOffset returns the buffer offset of the packed simple_name qstr.
func (p Prelude) SimpleNameOffset() int { return p.HeaderLen }

// SourceFileOffset returns the buffer offset of the packed source_file qstr.
func (p Prelude) SourceFileOffset() int { return p.HeaderLen + 2 }

// LineInfoOffset returns the buffer offset of the line-number table.
func (p Prelude) LineInfoOffset() int { return p.HeaderLen + 4 }

// CodeOffset returns the buffer offset of the first opcode.
func (p Prelude) CodeOffset() int { return p.HeaderLen + p.NInfo + p.NCell }

// LineInfo returns the raw line-number table.
func (p Prelude) LineInfo(code []byte) []byte {
	return code[p.LineInfoOffset() : p.HeaderLen+p.NInfo]
}

// Cells returns the local indices converted to cells.
func (p Prelude) Cells(code []byte) []byte {
	return code[p.HeaderLen+p.NInfo : p.CodeOffset()]
}

// UnpackQstr reads a packed 16-bit qstr id at off.
func UnpackQstr(code []byte, off int) (int, error) {
	if off < 0 || off+2 > len(code) {
		return 0, fmt.Errorf("bytecode: qstr at %d outside code (%d bytes)", off, len(code))
	}
	return int(binary.LittleEndian.Uint16(code[off:])), nil
}

// PackQstr appends id as a packed 16-bit qstr.
func PackQstr(dst []byte, id int) []byte {
	return binary.LittleEndian.AppendUint16(dst, uint16(id))
}

type sliceReader struct {
	buf []byte
	pos int
}

func (s *sliceReader) ReadByte() (byte, error) {
	if s.pos >= len(s.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := s.buf[s.pos]
	s.pos++
	return b, nil
}
