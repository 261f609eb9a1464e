package mpy

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"udis/internal/mpyfmt"
)

// ConstKind is the tag byte of a constant-pool entry.
type ConstKind byte

const (
	ConstStr      ConstKind = 's'
	ConstBytes    ConstKind = 'b'
	ConstInt      ConstKind = 'i'
	ConstFloat    ConstKind = 'f'
	ConstComplex  ConstKind = 'c'
	ConstEllipsis ConstKind = 'e'
)

func (k ConstKind) String() string {
	switch k {
	case ConstStr:
		return "str"
	case ConstBytes:
		return "bytes"
	case ConstInt:
		return "int"
	case ConstFloat:
		return "float"
	case ConstComplex:
		return "complex"
	case ConstEllipsis:
		return "ellipsis"
	default:
		return fmt.Sprintf("ConstKind(%q)", byte(k))
	}
}

// Const is one decoded constant-pool entry. Exactly one value field is
// meaningful, selected by Kind.
type Const struct {
	Kind    ConstKind
	Str     string     // ConstStr
	Bytes   []byte     // ConstBytes
	Int     *big.Int   // ConstInt
	Float   float64    // ConstFloat
	Complex complex128 // ConstComplex
	Raw     []byte     // payload as stored in the file; nil for ellipsis
}

// String renders the constant roughly as the source literal.
func (c Const) String() string {
	switch c.Kind {
	case ConstStr:
		return strconv.Quote(c.Str)
	case ConstBytes:
		return "b" + strconv.Quote(string(c.Bytes))
	case ConstInt:
		return c.Int.String()
	case ConstFloat, ConstComplex:
		return string(c.Raw)
	case ConstEllipsis:
		return "..."
	default:
		return c.Kind.String()
	}
}

// readObj decodes one tagged constant.
func readObj(s *mpyfmt.Stream) (Const, error) {
	tag, err := s.ReadByte()
	if err != nil {
		return Const{}, err
	}
	kind := ConstKind(tag)
	switch kind {
	case ConstEllipsis:
		return Const{Kind: kind}, nil
	case ConstStr, ConstBytes, ConstInt, ConstFloat, ConstComplex:
	default:
		return Const{}, fmt.Errorf("%w: 0x%02x", ErrUnknownConstantTag, tag)
	}

	n, err := s.ReadInt()
	if err != nil {
		return Const{}, err
	}
	if n > maxReadBytes {
		return Const{}, fmt.Errorf("%w: constant of %d bytes", ErrLimitExceeded, n)
	}
	buf, err := s.ReadBytes(n)
	if err != nil {
		return Const{}, err
	}
	return parseObj(kind, buf)
}

func parseObj(kind ConstKind, buf []byte) (Const, error) {
	c := Const{Kind: kind, Raw: buf}
	switch kind {
	case ConstStr:
		if !utf8.Valid(buf) {
			return Const{}, ErrInvalidString
		}
		c.Str = string(buf)
	case ConstBytes:
		c.Bytes = buf
	case ConstInt:
		v, ok := new(big.Int).SetString(string(buf), 10)
		if !ok {
			return Const{}, fmt.Errorf("%w: int %q", ErrInvalidConstant, buf)
		}
		c.Int = v
	case ConstFloat:
		v, err := strconv.ParseFloat(string(buf), 64)
		if err != nil {
			return Const{}, fmt.Errorf("%w: float %q", ErrInvalidConstant, buf)
		}
		c.Float = v
	case ConstComplex:
		v, err := parseComplex(string(buf))
		if err != nil {
			return Const{}, fmt.Errorf("%w: complex %q", ErrInvalidConstant, buf)
		}
		c.Complex = v
	}
	return c, nil
}

// parseComplex accepts Python's complex repr: "2j", "(1+2j)", "(-0-1.5j)".
func parseComplex(s string) (complex128, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	if !strings.HasSuffix(s, "j") {
		v, err := strconv.ParseFloat(s, 64)
		return complex(v, 0), err
	}
	return strconv.ParseComplex(strings.TrimSuffix(s, "j")+"i", 128)
}
