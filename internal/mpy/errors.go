package mpy

import (
	"errors"
	"fmt"

	"udis/internal/bytecode"
	"udis/internal/mpyfmt"
	"udis/internal/qstr"
)

var (
	ErrMagicMismatch       = errors.New("mpy: bad magic")
	ErrUnsupportedVersion  = errors.New("mpy: unsupported version")
	ErrUnsupportedCodeKind = errors.New("mpy: unsupported code kind")
	ErrUnknownConstantTag  = errors.New("mpy: unknown constant tag")
	ErrBufferSizeMismatch  = errors.New("mpy: bytecode does not fill declared length")
	ErrInvalidConstant     = errors.New("mpy: malformed constant")
	ErrInvalidString       = errors.New("mpy: string is not valid UTF-8")
	ErrQstrOverflow        = errors.New("mpy: qstr id does not fit in 16 bits")
	ErrDepthExceeded       = errors.New("mpy: code objects nested too deeply")
	ErrLimitExceeded       = errors.New("mpy: declared size exceeds limit")

	ErrTruncatedInput        = mpyfmt.ErrStreamEOF
	ErrStreamOverrun         = mpyfmt.ErrStreamOverrun
	ErrWindowIndexOutOfRange = qstr.ErrWindowIndex
	ErrUnknownQstr           = qstr.ErrUnknownQstr
	ErrInvalidPrelude        = bytecode.ErrInvalidPrelude
)

// DecodeError locates a decode failure in the input.
type DecodeError struct {
	Offset int    // stream offset where the failing read started
	Op     string // what was being decoded
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("mpy: %s at offset 0x%x: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
