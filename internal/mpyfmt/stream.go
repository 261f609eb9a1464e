// MicroPython .mpy data stream reader.
// Implements the variable-length unsigned integer encoding used throughout the format.
package mpyfmt

import (
	"errors"
	"io"
)

var (
	ErrStreamEOF     = errors.New("stream: unexpected end of data")
	ErrStreamOverrun = errors.New("stream: value too large")
)

// Stream reads .mpy data from an underlying reader, tracking the byte offset.
type Stream struct {
	r   io.ByteReader
	src io.Reader
	pos int
}

// byteReader adapts an io.Reader without ReadByte.
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}
	return b.buf[0], nil
}

func (b *byteReader) Read(p []byte) (int, error) { return b.r.Read(p) }

// NewStream creates a stream over r.
func NewStream(r io.Reader) *Stream {
	br, ok := r.(io.ByteReader)
	if !ok {
		adapted := &byteReader{r: r}
		return &Stream{r: adapted, src: adapted}
	}
	return &Stream{r: br, src: r}
}

// Position returns the number of bytes consumed so far.
func (s *Stream) Position() int { return s.pos }

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, eof(err)
	}
	s.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes into a new slice.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrStreamOverrun
	}
	out := make([]byte, n)
	got, err := io.ReadFull(s.src, out)
	s.pos += got
	if err != nil {
		return nil, eof(err)
	}
	return out, nil
}

// Skip discards n bytes.
func (s *Stream) Skip(n int) error {
	for i := 0; i < n; i++ {
		if _, err := s.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}

// Variable-length integer encoding constants.
const (
	dataBitsPerByte = 7
	byteMask        = (1 << dataBitsPerByte) - 1 // 0x7f
	continueBit     = 0x80

	// maxUintLen is the longest encoding of a uint64.
	maxUintLen = 10
)

// ReadUint reads an unsigned variable-length integer.
//
// Encoding: each byte carries 7 bits, most significant group first.
// Bit 7 set means another byte follows; the first byte with bit 7 clear ends the value.
func (s *Stream) ReadUint() (uint64, error) {
	var r uint64
	for {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		if r>>(64-dataBitsPerByte) != 0 {
			return 0, ErrStreamOverrun
		}
		r = r<<dataBitsPerByte | uint64(b&byteMask)
		if b&continueBit == 0 {
			return r, nil
		}
	}
}

// ReadInt reads an unsigned variable-length integer that must fit in an int.
func (s *Stream) ReadInt() (int, error) {
	v, err := s.ReadUint()
	if err != nil {
		return 0, err
	}
	if v > uint64(maxInt) {
		return 0, ErrStreamOverrun
	}
	return int(v), nil
}

const maxInt = int(^uint(0) >> 1)

// DecodeUint decodes an unsigned variable-length integer from the start of buf.
// Returns the value and the number of bytes consumed.
func DecodeUint(buf []byte) (uint64, int, error) {
	var r uint64
	for i, b := range buf {
		if r>>(64-dataBitsPerByte) != 0 {
			return 0, 0, ErrStreamOverrun
		}
		r = r<<dataBitsPerByte | uint64(b&byteMask)
		if b&continueBit == 0 {
			return r, i + 1, nil
		}
	}
	return 0, 0, ErrStreamEOF
}

// AppendUint appends the minimal encoding of v to dst.
func AppendUint(dst []byte, v uint64) []byte {
	var tmp [maxUintLen]byte
	n := len(tmp) - 1
	tmp[n] = byte(v & byteMask)
	for v >>= dataBitsPerByte; v != 0; v >>= dataBitsPerByte {
		n--
		tmp[n] = byte(v&byteMask) | continueBit
	}
	return append(dst, tmp[n:]...)
}

// EncodeUint returns the minimal encoding of v.
func EncodeUint(v uint64) []byte {
	return AppendUint(nil, v)
}

// UintLen returns the number of bytes EncodeUint(v) produces.
func UintLen(v uint64) int {
	n := 1
	for v >>= dataBitsPerByte; v != 0; v >>= dataBitsPerByte {
		n++
	}
	return n
}

func eof(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrStreamEOF
	}
	return err
}
