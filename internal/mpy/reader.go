package mpy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"udis/internal/bytecode"
	"udis/internal/mpyfmt"
	"udis/internal/qstr"
)

// Options controls decoding.
type Options struct {
	WindowPolicy qstr.Policy
	Vocabulary   *qstr.Vocabulary // nil = qstr.Static
	MaxDepth     int              // code object nesting cap; 0 = 64
	MaxCodeSize  int              // instruction buffer cap; 0 = 16 MiB
	MaxCount     int              // constant/child/argument count cap; 0 = 1<<20
	MaxWindow    int              // qstr window capacity cap; 0 = 1<<16
}

const (
	DefaultMaxDepth    = 64
	DefaultMaxCodeSize = 1 << 24
	DefaultMaxCount    = 1 << 20
	DefaultMaxWindow   = 1 << 16

	maxReadBytes = 1 << 24
)

func (o Options) maxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

func (o Options) maxCodeSize() int {
	if o.MaxCodeSize > 0 {
		return o.MaxCodeSize
	}
	return DefaultMaxCodeSize
}

func (o Options) maxCount() int {
	if o.MaxCount > 0 {
		return o.MaxCount
	}
	return DefaultMaxCount
}

func (o Options) maxWindow() int {
	if o.MaxWindow > 0 {
		return o.MaxWindow
	}
	return DefaultMaxWindow
}

// File is a fully decoded .mpy file.
type File struct {
	Header     Header
	WindowSize int
	Root       *RawCode
	Table      *qstr.Table // owns every qstr id referenced by Root
	Diags      []mpyfmt.Diag
}

// QstrName returns the text of a qstr id, or a placeholder if unassigned.
func (f *File) QstrName(id int) string { return f.Table.MustLookup(id) }

// Reader is a single decode session: one stream, one qstr table, one window.
// It is not safe for concurrent use; decode files in parallel with one
// Reader each.
type Reader struct {
	s      *mpyfmt.Stream
	opts   Options
	table  *qstr.Table
	window *qstr.Window
	scan   bytecode.ScanOptions
	diags  mpyfmt.Diags
}

// NewReader starts a session over r.
func NewReader(r io.Reader, opts Options) *Reader {
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReader(r)
	}
	return &Reader{
		s:     mpyfmt.NewStream(r),
		opts:  opts,
		table: qstr.NewTable(opts.Vocabulary),
	}
}

// Decode parses a complete .mpy image held in memory.
func Decode(data []byte, opts Options) (*File, error) {
	return NewReader(bytes.NewReader(data), opts).ReadFile()
}

// Open reads and parses the .mpy file at path.
func Open(path string, opts Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mpy: %w", err)
	}
	defer f.Close()
	return NewReader(f, opts).ReadFile()
}

// ReadHeader reads and validates the fixed header. The magic byte is
// checked before anything else is read.
func (r *Reader) ReadHeader() (*Header, error) {
	b, err := r.s.ReadByte()
	if err != nil {
		return nil, r.fail(0, "header", err)
	}
	if b != Magic {
		return nil, r.fail(0, "header", fmt.Errorf("%w: 0x%02x (want 0x%02x)", ErrMagicMismatch, b, Magic))
	}
	rest, err := r.s.ReadBytes(HeaderSize - 1)
	if err != nil {
		return nil, r.fail(1, "header", err)
	}
	hdr, err := ParseHeader(append([]byte{b}, rest...))
	if err != nil {
		return nil, r.fail(0, "header", err)
	}
	if !hdr.Supported() {
		return nil, r.fail(1, "header", fmt.Errorf("%w: %d (want %d)", ErrUnsupportedVersion, hdr.Version, SupportedVersion))
	}
	if hdr.Arch() > ArchXtensaWin {
		r.diags.Addf(2, mpyfmt.DiagUnknownFlag, "unknown native arch %d in feature byte 0x%02x", hdr.Arch(), hdr.Features)
	}
	r.scan.CacheMapLookup = hdr.CacheMapLookup()
	return hdr, nil
}

// ReadFile decodes the header, the qstr window size and the root code object.
func (r *Reader) ReadFile() (*File, error) {
	hdr, err := r.ReadHeader()
	if err != nil {
		return nil, err
	}

	off := r.s.Position()
	size, err := r.s.ReadInt()
	if err != nil {
		return nil, r.fail(off, "qstr window size", err)
	}
	if size > r.opts.maxWindow() {
		return nil, r.fail(off, "qstr window size", fmt.Errorf("%w: window of %d entries", ErrLimitExceeded, size))
	}
	r.window = qstr.NewWindow(size, r.opts.WindowPolicy)

	root, err := r.readRawCode(0)
	if err != nil {
		return nil, err
	}

	end := r.s.Position()
	if _, err := r.s.ReadByte(); err == nil {
		r.diags.Add(uint64(end), mpyfmt.DiagTrailing, "data after root code object")
	} else if !errors.Is(err, mpyfmt.ErrStreamEOF) {
		return nil, r.fail(end, "trailing data", err)
	}

	return &File{
		Header:     *hdr,
		WindowSize: size,
		Root:       root,
		Table:      r.table,
		Diags:      r.diags.Items(),
	}, nil
}

// fail wraps err with its location unless it already carries one.
func (r *Reader) fail(off int, op string, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{Offset: off, Op: op, Err: err}
}

// readQstr decodes one string reference:
//
//	len == 0:  builtin id in the next byte
//	len odd:   window entry len>>1
//	len even:  len>>1 bytes of new UTF-8 text, interned and pushed
func (r *Reader) readQstr() (int, error) {
	off := r.s.Position()
	ln, err := r.s.ReadUint()
	if err != nil {
		return 0, r.fail(off, "qstr", err)
	}
	if ln == 0 {
		b, err := r.s.ReadByte()
		if err != nil {
			return 0, r.fail(off, "qstr", err)
		}
		id := int(b)
		if id > r.table.Vocabulary().Len() {
			return 0, r.fail(off, "qstr", fmt.Errorf("%w: builtin %d", ErrUnknownQstr, id))
		}
		if id == qstr.Null {
			r.diags.Add(uint64(off), mpyfmt.DiagNullQstr, "reference to null qstr")
		}
		return id, nil
	}
	if ln&1 != 0 {
		id, err := r.window.Access(int(ln >> 1))
		if err != nil {
			return 0, r.fail(off, "qstr", err)
		}
		return id, nil
	}
	n := ln >> 1
	if n > maxReadBytes {
		return 0, r.fail(off, "qstr", fmt.Errorf("%w: string of %d bytes", ErrLimitExceeded, n))
	}
	data, err := r.s.ReadBytes(int(n))
	if err != nil {
		return 0, r.fail(off, "qstr", err)
	}
	if !utf8.Valid(data) {
		return 0, r.fail(off, "qstr", ErrInvalidString)
	}
	id := r.table.Intern(string(data))
	if evicted, ok := r.window.Push(id); ok {
		r.diags.Addf(uint64(off), mpyfmt.DiagEvicted, "qstr window full, dropped id %d", evicted)
	}
	return id, nil
}

// codeBuf is an instruction buffer of fixed, declared length.
type codeBuf struct {
	buf []byte
	n   int
}

func (b *codeBuf) full() bool { return b.n == len(b.buf) }

func (b *codeBuf) append(p ...byte) error {
	if b.n+len(p) > len(b.buf) {
		return fmt.Errorf("%w: writing %d bytes at %d of %d", ErrBufferSizeMismatch, len(p), b.n, len(b.buf))
	}
	b.n += copy(b.buf[b.n:], p)
	return nil
}

// teeReader copies every byte read from the stream into the code buffer.
type teeReader struct {
	s   *mpyfmt.Stream
	buf *codeBuf
}

func (t teeReader) ReadByte() (byte, error) {
	c, err := t.s.ReadByte()
	if err != nil {
		return 0, err
	}
	return c, t.buf.append(c)
}

func (r *Reader) copyBytes(buf *codeBuf, n int) error {
	tee := teeReader{s: r.s, buf: buf}
	for i := 0; i < n; i++ {
		if _, err := tee.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readQstrAndPack(rc *RawCode, buf *codeBuf) error {
	off := r.s.Position()
	id, err := r.readQstr()
	if err != nil {
		return err
	}
	if id > 0xffff {
		return r.fail(off, "qstr", fmt.Errorf("%w: %d", ErrQstrOverflow, id))
	}
	rc.QstrRefs = append(rc.QstrRefs, id)
	return buf.append(byte(id), byte(id>>8))
}

// readPrelude echoes the prelude into buf, packing its two qstrs.
func (r *Reader) readPrelude(rc *RawCode, buf *codeBuf) error {
	off := r.s.Position()
	p, err := bytecode.DecodePrelude(teeReader{s: r.s, buf: buf})
	if err != nil {
		return r.fail(off, "prelude", err)
	}
	rc.Prelude = p
	if err := r.readQstrAndPack(rc, buf); err != nil { // simple_name
		return r.fail(off, "prelude", err)
	}
	if err := r.readQstrAndPack(rc, buf); err != nil { // source_file
		return r.fail(off, "prelude", err)
	}
	if err := r.copyBytes(buf, p.NInfo-4+p.NCell); err != nil {
		return r.fail(off, "prelude", err)
	}
	return nil
}

// readBytecode copies opcodes into buf until it is exactly full. Qstr
// operands are expanded to their packed form; var-uint operands are
// copied byte for byte.
func (r *Reader) readBytecode(rc *RawCode, buf *codeBuf) error {
	for !buf.full() {
		off := r.s.Position()
		op, err := r.s.ReadByte()
		if err != nil {
			return r.fail(off, "bytecode", err)
		}
		if err := buf.append(op); err != nil {
			return r.fail(off, "bytecode", err)
		}
		f, size := bytecode.FixedSize(op, r.scan)
		rest := size - 1
		switch f {
		case bytecode.FormatQstr:
			if err := r.readQstrAndPack(rc, buf); err != nil {
				return r.fail(off, "bytecode", err)
			}
			rest -= 2
		case bytecode.FormatVarUint:
			tee := teeReader{s: r.s, buf: buf}
			for {
				c, err := tee.ReadByte()
				if err != nil {
					return r.fail(off, "bytecode", err)
				}
				if c&0x80 == 0 {
					break
				}
			}
			rest--
		}
		if err := r.copyBytes(buf, rest); err != nil {
			return r.fail(off, "bytecode", err)
		}
	}
	return nil
}

func (r *Reader) readCount(what string) (int, error) {
	off := r.s.Position()
	n, err := r.s.ReadInt()
	if err != nil {
		return 0, r.fail(off, what, err)
	}
	if n > r.opts.maxCount() {
		return 0, r.fail(off, what, fmt.Errorf("%w: %d > %d", ErrLimitExceeded, n, r.opts.maxCount()))
	}
	return n, nil
}

// readRawCode decodes one code object record and, recursively, its children.
func (r *Reader) readRawCode(depth int) (*RawCode, error) {
	off := r.s.Position()
	if depth >= r.opts.maxDepth() {
		return nil, r.fail(off, "raw code", fmt.Errorf("%w: depth %d", ErrDepthExceeded, depth))
	}

	typeLen, err := r.s.ReadUint()
	if err != nil {
		return nil, r.fail(off, "raw code", err)
	}
	kind := CodeBytecode + CodeKind(typeLen&3)
	size := typeLen >> 2

	switch kind {
	case CodeBytecode:
	case CodeNativePy, CodeNativeViper, CodeNativeAsm:
		return nil, r.fail(off, "raw code", fmt.Errorf("%w: %s", ErrUnsupportedCodeKind, kind))
	default:
		return nil, r.fail(off, "raw code", fmt.Errorf("%w: %d", ErrUnsupportedCodeKind, int(kind)))
	}
	if size > uint64(r.opts.maxCodeSize()) {
		return nil, r.fail(off, "raw code", fmt.Errorf("%w: code of %d bytes", ErrLimitExceeded, size))
	}

	rc := &RawCode{Kind: kind, Offset: off, scan: r.scan}
	buf := &codeBuf{buf: make([]byte, size)}

	if err := r.readPrelude(rc, buf); err != nil {
		return nil, err
	}
	if err := r.readBytecode(rc, buf); err != nil {
		return nil, err
	}
	rc.Code = buf.buf

	if rc.SimpleName, err = bytecode.UnpackQstr(rc.Code, rc.Prelude.SimpleNameOffset()); err != nil {
		return nil, r.fail(off, "raw code", err)
	}
	if rc.SourceFile, err = bytecode.UnpackQstr(rc.Code, rc.Prelude.SourceFileOffset()); err != nil {
		return nil, r.fail(off, "raw code", err)
	}

	nObj, err := r.readCount("constant count")
	if err != nil {
		return nil, err
	}
	nChild, err := r.readCount("child count")
	if err != nil {
		return nil, err
	}

	nArgs := rc.Prelude.NArgs()
	if nArgs < 0 || nArgs > r.opts.maxCount() {
		return nil, r.fail(off, "argument names", fmt.Errorf("%w: %d arguments", ErrLimitExceeded, nArgs))
	}
	for i := 0; i < nArgs; i++ {
		id, err := r.readQstr()
		if err != nil {
			return nil, r.fail(off, "argument name", err)
		}
		rc.ArgNames = append(rc.ArgNames, id)
	}

	rc.Consts = make([]Const, 0, min(nObj, 64))
	for i := 0; i < nObj; i++ {
		cOff := r.s.Position()
		c, err := readObj(r.s)
		if err != nil {
			return nil, r.fail(cOff, "constant", err)
		}
		rc.Consts = append(rc.Consts, c)
	}

	rc.Children = make([]*RawCode, 0, min(nChild, 64))
	for i := 0; i < nChild; i++ {
		child, err := r.readRawCode(depth + 1)
		if err != nil {
			return nil, err
		}
		rc.Children = append(rc.Children, child)
	}
	return rc, nil
}
