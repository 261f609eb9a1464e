// Package mpy decodes compiled MicroPython .mpy files into a tree of raw code objects.
package mpy

import (
	"errors"
	"fmt"
)

// Magic is the first byte of every .mpy file.
const Magic = 'M'

// Version is the .mpy format version byte.
type Version uint8

// SupportedVersion is the only layout this package decodes
// (MicroPython v1.12 through v1.18).
const SupportedVersion Version = 5

// HeaderSize is the length of the fixed header.
const HeaderSize = 4

// Header holds the fixed 4-byte .mpy header.
// Layout:
//
//	+0: magic        'M'
//	+1: version      format version
//	+2: features     bit 0 cache-map-lookup, bit 1 str-unicode, bits 2-7 native arch
//	+3: small int    bits in a small int
type Header struct {
	Version      Version `json:"version" cbor:"version"`
	Features     uint8   `json:"features" cbor:"features"`
	SmallIntBits uint8   `json:"small_int_bits" cbor:"small_int_bits"`
}

// Feature bits in Header.Features for version 5.
const (
	FeatureCacheMapLookup = 1 << 0
	FeatureStrUnicode     = 1 << 1
	featureArchShift      = 2
)

// NativeArch names the machine-code architecture a file targets.
type NativeArch uint8

const (
	ArchNone NativeArch = iota
	ArchX86
	ArchX64
	ArchARMv6
	ArchARMv6M
	ArchARMv7M
	ArchARMv7EM
	ArchARMv7EMSP
	ArchARMv7EMDP
	ArchXtensa
	ArchXtensaWin
)

var archNames = [...]string{
	ArchNone:      "none",
	ArchX86:       "x86",
	ArchX64:       "x64",
	ArchARMv6:     "armv6",
	ArchARMv6M:    "armv6m",
	ArchARMv7M:    "armv7m",
	ArchARMv7EM:   "armv7em",
	ArchARMv7EMSP: "armv7emsp",
	ArchARMv7EMDP: "armv7emdp",
	ArchXtensa:    "xtensa",
	ArchXtensaWin: "xtensawin",
}

func (a NativeArch) String() string {
	if int(a) < len(archNames) {
		return archNames[a]
	}
	return fmt.Sprintf("NativeArch(%d)", uint8(a))
}

// ParseHeader extracts the fixed header from the first 4 bytes of data.
// Only the magic is validated here; version support is checked by the Reader.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < 1 {
		return nil, errors.New("mpy: header too short")
	}
	if data[0] != Magic {
		return nil, fmt.Errorf("%w: 0x%02x (want 0x%02x)", ErrMagicMismatch, data[0], Magic)
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("mpy: header too short (%d < %d): %w", len(data), HeaderSize, ErrTruncatedInput)
	}
	return &Header{
		Version:      Version(data[1]),
		Features:     data[2],
		SmallIntBits: data[3],
	}, nil
}

// Supported reports whether the version's layout is implemented.
func (h *Header) Supported() bool { return h.Version == SupportedVersion }

// CacheMapLookup reports whether LOAD_NAME/LOAD_GLOBAL/LOAD_ATTR/STORE_ATTR
// carry an inline cache byte.
func (h *Header) CacheMapLookup() bool { return h.Features&FeatureCacheMapLookup != 0 }

// StrUnicode reports whether the firmware was built with unicode strings.
func (h *Header) StrUnicode() bool { return h.Features&FeatureStrUnicode != 0 }

// Arch returns the native architecture recorded in the feature byte.
func (h *Header) Arch() NativeArch { return NativeArch(h.Features >> featureArchShift) }
