// Package bcfile provides helpers for loading stack-VM bytecode files,
// locating their regions, and bounds-checked access to code bytes and
// string-table entries.
package bcfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// headerSize is the fixed prefix of every bytecode file: three
// little-endian uint32 fields.
const headerSize = 12

// publicSymbolSize is the on-disk size of one public-symbol index entry.
const publicSymbolSize = 8

var (
	ErrTruncatedHeader         = errors.New("truncated header: need 12 bytes")
	ErrInvalidMetadata         = errors.New("invalid metadata: declared region exceeds file")
	ErrUnterminatedStringTable = errors.New("last string in table is not null-terminated")
	ErrUnexpectedEOF           = errors.New("unexpected end of code region")
	ErrStringOutOfBounds       = errors.New("string virtual address out of bounds")
)

// File is an in-memory bytecode container. It owns the raw bytes that
// follow the header and exposes the three derived regions: the
// public-symbol index, the string table, and the code region.
// A File is immutable after Load.
type File struct {
	Path string

	StringtabSize    uint32
	GlobalAreaSize   uint32
	PublicSymbolsNum uint32

	raw            []byte
	stringtabStart int
	codeStart      int
}

// PublicSymbol is one entry of the public-symbol index: a name offset
// into the string table and the symbol's code address.
type PublicSymbol struct {
	NameOffset uint32
	Address    uint32
}

// Load parses a bytecode image from data. It validates the header and
// the declared region boundaries but does not touch the code region
// beyond checking it is non-empty.
func Load(data []byte) (*File, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w, have %d", ErrTruncatedHeader, len(data))
	}

	f := &File{
		StringtabSize:    binary.LittleEndian.Uint32(data[0:4]),
		GlobalAreaSize:   binary.LittleEndian.Uint32(data[4:8]),
		PublicSymbolsNum: binary.LittleEndian.Uint32(data[8:12]),
		raw:              data[headerSize:],
	}
	f.stringtabStart = publicSymbolSize * int(f.PublicSymbolsNum)
	f.codeStart = f.stringtabStart + int(f.StringtabSize)

	if f.stringtabStart >= len(f.raw) {
		return nil, fmt.Errorf("%w: public_symbols_number=%d", ErrInvalidMetadata, f.PublicSymbolsNum)
	}
	if f.codeStart >= len(f.raw) {
		return nil, fmt.Errorf("%w: stringtab_size=%d", ErrInvalidMetadata, f.StringtabSize)
	}
	if f.StringtabSize != 0 && f.raw[f.codeStart-1] != 0 {
		return nil, ErrUnterminatedStringTable
	}
	return f, nil
}

// Open reads path into memory and loads it as a bytecode file.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bytecode file: %w", err)
	}
	f, err := Load(data)
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

// CodeSize returns the length of the code region in bytes.
func (f *File) CodeSize() int {
	return len(f.raw) - f.codeStart
}

// CodeByte returns the code byte at the code-region-relative offset.
func (f *File) CodeByte(off int) (byte, error) {
	if off < 0 || off >= f.CodeSize() {
		return 0, fmt.Errorf("%w at offset %#x", ErrUnexpectedEOF, off)
	}
	return f.raw[f.codeStart+off], nil
}

// CodeInt32 reads a little-endian int32 from the code region.
func (f *File) CodeInt32(off int) (int32, error) {
	if off < 0 || off+4 > f.CodeSize() {
		return 0, fmt.Errorf("%w at offset %#x", ErrUnexpectedEOF, off)
	}
	return int32(binary.LittleEndian.Uint32(f.raw[f.codeStart+off:])), nil
}

// LookupString resolves a string-table offset to its NUL-terminated
// text. The offset is only checked against the table bounds, not
// against string starts: a mid-string offset reads through to that
// string's terminator. This mirrors the table's free-form addressing.
func (f *File) LookupString(off uint32) (string, error) {
	if off >= f.StringtabSize {
		return "", fmt.Errorf("%w: %d >= %d", ErrStringOutOfBounds, off, f.StringtabSize)
	}
	start := f.stringtabStart + int(off)
	end := start
	for end < f.codeStart && f.raw[end] != 0 {
		end++
	}
	return string(f.raw[start:end]), nil
}

// PublicSymbols decodes the public-symbol index region. Symbol names
// are left unresolved; use LookupString on NameOffset.
func (f *File) PublicSymbols() []PublicSymbol {
	syms := make([]PublicSymbol, 0, f.PublicSymbolsNum)
	for i := 0; i < int(f.PublicSymbolsNum); i++ {
		off := i * publicSymbolSize
		syms = append(syms, PublicSymbol{
			NameOffset: binary.LittleEndian.Uint32(f.raw[off:]),
			Address:    binary.LittleEndian.Uint32(f.raw[off+4:]),
		})
	}
	return syms
}
