package bcfile

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildImage assembles a bytecode file: 12-byte header, public-symbol
// index, string table, code region.
func buildImage(syms []PublicSymbol, stringtab, code []byte) []byte {
	buf := make([]byte, 0, 12+8*len(syms)+len(stringtab)+len(code))
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], uint32(len(stringtab)))
	buf = append(buf, word[:]...)
	binary.LittleEndian.PutUint32(word[:], 0) // global area size, unused here
	buf = append(buf, word[:]...)
	binary.LittleEndian.PutUint32(word[:], uint32(len(syms)))
	buf = append(buf, word[:]...)
	for _, s := range syms {
		binary.LittleEndian.PutUint32(word[:], s.NameOffset)
		buf = append(buf, word[:]...)
		binary.LittleEndian.PutUint32(word[:], s.Address)
		buf = append(buf, word[:]...)
	}
	buf = append(buf, stringtab...)
	buf = append(buf, code...)
	return buf
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "empty input",
			data:    nil,
			wantErr: ErrTruncatedHeader,
		},
		{
			name:    "eleven header bytes",
			data:    make([]byte, 11),
			wantErr: ErrTruncatedHeader,
		},
		{
			name: "minimal valid file",
			data: buildImage(nil, nil, []byte{0xF0}),
		},
		{
			name: "string table and symbols",
			data: buildImage(
				[]PublicSymbol{{NameOffset: 0, Address: 2}},
				[]byte("main\x00"),
				[]byte{0x01, 0xF0},
			),
		},
		{
			name: "symbol count past end of file",
			data: func() []byte {
				img := buildImage(nil, nil, []byte{0xF0})
				binary.LittleEndian.PutUint32(img[8:12], 1000)
				return img
			}(),
			wantErr: ErrInvalidMetadata,
		},
		{
			name: "string table swallows the code region",
			data: func() []byte {
				img := buildImage(nil, []byte("a\x00"), []byte{0xF0})
				binary.LittleEndian.PutUint32(img[0:4], 3)
				return img
			}(),
			wantErr: ErrInvalidMetadata,
		},
		{
			name:    "string table missing terminator",
			data:    buildImage(nil, []byte("oops"), []byte{0xF0}),
			wantErr: ErrUnterminatedStringTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Load(tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if f.CodeSize() <= 0 {
				t.Errorf("CodeSize() = %d, want > 0", f.CodeSize())
			}
		})
	}
}

func TestCodeAccessors(t *testing.T) {
	f, err := Load(buildImage(nil, nil, []byte{0x10, 0x05, 0x00, 0x00, 0x00, 0xF0}))
	if err != nil {
		t.Fatal(err)
	}

	if got := f.CodeSize(); got != 6 {
		t.Fatalf("CodeSize() = %d, want 6", got)
	}

	b, err := f.CodeByte(0)
	if err != nil || b != 0x10 {
		t.Errorf("CodeByte(0) = %#x, %v; want 0x10, nil", b, err)
	}
	if _, err := f.CodeByte(6); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("CodeByte(6) error = %v, want ErrUnexpectedEOF", err)
	}
	if _, err := f.CodeByte(-1); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("CodeByte(-1) error = %v, want ErrUnexpectedEOF", err)
	}

	v, err := f.CodeInt32(1)
	if err != nil || v != 5 {
		t.Errorf("CodeInt32(1) = %d, %v; want 5, nil", v, err)
	}
	// The 4-byte window must fit entirely.
	if _, err := f.CodeInt32(3); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("CodeInt32(3) error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestLookupString(t *testing.T) {
	f, err := Load(buildImage(nil, []byte("foo\x00bar\x00"), []byte{0xF0}))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		off     uint32
		want    string
		wantErr error
	}{
		{name: "first string", off: 0, want: "foo"},
		{name: "second string", off: 4, want: "bar"},
		{name: "mid-string offset reads through", off: 1, want: "oo"},
		{name: "offset at table size", off: 8, wantErr: ErrStringOutOfBounds},
		{name: "offset past table", off: 100, wantErr: ErrStringOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.LookupString(tt.off)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("LookupString(%d) error = %v, want %v", tt.off, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LookupString(%d) unexpected error: %v", tt.off, err)
			}
			if got != tt.want {
				t.Errorf("LookupString(%d) = %q, want %q", tt.off, got, tt.want)
			}
		})
	}
}

func TestPublicSymbols(t *testing.T) {
	syms := []PublicSymbol{
		{NameOffset: 0, Address: 0x10},
		{NameOffset: 5, Address: 0x2c},
	}
	f, err := Load(buildImage(syms, []byte("main\x00init\x00"), []byte{0xF0}))
	if err != nil {
		t.Fatal(err)
	}

	got := f.PublicSymbols()
	if len(got) != 2 {
		t.Fatalf("PublicSymbols() returned %d entries, want 2", len(got))
	}
	for i := range syms {
		if got[i] != syms[i] {
			t.Errorf("symbol %d = %+v, want %+v", i, got[i], syms[i])
		}
	}

	name, err := f.LookupString(got[1].NameOffset)
	if err != nil || name != "init" {
		t.Errorf("LookupString(%d) = %q, %v; want \"init\", nil", got[1].NameOffset, name, err)
	}
}
