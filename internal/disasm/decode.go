package disasm

import (
	"errors"
	"fmt"
	"strings"

	"bcstat/internal/bcfile"
)

// ErrInvalidOpcode is reported when an opcode byte's class/sub-operation
// combination is not part of the instruction set.
var ErrInvalidOpcode = errors.New("invalid opcode")

// Instruction classes, the high nibble of the opcode byte.
const (
	classBinop    = 0x0
	classBasic    = 0x1
	classLoad     = 0x2
	classLoadAddr = 0x3
	classStore    = 0x4
	classControl  = 0x5
	classPattern  = 0x6
	classBuiltin  = 0x7
	classHalt     = 0xF
)

const haltMnemonic = "<end>"

var binops = [...]string{"+", "-", "*", "/", "%", "<", "<=", ">", ">=", "==", "!=", "&&", "!!"}

var memoryOps = [...]string{"LD", "LDA", "ST"}

var patterns = [...]string{"=str", "#string", "#array", "#sexp", "#ref", "#val", "#fun"}

// spaceKinds names the four variable storage spaces:
// global, local, argument, closure capture.
var spaceKinds = [...]string{"G", "L", "A", "C"}

// Decode decodes the instruction starting at the code-region offset off.
// Every operand read is bounds-checked through the container, so on
// success all bytes in [off, off+Size) lie within the code region. For
// the closure opcode the capture count is read before the total length
// is trusted; a truncated capture list fails with ErrUnexpectedEOF
// rather than a partial decode.
func Decode(f *bcfile.File, off int) (Inst, error) {
	code, err := f.CodeByte(off)
	if err != nil {
		return Inst{}, err
	}
	hi := code >> 4 & 0xF
	lo := code & 0xF

	switch hi {
	case classHalt:
		return inst(off, 1, haltMnemonic), nil

	case classBinop:
		if lo == 0 || int(lo) > len(binops) {
			return Inst{}, invalidOpcode(code, off)
		}
		return inst(off, 1, "BINOP", binops[lo-1]), nil

	case classBasic:
		return decodeBasic(f, off, code, lo)

	case classLoad, classLoadAddr, classStore:
		if lo > 3 {
			return Inst{}, invalidOpcode(code, off)
		}
		v, err := f.CodeInt32(off + 1)
		if err != nil {
			return Inst{}, err
		}
		return inst(off, 5, memoryOps[hi-classLoad], fmt.Sprintf("%s(%d)", spaceKinds[lo], v)), nil

	case classControl:
		return decodeControl(f, off, code, lo)

	case classPattern:
		if int(lo) >= len(patterns) {
			return Inst{}, invalidOpcode(code, off)
		}
		return inst(off, 1, "PATT", patterns[lo]), nil

	case classBuiltin:
		switch lo {
		case 0:
			return inst(off, 1, "CALL", "Lread"), nil
		case 1:
			return inst(off, 1, "CALL", "Lwrite"), nil
		case 2:
			return inst(off, 1, "CALL", "Llength"), nil
		case 3:
			return inst(off, 1, "CALL", "Lstring"), nil
		case 4:
			v, err := f.CodeInt32(off + 1)
			if err != nil {
				return Inst{}, err
			}
			return inst(off, 5, "CALL", fmt.Sprintf("Barray %d", v)), nil
		}
		return Inst{}, invalidOpcode(code, off)
	}
	return Inst{}, invalidOpcode(code, off)
}

// decodeBasic handles class 0x1: constants, s-expressions, stores,
// the unconditional jump, and the 1-byte stack operations.
func decodeBasic(f *bcfile.File, off int, code, lo byte) (Inst, error) {
	switch lo {
	case 0, 1:
		v, err := f.CodeInt32(off + 1)
		if err != nil {
			return Inst{}, err
		}
		if lo == 0 {
			return inst(off, 5, "CONST", fmt.Sprintf("%d", v)), nil
		}
		// STRING renders the raw table offset, not the resolved text.
		return inst(off, 5, "STRING", fmt.Sprintf("%d", v)), nil
	case 2:
		tag, arity, err := strIntOperands(f, off)
		if err != nil {
			return Inst{}, err
		}
		return inst(off, 9, "SEXP", fmt.Sprintf("%s %d", tag, arity)), nil
	case 3:
		return inst(off, 1, "STI"), nil
	case 4:
		return inst(off, 1, "STA"), nil
	case 5:
		v, err := f.CodeInt32(off + 1)
		if err != nil {
			return Inst{}, err
		}
		return inst(off, 5, "JMP", fmt.Sprintf("0x%08x", uint32(v))), nil
	case 6:
		return inst(off, 1, "END"), nil
	case 7:
		return inst(off, 1, "RET"), nil
	case 8:
		return inst(off, 1, "DROP"), nil
	case 9:
		return inst(off, 1, "DUP"), nil
	case 10:
		return inst(off, 1, "SWAP"), nil
	case 11:
		return inst(off, 1, "ELEM"), nil
	}
	return Inst{}, invalidOpcode(code, off)
}

// decodeControl handles class 0x5: conditional jumps, frames, closures,
// calls, and the remaining 5- and 9-byte instructions.
func decodeControl(f *bcfile.File, off int, code, lo byte) (Inst, error) {
	switch lo {
	case 0, 1:
		v, err := f.CodeInt32(off + 1)
		if err != nil {
			return Inst{}, err
		}
		op := "CJMPz"
		if lo == 1 {
			op = "CJMPnz"
		}
		return inst(off, 5, op, fmt.Sprintf("0x%08x", uint32(v))), nil
	case 2, 3:
		a, b, err := intIntOperands(f, off)
		if err != nil {
			return Inst{}, err
		}
		op := "BEGIN"
		if lo == 3 {
			op = "CBEGIN"
		}
		return inst(off, 9, op, fmt.Sprintf("%d %d", a, b)), nil
	case 4:
		return decodeClosure(f, off)
	case 5:
		v, err := f.CodeInt32(off + 1)
		if err != nil {
			return Inst{}, err
		}
		return inst(off, 5, "CALLC", fmt.Sprintf("%d", v)), nil
	case 6:
		addr, nargs, err := intIntOperands(f, off)
		if err != nil {
			return Inst{}, err
		}
		return inst(off, 9, "CALL", fmt.Sprintf("0x%08x %d", uint32(addr), nargs)), nil
	case 7:
		tag, arity, err := strIntOperands(f, off)
		if err != nil {
			return Inst{}, err
		}
		return inst(off, 9, "TAG", fmt.Sprintf("%s %d", tag, arity)), nil
	case 8:
		v, err := f.CodeInt32(off + 1)
		if err != nil {
			return Inst{}, err
		}
		return inst(off, 5, "ARRAY", fmt.Sprintf("%d", v)), nil
	case 9:
		line, col, err := intIntOperands(f, off)
		if err != nil {
			return Inst{}, err
		}
		return inst(off, 9, "FAIL", fmt.Sprintf("%d %d", line, col)), nil
	case 10:
		v, err := f.CodeInt32(off + 1)
		if err != nil {
			return Inst{}, err
		}
		return inst(off, 5, "LINE", fmt.Sprintf("%d", v)), nil
	}
	return Inst{}, invalidOpcode(code, off)
}

// decodeClosure decodes the only self-describing-length instruction.
// The fixed 9-byte prefix carries the target address and the capture
// count; the derived total length is checked against the code region
// before any capture entry is read.
func decodeClosure(f *bcfile.File, off int) (Inst, error) {
	addr, err := f.CodeInt32(off + 1)
	if err != nil {
		return Inst{}, err
	}
	n, err := f.CodeInt32(off + 5)
	if err != nil {
		return Inst{}, err
	}
	if n < 0 {
		return Inst{}, fmt.Errorf("%w: closure capture count %d at offset %#x", ErrInvalidOpcode, n, off)
	}
	size := 9 + 5*int(n)
	if off+size > f.CodeSize() {
		return Inst{}, fmt.Errorf("%w at offset %#x", bcfile.ErrUnexpectedEOF, off)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "CLOSURE 0x%08x", uint32(addr))
	for i := 0; i < int(n); i++ {
		kind, err := f.CodeByte(off + 9 + 5*i)
		if err != nil {
			return Inst{}, err
		}
		if int(kind) >= len(spaceKinds) {
			return Inst{}, fmt.Errorf("%w: closure capture kind %#02x at offset %#x", ErrInvalidOpcode, kind, off+9+5*i)
		}
		idx, err := f.CodeInt32(off + 10 + 5*i)
		if err != nil {
			return Inst{}, err
		}
		fmt.Fprintf(&sb, " %s(%d)", spaceKinds[kind], idx)
	}
	return Inst{Off: off, Size: size, Op: "CLOSURE", Text: sb.String()}, nil
}

// strIntOperands reads a string-table reference and an int32, the
// operand layout shared by SEXP and TAG.
func strIntOperands(f *bcfile.File, off int) (string, int32, error) {
	strOff, err := f.CodeInt32(off + 1)
	if err != nil {
		return "", 0, err
	}
	s, err := f.LookupString(uint32(strOff))
	if err != nil {
		return "", 0, err
	}
	v, err := f.CodeInt32(off + 5)
	if err != nil {
		return "", 0, err
	}
	return s, v, nil
}

// intIntOperands reads the two-int32 operand layout shared by BEGIN,
// CBEGIN, CALL and FAIL.
func intIntOperands(f *bcfile.File, off int) (int32, int32, error) {
	a, err := f.CodeInt32(off + 1)
	if err != nil {
		return 0, 0, err
	}
	b, err := f.CodeInt32(off + 5)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func inst(off, size int, op string, operands ...string) Inst {
	text := op
	if len(operands) > 0 {
		text += " " + strings.Join(operands, " ")
	}
	return Inst{Off: off, Size: size, Op: op, Text: text}
}

func invalidOpcode(code byte, off int) error {
	return fmt.Errorf("%w %#02x at offset %#x", ErrInvalidOpcode, code, off)
}
