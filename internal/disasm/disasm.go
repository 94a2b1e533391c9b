// Package disasm decodes variable-length stack-VM instructions and
// renders them into their canonical textual form.
package disasm

// Inst is a single decoded instruction.
//
// Text is the canonical rendering: it is both the display form and the
// identity key used when aggregating instruction frequencies, so two
// instructions are the same iff their Text is byte-identical.
type Inst struct {
	Off  int    // byte offset within the code region
	Size int    // encoded size in bytes, including the opcode byte
	Op   string // leading mnemonic token
	Text string // canonical disassembly string
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// IsHalt reports whether the instruction is the terminal halt marker.
func (in Inst) IsHalt() bool {
	return in.Op == haltMnemonic
}
