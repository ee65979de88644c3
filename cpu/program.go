package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and
// generated instruction.
type Opcode struct {
	LineNo      int
	Ip          int
	Words       []string
	Instruction Instruction
	LinkLabel   string // Label resolved into the address operand, if any.
}

// Size is the number of bytes the line assembles to.
func (op *Opcode) Size() int {
	return op.Instruction.Format().Size()
}

// Program is an assembled listing.
type Program struct {
	Opcodes []Opcode
	Labels  map[string]int // Byte offsets of the labels.
}

// Debug locates a memory address within a Program.
type Debug struct {
	*Opcode
	Index int // Byte offset of the address within the instruction.
}

// Debug finds the line assembled at ip. Opcode is nil when ip is not
// inside any instruction.
func (prog *Program) Debug(ip int) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if ip >= op.Ip && ip < op.Ip+op.Size() {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  ip - op.Ip,
			}
			break
		}
	}

	return
}

// Size returns the number of bytes in the program binary.
func (prog *Program) Size() (size int) {
	if len(prog.Opcodes) == 0 {
		return
	}

	last := &prog.Opcodes[len(prog.Opcodes)-1]
	size = last.Ip + last.Size()
	return
}

// Binary returns the memory image of the program.
func (prog *Program) Binary() (bins []byte) {
	bins = make([]byte, 0, prog.Size())
	for _, insn := range prog.Codes() {
		bins = append(bins, insn.Bytes()...)
	}

	return
}

// Codes iterates over the instructions of the program, by address.
func (prog *Program) Codes() iter.Seq2[int, Instruction] {
	return func(yield func(ip int, insn Instruction) bool) {
		for _, op := range prog.Opcodes {
			if !yield(op.Ip, op.Instruction) {
				return
			}
		}
	}
}
