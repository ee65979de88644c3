// Package cpu implements the microprocessor and assembler for the Rustbucket
// virtual machine.
//
// The CPU has a configurable bank of 8-bit registers (register 1 doubles as
// the index register for indexed memory access), a flat 8-bit memory shared
// by program and data, a bounded operand stack, a separate bounded call
// stack, and the Zero and Greater flags written by cmp. Every instruction is
// a single opcode byte followed by zero, one or two operand bytes; an
// instruction either completes or leaves the machine untouched.
//
// The assembler translates mnemonic source into that encoding in two passes,
// supporting labels, equates, character literals and compile-time $(...)
// expression evaluation.
package cpu
