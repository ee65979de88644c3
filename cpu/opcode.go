package cpu

import (
	"fmt"
	"iter"
	"strings"
)

// Code is the leading byte of an encoded instruction.
type Code byte

// Instruction codes.
const (
	OP_INC   = Code(0x01) // inc
	OP_DEC   = Code(0x02) // dec
	OP_OUT   = Code(0x03) // out
	OP_MOV   = Code(0x04) // mov
	OP_PUSH  = Code(0x10) // push
	OP_POP   = Code(0x11) // pop
	OP_CALL  = Code(0x12) // call
	OP_RET   = Code(0x13) // ret
	OP_LOAD  = Code(0x20) // load
	OP_STORE = Code(0x21) // store
	OP_LDIDX = Code(0x22) // ldidx
	OP_STIDX = Code(0x23) // stidx
	OP_ADD   = Code(0x30) // add
	OP_SUB   = Code(0x31) // sub
	OP_MUL   = Code(0x32) // mul
	OP_DIV   = Code(0x33) // div
	OP_JMP   = Code(0x40) // jmp
	OP_JEQ   = Code(0x41) // jeq
	OP_JGT   = Code(0x42) // jgt
	OP_CMP   = Code(0x43) // cmp
	OP_HALT  = Code(0xFF) // halt
)

// Role is the kind of value an operand byte carries.
type Role int

const (
	ROLE_REG  = Role(0) // reg
	ROLE_IMM  = Role(1) // imm
	ROLE_ADDR = Role(2) // addr
)

var roleNames = [...]string{
	ROLE_REG:  "reg",
	ROLE_IMM:  "imm",
	ROLE_ADDR: "addr",
}

func (role Role) String() string {
	if role < 0 || int(role) >= len(roleNames) {
		return fmt.Sprintf("Role(%d)", int(role))
	}
	return roleNames[role]
}

// Format is the encoding metadata of an instruction code.
type Format struct {
	Code     Code
	Mnemonic string // Empty for an unknown code.
	Roles    []Role // Operand roles, in encoding order.
}

var (
	regOnly  = []Role{ROLE_REG}
	addrOnly = []Role{ROLE_ADDR}
	regImm   = []Role{ROLE_REG, ROLE_IMM}
	regAddr  = []Role{ROLE_REG, ROLE_ADDR}
	regReg   = []Role{ROLE_REG, ROLE_REG}
)

// formatList is the instruction set, in table order.
var formatList = []Format{
	{OP_INC, "inc", regOnly},
	{OP_DEC, "dec", regOnly},
	{OP_OUT, "out", regOnly},
	{OP_MOV, "mov", regImm},
	{OP_PUSH, "push", regOnly},
	{OP_POP, "pop", regOnly},
	{OP_CALL, "call", addrOnly},
	{OP_RET, "ret", nil},
	{OP_LOAD, "load", regAddr},
	{OP_STORE, "store", regAddr},
	{OP_LDIDX, "ldidx", regAddr},
	{OP_STIDX, "stidx", regAddr},
	{OP_ADD, "add", regReg},
	{OP_SUB, "sub", regReg},
	{OP_MUL, "mul", regReg},
	{OP_DIV, "div", regReg},
	{OP_JMP, "jmp", addrOnly},
	{OP_JEQ, "jeq", addrOnly},
	{OP_JGT, "jgt", addrOnly},
	{OP_CMP, "cmp", regReg},
	{OP_HALT, "halt", nil},
}

var (
	formatByCode     [256]*Format
	formatByMnemonic = map[string]*Format{}
)

func init() {
	for n := range formatList {
		format := &formatList[n]
		formatByCode[format.Code] = format
		formatByMnemonic[format.Mnemonic] = format
	}
}

// Decode returns the format of an instruction byte. Bytes outside of the
// instruction set decode to an unknown format carrying the byte.
func Decode(b byte) (format Format) {
	known := formatByCode[b]
	if known == nil {
		format = Format{Code: Code(b)}
		return
	}

	format = *known
	return
}

// Lookup finds the format of a mnemonic, ignoring case.
func Lookup(mnemonic string) (format Format, ok bool) {
	known, ok := formatByMnemonic[strings.ToLower(mnemonic)]
	if ok {
		format = *known
	}
	return
}

// Formats iterates over the instruction set.
func Formats() iter.Seq[Format] {
	return func(yield func(Format) bool) {
		for _, format := range formatList {
			if !yield(format) {
				return
			}
		}
	}
}

// Unknown is true if the format does not describe a defined instruction.
func (format Format) Unknown() bool {
	return len(format.Mnemonic) == 0
}

// Size is the encoded length in bytes, opcode included.
func (format Format) Size() int {
	return 1 + len(format.Roles)
}

// String returns the mnemonic and operand roles.
func (format Format) String() string {
	if format.Unknown() {
		return fmt.Sprintf("unknown(0x%02x)", byte(format.Code))
	}
	if len(format.Roles) == 0 {
		return format.Mnemonic
	}
	roles := make([]string, len(format.Roles))
	for n, role := range format.Roles {
		roles[n] = role.String()
	}
	return format.Mnemonic + " " + strings.Join(roles, ", ")
}

// String returns the mnemonic of the code.
func (code Code) String() string {
	return Decode(byte(code)).String()
}

// Instruction is a fetched instruction with its operand bytes.
type Instruction struct {
	Code Code
	Args []uint8
}

// Format returns the encoding metadata of the instruction.
func (insn Instruction) Format() Format {
	return Decode(byte(insn.Code))
}

// Bytes returns the encoded instruction.
func (insn Instruction) Bytes() (data []byte) {
	data = append(data, byte(insn.Code))
	data = append(data, insn.Args...)
	return
}

// String returns the assembly language representation of the instruction.
func (insn Instruction) String() string {
	format := insn.Format()
	if format.Unknown() {
		return format.String()
	}

	args := make([]string, len(insn.Args))
	for n, arg := range insn.Args {
		role := ROLE_IMM
		if n < len(format.Roles) {
			role = format.Roles[n]
		}
		switch role {
		case ROLE_REG:
			args[n] = fmt.Sprintf("r%d", arg)
		case ROLE_ADDR:
			args[n] = fmt.Sprintf("0x%02x", arg)
		default:
			args[n] = fmt.Sprintf("%d", arg)
		}
	}

	if len(args) == 0 {
		return format.Mnemonic
	}
	return format.Mnemonic + " " + strings.Join(args, ", ")
}
