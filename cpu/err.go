package cpu

import (
	"errors"

	"github.com/JamalLyons/Rustbucket/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrInvalidRegister    = errors.New(f("invalid register"))
	ErrInvalidAddress     = errors.New(f("invalid address"))
	ErrStackOverflow      = errors.New(f("stack overflow"))
	ErrStackUnderflow     = errors.New(f("stack underflow"))
	ErrCallStackOverflow  = errors.New(f("call stack overflow"))
	ErrCallStackUnderflow = errors.New(f("call stack underflow"))
	ErrDivisionByZero     = errors.New(f("division by zero"))
	ErrOutput             = errors.New(f("output failed"))

	// Configuration errors
	ErrConfig    = errors.New(f("invalid configuration"))
	ErrImageSize = errors.New(f("image larger than memory"))

	// Assembler errors
	ErrTokenInvalid       = errors.New(f("token invalid"))
	ErrOperandOverflow    = errors.New(f("operand overflow"))
	ErrOperandKind        = errors.New(f("operand kind"))
	ErrOperandCount       = errors.New(f("operand count"))
	ErrOperandSyntax      = errors.New(f("operand syntax"))
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelSyntax        = errors.New(f("label syntax"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrUnknownOpcode is the execution of a byte outside of the instruction set.
type ErrUnknownOpcode byte

func (eo ErrUnknownOpcode) Error() string {
	return f("unknown opcode 0x%02x", byte(eo))
}

// Is matches any ErrUnknownOpcode.
func (eo ErrUnknownOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrUnknownOpcode)
	return
}

// ErrFault locates a runtime error at the instruction that raised it.
// Instruction is nil when the instruction could not be fetched.
type ErrFault struct {
	Ip          uint32
	Instruction *Instruction
	Err         error
}

func (err *ErrFault) Error() string {
	if err.Instruction == nil {
		return f("ip 0x%04x %v", err.Ip, err.Err)
	}
	return f("ip 0x%04x '%v' %v", err.Ip, err.Instruction.String(), err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}

// ErrUnresolvedLabel is a reference to a label that was never defined.
type ErrUnresolvedLabel string

func (el ErrUnresolvedLabel) Error() string {
	return f("label %v missing", string(el))
}

// ErrSyntax locates an assembler error at a source line.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
