package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/JamalLyons/Rustbucket/io"
)

// INDEX_REGISTER is the register added to the base of indexed memory accesses.
const INDEX_REGISTER = 1

// State is the run state of a Cpu.
type State int

const (
	STATE_RUNNING = State(0) // running
	STATE_HALTED  = State(1) // halted
	STATE_ERRORED = State(2) // errored
)

func (state State) String() string {
	switch state {
	case STATE_RUNNING:
		return "running"
	case STATE_HALTED:
		return "halted"
	case STATE_ERRORED:
		return "errored"
	}
	return fmt.Sprintf("State(%d)", int(state))
}

// Cpu is the execution engine: registers, memory, stacks and flags of one
// run of one program.
type Cpu struct {
	Verbose bool         // Set to enable per-instruction tracing.
	Logger  *slog.Logger // Destination of traces, slog.Default() if nil.

	Ip        uint32        // Address of the next opcode byte.
	Register  []uint8       // Register bank.
	Memory    []uint8       // Program and data.
	Stack     Stack[uint8]  // Operand stack.
	CallStack Stack[uint32] // Return addresses.
	Zero      bool          // Set by cmp when the operands were equal.
	Greater   bool          // Set by cmp when the first operand was greater.

	State State // Current run state.
	Err   error // Error that stopped the Cpu, if errored.
	Ticks int   // Instructions executed.

	config Config
	output io.Channel
}

// NewCpu creates a Cpu in the running state, with the image copied to the
// start of memory.
func NewCpu(config Config, image []byte) (cpu *Cpu, err error) {
	err = config.Validate()
	if err != nil {
		return
	}

	if len(image) > config.MemorySize {
		err = fmt.Errorf("%w: %d > %d", ErrImageSize, len(image), config.MemorySize)
		return
	}

	cpu = &Cpu{
		Ip:        uint32(config.EntryPoint),
		Register:  make([]uint8, config.Registers),
		Memory:    make([]uint8, config.MemorySize),
		Stack:     Stack[uint8]{Limit: config.StackCapacity},
		CallStack: Stack[uint32]{Limit: config.CallStackCapacity},
		config:    config,
		output:    &io.Tape{Output: os.Stdout},
	}
	copy(cpu.Memory, image)

	return
}

// Config returns the configuration the Cpu was built from.
func (cpu *Cpu) Config() Config {
	return cpu.config
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return cpu.config.Defines()
}

// SetOutput sets the channel written by the out instruction.
func (cpu *Cpu) SetOutput(channel io.Channel) {
	cpu.output = channel
}

// Output returns the channel written by the out instruction.
func (cpu *Cpu) Output() io.Channel {
	return cpu.output
}

func (cpu *Cpu) log() *slog.Logger {
	if cpu.Logger == nil {
		return slog.Default()
	}
	return cpu.Logger
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%7s: %04X\n", "ip", cpu.Ip)
	fmt.Fprintf(&sb, "%7s: %v\n", "state", cpu.State)
	fmt.Fprintf(&sb, "%7s: zero=%v greater=%v\n", "flags", cpu.Zero, cpu.Greater)
	for n, val := range cpu.Register {
		fmt.Fprintf(&sb, "%7s: %02X\n", fmt.Sprintf("r%d", n), val)
	}
	if val, ok := cpu.Stack.Peek(); ok {
		fmt.Fprintf(&sb, "%7s: %02X (%d/%d)\n", "stack", val, cpu.Stack.Len(), cpu.Stack.Limit)
	} else {
		fmt.Fprintf(&sb, "%7s: -- (0/%d)\n", "stack", cpu.Stack.Limit)
	}
	if val, ok := cpu.CallStack.Peek(); ok {
		fmt.Fprintf(&sb, "%7s: %04X (%d/%d)\n", "call", val, cpu.CallStack.Len(), cpu.CallStack.Limit)
	} else {
		fmt.Fprintf(&sb, "%7s: ---- (0/%d)\n", "call", cpu.CallStack.Limit)
	}

	text = sb.String()
	return
}

// Fetch reads the instruction at Ip, and the operand bytes its format
// requires. Ip is not advanced.
func (cpu *Cpu) Fetch() (insn Instruction, err error) {
	ip := int(cpu.Ip)
	if ip >= len(cpu.Memory) {
		err = ErrInvalidAddress
		return
	}

	format := Decode(cpu.Memory[ip])
	insn.Code = format.Code

	end := ip + format.Size()
	if end > len(cpu.Memory) {
		err = ErrInvalidAddress
		return
	}
	if end > ip+1 {
		insn.Args = slices.Clone(cpu.Memory[ip+1 : end])
	}

	return
}

// Step fetches and executes a single instruction. done is set once the Cpu
// has halted or errored; a Cpu that is done stays done.
func (cpu *Cpu) Step() (done bool, err error) {
	switch cpu.State {
	case STATE_HALTED:
		done = true
		return
	case STATE_ERRORED:
		done = true
		err = cpu.Err
		return
	}

	ip := cpu.Ip

	var fault *Instruction
	insn, err := cpu.Fetch()
	if err == nil {
		fault = &insn
		if cpu.Verbose {
			cpu.log().Debug("cpu: exec", "ip", fmt.Sprintf("%04x", ip), "insn", insn.String())
		}
		done, err = cpu.Execute(insn)
	}

	if err != nil {
		err = &ErrFault{Ip: ip, Instruction: fault, Err: err}
		cpu.State = STATE_ERRORED
		cpu.Err = err
		done = true
		if cpu.Verbose {
			cpu.log().Debug("cpu: fault", "error", err)
		}
		return
	}

	if done {
		cpu.State = STATE_HALTED
		if cpu.Verbose {
			cpu.log().Debug("cpu: halt", "ip", fmt.Sprintf("%04x", ip), "ticks", cpu.Ticks)
		}
	}

	return
}

// Run steps the Cpu until it halts or errors. A nil error means halted.
func (cpu *Cpu) Run() (err error) {
	for {
		var done bool
		done, err = cpu.Step()
		if done {
			return
		}
	}
}

// checkOperands validates every register and address operand of an
// instruction, before any state is changed.
func (cpu *Cpu) checkOperands(format Format, args []uint8) (err error) {
	if len(args) != len(format.Roles) {
		err = ErrOperandCount
		return
	}

	for n, role := range format.Roles {
		switch role {
		case ROLE_REG:
			if int(args[n]) >= len(cpu.Register) {
				err = ErrInvalidRegister
				return
			}
		case ROLE_ADDR:
			if int(args[n]) >= len(cpu.Memory) {
				err = ErrInvalidAddress
				return
			}
		}
	}

	return
}

// indexed returns the effective address of an indexed access.
func (cpu *Cpu) indexed(base uint8) (addr int, err error) {
	addr = int(base) + int(cpu.Register[INDEX_REGISTER])
	if addr >= len(cpu.Memory) {
		err = ErrInvalidAddress
	}
	return
}

// Execute executes a single decoded instruction located at Ip. halted is set
// by the halt instruction. On error the Cpu state is left unchanged.
func (cpu *Cpu) Execute(insn Instruction) (halted bool, err error) {
	format := insn.Format()
	if format.Unknown() {
		err = ErrUnknownOpcode(insn.Code)
		return
	}

	err = cpu.checkOperands(format, insn.Args)
	if err != nil {
		return
	}

	next_ip := cpu.Ip + uint32(format.Size())

	var a, b uint8
	if len(insn.Args) > 0 {
		a = insn.Args[0]
	}
	if len(insn.Args) > 1 {
		b = insn.Args[1]
	}

	reg := cpu.Register

	switch insn.Code {
	case OP_INC:
		reg[a]++
	case OP_DEC:
		reg[a]--
	case OP_OUT:
		if cpu.output == nil {
			break
		}
		err = cpu.output.Send(reg[a])
		if err != nil {
			err = errors.Join(ErrOutput, err)
			return
		}
	case OP_MOV:
		reg[a] = b
	case OP_PUSH:
		if !cpu.Stack.Push(reg[a]) {
			err = ErrStackOverflow
			return
		}
	case OP_POP:
		value, ok := cpu.Stack.Pop()
		if !ok {
			err = ErrStackUnderflow
			return
		}
		reg[a] = value
	case OP_CALL:
		if !cpu.CallStack.Push(next_ip) {
			err = ErrCallStackOverflow
			return
		}
		next_ip = uint32(a)
	case OP_RET:
		ret, ok := cpu.CallStack.Pop()
		if !ok {
			err = ErrCallStackUnderflow
			return
		}
		next_ip = ret
	case OP_LOAD:
		reg[a] = cpu.Memory[b]
	case OP_STORE:
		cpu.Memory[b] = reg[a]
	case OP_LDIDX:
		var addr int
		addr, err = cpu.indexed(b)
		if err != nil {
			return
		}
		reg[a] = cpu.Memory[addr]
	case OP_STIDX:
		var addr int
		addr, err = cpu.indexed(b)
		if err != nil {
			return
		}
		cpu.Memory[addr] = reg[a]
	case OP_ADD:
		reg[a] += reg[b]
	case OP_SUB:
		reg[a] -= reg[b]
	case OP_MUL:
		reg[a] *= reg[b]
	case OP_DIV:
		if reg[b] == 0 {
			err = ErrDivisionByZero
			return
		}
		reg[a] /= reg[b]
	case OP_JMP:
		next_ip = uint32(a)
	case OP_JEQ:
		if cpu.Zero {
			next_ip = uint32(a)
		}
	case OP_JGT:
		if cpu.Greater {
			next_ip = uint32(a)
		}
	case OP_CMP:
		cpu.Zero = reg[a] == reg[b]
		cpu.Greater = reg[a] > reg[b]
	case OP_HALT:
		halted = true
	default:
		err = ErrUnknownOpcode(insn.Code)
		return
	}

	cpu.Ip = next_ip
	cpu.Ticks++

	return
}
