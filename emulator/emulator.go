package emulator

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/JamalLyons/Rustbucket/cpu"
	"github.com/JamalLyons/Rustbucket/internal"
	"github.com/JamalLyons/Rustbucket/io"
)

const (
	TICK_LIMIT   = 1 << 20 // Default limit of instructions per run.
	CANCEL_CHECK = 1024    // Ticks between checks for cancellation.
)

var _emulator_defines = map[string]string{
	"TICK_LIMIT": fmt.Sprintf("%v", TICK_LIMIT),
}

// Emulator state. Program + CPU + output channel.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	Logger   *slog.Logger // Destination of verbose logs.
	*cpu.Cpu              // Reference to the CPU simulation, built by Reset.
	Program  *cpu.Program // Reference to the currently running program listing.
	Data     []byte       // Static data placed after the program.
	Limit    int          // Maximum instructions per run, none if zero.

	Tape   io.Tape    // Tape output channel, on stdout.
	Output io.Channel // Output channel override, Tape if nil.

	config cpu.Config
}

// NewEmulator creates a new emulator.
func NewEmulator(config cpu.Config) (emu *Emulator) {
	emu = &Emulator{
		Program: &cpu.Program{},
		Limit:   TICK_LIMIT,
		config:  config,
	}

	emu.Tape.Output = os.Stdout

	return
}

// Config returns the machine configuration of the emulator.
func (emu *Emulator) Config() cpu.Config {
	return emu.config
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.ConcatSeq2(maps.All(_emulator_defines),
		emu.config.Defines(),
	)
}

// Assembler returns an assembler with the emulator defines predefined.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{
		Verbose: emu.Verbose,
		Logger:  emu.Logger,
	}
	asm.PredefineAll(emu.Defines())
	return
}

// Image returns the initial memory image: the program followed by the data.
func (emu *Emulator) Image() []byte {
	return slices.Concat(emu.Program.Binary(), emu.Data)
}

// Reset replaces the CPU with a fresh one loaded with the image.
func (emu *Emulator) Reset() (err error) {
	cp, err := cpu.NewCpu(emu.config, emu.Image())
	if err != nil {
		return
	}

	cp.Verbose = emu.Verbose
	cp.Logger = emu.Logger

	output := emu.Output
	if output == nil {
		output = &emu.Tape
	}
	output.Rewind()
	cp.SetOutput(output)

	emu.Cpu = cp

	if emu.Verbose {
		emu.log().Debug("emulator: reset", "size", len(emu.Image()), "entry", emu.config.EntryPoint)
	}

	return
}

func (emu *Emulator) log() *slog.Logger {
	if emu.Logger == nil {
		return slog.Default()
	}
	return emu.Logger
}

// Code returns the current instruction.
func (emu *Emulator) Code() (insn cpu.Instruction) {
	if emu.Cpu == nil {
		return
	}
	insn, _ = emu.Cpu.Fetch()
	return
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	if emu.Cpu == nil {
		return 0
	}

	dbg := emu.Program.Debug(int(emu.Cpu.Ip))
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Cpu == nil {
		err = ErrReset
		return
	}

	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	done, err = emu.Cpu.Step()

	return
}

// Run ticks the emulator until the program halts, fails, exceeds the tick
// limit or the context is cancelled.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	if emu.Cpu == nil {
		err = ErrReset
		return
	}

	for n := 0; ; n++ {
		if n%CANCEL_CHECK == 0 {
			err = ctx.Err()
			if err != nil {
				return
			}
		}

		if emu.Limit > 0 && emu.Cpu.Ticks >= emu.Limit && emu.Cpu.State == cpu.STATE_RUNNING {
			err = &ErrRuntime{LineNo: emu.LineNo(), Err: ErrLimit}
			return
		}

		var done bool
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}
}
