package cpu

import (
	"errors"
	"fmt"
	"iter"
	"maps"
)

// Configuration limits.
const (
	REGISTERS_MIN   = 2       // Register 1 is the index register.
	REGISTERS_MAX   = 256     // Register operands are a single byte.
	MEMORY_SIZE_MAX = 0x10000 // Largest addressable memory.
)

// Config is the immutable machine description a Cpu is built from.
type Config struct {
	Registers         int `json:"registers"`           // Number of registers.
	MemorySize        int `json:"memory_size"`         // Memory cells, program included.
	StackCapacity     int `json:"stack_capacity"`      // Operand stack depth.
	CallStackCapacity int `json:"call_stack_capacity"` // Call stack depth.
	EntryPoint        int `json:"entry_point"`         // Initial instruction pointer.
}

// DefaultConfig returns the standard machine: 8 registers, 256 bytes of
// memory, 16 deep stacks, and execution starting at address 0.
func DefaultConfig() Config {
	return Config{
		Registers:         8,
		MemorySize:        256,
		StackCapacity:     16,
		CallStackCapacity: 16,
		EntryPoint:        0,
	}
}

// Validate checks every parameter against its permitted range.
func (config Config) Validate() (err error) {
	var errs []error

	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, errors.New(f(format, args...)))
		}
	}

	check(config.Registers >= REGISTERS_MIN && config.Registers <= REGISTERS_MAX,
		"registers %v not in %v..%v", config.Registers, REGISTERS_MIN, REGISTERS_MAX)
	check(config.MemorySize >= 1 && config.MemorySize <= MEMORY_SIZE_MAX,
		"memory size %v not in 1..%v", config.MemorySize, MEMORY_SIZE_MAX)
	check(config.StackCapacity >= 1,
		"stack capacity %v less than 1", config.StackCapacity)
	check(config.CallStackCapacity >= 1,
		"call stack capacity %v less than 1", config.CallStackCapacity)
	check(config.EntryPoint >= 0 && config.EntryPoint < config.MemorySize,
		"entry point %v outside of memory", config.EntryPoint)

	if len(errs) != 0 {
		err = errors.Join(append([]error{ErrConfig}, errs...)...)
	}

	return
}

// Defines returns the configuration as assembler equates.
func (config Config) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"REGISTERS":           fmt.Sprintf("%d", config.Registers),
		"MEMORY_SIZE":         fmt.Sprintf("%d", config.MemorySize),
		"STACK_CAPACITY":      fmt.Sprintf("%d", config.StackCapacity),
		"CALL_STACK_CAPACITY": fmt.Sprintf("%d", config.CallStackCapacity),
		"ENTRY_POINT":         fmt.Sprintf("%d", config.EntryPoint),
	})
}
