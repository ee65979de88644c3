package cpu

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JamalLyons/Rustbucket/io"
)

func newCpu(t *testing.T, config Config, image []byte) (cpu *Cpu, out *io.Temporary) {
	t.Helper()

	cpu, err := NewCpu(config, image)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	out = &io.Temporary{}
	cpu.SetOutput(out)
	return
}

func TestCpuAddOut(t *testing.T) {
	assert := assert.New(t)

	cpu, out := newCpu(t, DefaultConfig(), []byte{
		0x04, 0, 5,
		0x04, 1, 3,
		0x30, 0, 1,
		0x03, 0,
		0xFF,
	})

	err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal([]uint8{8}, out.Values())
	assert.Equal(uint8(8), cpu.Register[0])
	assert.Equal(uint8(3), cpu.Register[1])
	assert.Equal(5, cpu.Ticks)
	assert.Equal(uint32(12), cpu.Ip)
}

func TestCpuDivisionByZero(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, DefaultConfig(), []byte{
		0x04, 0, 5,
		0x04, 1, 0,
		0x33, 0, 1,
		0xFF,
	})

	err := cpu.Run()
	assert.ErrorIs(err, ErrDivisionByZero)
	assert.Equal(STATE_ERRORED, cpu.State)
	assert.Equal(err, cpu.Err)
	assert.Equal(uint8(5), cpu.Register[0])
	assert.Equal(uint32(6), cpu.Ip)

	var fault *ErrFault
	assert.True(errors.As(err, &fault))
	assert.Equal(uint32(6), fault.Ip)
	if assert.NotNil(fault.Instruction) {
		assert.Equal(OP_DIV, fault.Instruction.Code)
	}
}

func TestCpuCompare(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		a, b    uint8
		zero    bool
		greater bool
	}{
		{3, 3, true, false},
		{4, 3, false, true},
		{3, 4, false, false},
		{0, 255, false, false},
		{255, 0, false, true},
	}

	for _, entry := range table {
		cpu, _ := newCpu(t, DefaultConfig(), []byte{
			0x43, 0, 1,
			0xFF,
		})
		cpu.Register[0] = entry.a
		cpu.Register[1] = entry.b
		cpu.Zero = !entry.zero
		cpu.Greater = !entry.greater

		assert.NoError(cpu.Run())
		assert.Equal(entry.zero, cpu.Zero, "%v", entry)
		assert.Equal(entry.greater, cpu.Greater, "%v", entry)
	}
}

func TestCpuConditionalJump(t *testing.T) {
	assert := assert.New(t)

	// cmp r0, r1 ; jeq X ; jgt X ; mov r2, 1 ; halt ; X: mov r2, 2 ; halt
	image := []byte{
		0x43, 0, 1,
		0x41, 15,
		0x42, 15,
		0x04, 2, 1,
		0xFF,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x04, 2, 2,
		0xFF,
	}

	table := []struct {
		a, b     uint8
		expected uint8
	}{
		{3, 3, 2},
		{4, 3, 2},
		{3, 4, 1},
	}

	for _, entry := range table {
		cpu, _ := newCpu(t, DefaultConfig(), image)
		cpu.Register[0] = entry.a
		cpu.Register[1] = entry.b

		assert.NoError(cpu.Run())
		assert.Equal(entry.expected, cpu.Register[2], "%v", entry)
	}
}

func TestCpuJump(t *testing.T) {
	assert := assert.New(t)

	cpu, out := newCpu(t, DefaultConfig(), []byte{
		0x40, 5,
		0x03, 0,
		0xFF,
		0x04, 0, 7,
		0x03, 0,
		0xFF,
	})

	assert.NoError(cpu.Run())
	assert.Equal([]uint8{7}, out.Values())
}

func TestCpuPushPop(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, DefaultConfig(), []byte{
		0x04, 0, 10,
		0x04, 1, 20,
		0x10, 0,
		0x10, 1,
		0x11, 2,
		0x11, 3,
		0xFF,
	})

	assert.NoError(cpu.Run())
	assert.Equal(uint8(20), cpu.Register[2])
	assert.Equal(uint8(10), cpu.Register[3])
	assert.True(cpu.Stack.Empty())
}

func TestCpuStackUnderflow(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, DefaultConfig(), []byte{
		0x04, 0, 9,
		0x11, 0,
		0xFF,
	})

	err := cpu.Run()
	assert.ErrorIs(err, ErrStackUnderflow)
	assert.Equal(uint8(9), cpu.Register[0])
	assert.Equal(uint32(3), cpu.Ip)
}

func TestCpuStackOverflow(t *testing.T) {
	assert := assert.New(t)

	config := DefaultConfig()
	config.StackCapacity = 2

	cpu, _ := newCpu(t, config, []byte{
		0x10, 0,
		0x10, 0,
		0x10, 0,
		0xFF,
	})

	err := cpu.Run()
	assert.ErrorIs(err, ErrStackOverflow)
	assert.Equal(2, cpu.Stack.Len())
	assert.Equal(uint32(4), cpu.Ip)
	assert.Equal(2, cpu.Ticks)
}

func TestCpuCallRet(t *testing.T) {
	assert := assert.New(t)

	// 0: call 5 ; 2: out r0 ; 4: halt ; 5: inc r0 ; 7: ret
	cpu, out := newCpu(t, DefaultConfig(), []byte{
		0x12, 5,
		0x03, 0,
		0xFF,
		0x01, 0,
		0x13,
	})

	done, err := cpu.Step()
	assert.NoError(err)
	assert.False(done)
	assert.Equal(uint32(5), cpu.Ip)
	assert.Equal([]uint32{2}, cpu.CallStack.Data)

	assert.NoError(cpu.Run())
	assert.Equal([]uint8{1}, out.Values())
	assert.True(cpu.CallStack.Empty())
}

func TestCpuCallStackUnderflow(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, DefaultConfig(), []byte{0x13})

	err := cpu.Run()
	assert.ErrorIs(err, ErrCallStackUnderflow)
	assert.Equal(uint32(0), cpu.Ip)
}

func TestCpuCallStackOverflow(t *testing.T) {
	assert := assert.New(t)

	config := DefaultConfig()
	config.CallStackCapacity = 1

	cpu, _ := newCpu(t, config, []byte{0x12, 0})

	err := cpu.Run()
	assert.ErrorIs(err, ErrCallStackOverflow)
	assert.Equal([]uint32{2}, cpu.CallStack.Data)
	assert.Equal(uint32(0), cpu.Ip)
}

func TestCpuLoadStore(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, DefaultConfig(), []byte{
		0x04, 0, 42,
		0x21, 0, 0x40,
		0x20, 1, 0x40,
		0xFF,
	})

	assert.NoError(cpu.Run())
	assert.Equal(uint8(42), cpu.Memory[0x40])
	assert.Equal(uint8(42), cpu.Register[1])
}

func TestCpuIndexed(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, DefaultConfig(), []byte{
		0x04, 0, 7,
		0x04, 1, 2,
		0x23, 0, 0x50,
		0x22, 2, 0x50,
		0xFF,
	})

	assert.NoError(cpu.Run())
	assert.Equal(uint8(7), cpu.Memory[0x52])
	assert.Equal(uint8(0), cpu.Memory[0x50])
	assert.Equal(uint8(7), cpu.Register[2])
}

func TestCpuIndexedOutOfBounds(t *testing.T) {
	assert := assert.New(t)

	config := DefaultConfig()
	config.MemorySize = 0x60

	for _, code := range []byte{0x22, 0x23} {
		cpu, _ := newCpu(t, config, []byte{
			0x04, 0, 7,
			0x04, 1, 0x10,
			code, 0, 0x50,
			0xFF,
		})
		before := slices.Clone(cpu.Memory)

		err := cpu.Run()
		assert.ErrorIs(err, ErrInvalidAddress)
		assert.Equal(uint32(6), cpu.Ip)
		assert.Equal(uint8(7), cpu.Register[0])
		assert.Equal(before, cpu.Memory)
	}
}

func TestCpuWrapAround(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		code     byte
		a, b     uint8
		expected uint8
	}{
		{0x30, 255, 1, 0},
		{0x30, 200, 100, 44},
		{0x31, 0, 1, 255},
		{0x31, 3, 5, 254},
		{0x32, 16, 16, 0},
		{0x32, 20, 13, 4},
		{0x33, 7, 2, 3},
		{0x33, 255, 16, 15},
	}

	for _, entry := range table {
		cpu, _ := newCpu(t, DefaultConfig(), []byte{entry.code, 0, 1, 0xFF})
		cpu.Register[0] = entry.a
		cpu.Register[1] = entry.b

		assert.NoError(cpu.Run())
		assert.Equal(entry.expected, cpu.Register[0], "%v", entry)
	}

	cpu, _ := newCpu(t, DefaultConfig(), []byte{0x01, 0, 0x02, 1, 0xFF})
	cpu.Register[0] = 255
	assert.NoError(cpu.Run())
	assert.Equal(uint8(0), cpu.Register[0])
	assert.Equal(uint8(255), cpu.Register[1])
}

func TestCpuHalt(t *testing.T) {
	assert := assert.New(t)

	cpu, out := newCpu(t, DefaultConfig(), []byte{
		0xFF,
		0x04, 0, 1,
		0x03, 0,
	})

	assert.NoError(cpu.Run())
	assert.Equal(1, cpu.Ticks)
	assert.Equal(uint8(0), cpu.Register[0])
	assert.Empty(out.Values())

	done, err := cpu.Step()
	assert.True(done)
	assert.NoError(err)
	assert.Equal(1, cpu.Ticks)
}

func TestCpuUnknownOpcode(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, DefaultConfig(), []byte{0x04, 0, 1})

	err := cpu.Run()
	assert.ErrorIs(err, ErrUnknownOpcode(0))

	var unknown ErrUnknownOpcode
	assert.True(errors.As(err, &unknown))
	assert.Equal(ErrUnknownOpcode(0x00), unknown)
	assert.Contains(err.Error(), "'unknown(0x00)'")
	assert.Equal(uint32(3), cpu.Ip)
	assert.Equal(STATE_ERRORED, cpu.State)
}

func TestCpuInvalidRegister(t *testing.T) {
	assert := assert.New(t)

	config := DefaultConfig()
	config.Registers = 4

	table := [][]byte{
		{0x04, 4, 1},
		{0x30, 0, 9},
		{0x11, 200},
		{0x03, 4},
	}

	for _, image := range table {
		cpu, out := newCpu(t, config, image)
		cpu.Stack.Push(1)

		err := cpu.Run()
		assert.ErrorIs(err, ErrInvalidRegister, "%v", image)
		assert.Equal(uint32(0), cpu.Ip)
		assert.Equal(make([]uint8, 4), cpu.Register)
		assert.Equal(1, cpu.Stack.Len())
		assert.Empty(out.Values())
		assert.Equal(0, cpu.Ticks)
	}
}

func TestCpuInvalidAddress(t *testing.T) {
	assert := assert.New(t)

	config := DefaultConfig()
	config.MemorySize = 32

	table := [][]byte{
		{0x20, 0, 32},
		{0x21, 0, 200},
		{0x40, 32},
		{0x12, 64},
	}

	for _, image := range table {
		cpu, _ := newCpu(t, config, image)
		before := slices.Clone(cpu.Memory)

		err := cpu.Run()
		assert.ErrorIs(err, ErrInvalidAddress, "%v", image)
		assert.Equal(uint32(0), cpu.Ip)
		assert.Equal(before, cpu.Memory)
		assert.True(cpu.CallStack.Empty())
	}
}

func TestCpuTruncatedInstruction(t *testing.T) {
	assert := assert.New(t)

	config := DefaultConfig()
	config.MemorySize = 4

	cpu, _ := newCpu(t, config, []byte{0x01, 0, 0x04, 0})

	err := cpu.Run()
	assert.ErrorIs(err, ErrInvalidAddress)
	assert.Equal(uint32(2), cpu.Ip)
	assert.Equal(uint8(1), cpu.Register[0])
}

func TestCpuRunOffEnd(t *testing.T) {
	assert := assert.New(t)

	config := DefaultConfig()
	config.MemorySize = 2

	cpu, _ := newCpu(t, config, []byte{0x01, 0})

	err := cpu.Run()
	assert.ErrorIs(err, ErrInvalidAddress)
	assert.Equal(uint32(2), cpu.Ip)

	var fault *ErrFault
	if assert.True(errors.As(err, &fault)) {
		assert.Equal(uint32(2), fault.Ip)
		assert.Nil(fault.Instruction)
		assert.NotContains(err.Error(), "unknown")
	}
}

func TestCpuEntryPoint(t *testing.T) {
	assert := assert.New(t)

	config := DefaultConfig()
	config.EntryPoint = 3

	cpu, out := newCpu(t, config, []byte{
		0x04, 0, 1,
		0x04, 0, 2,
		0x03, 0,
		0xFF,
	})
	assert.Equal(uint32(3), cpu.Ip)

	assert.NoError(cpu.Run())
	assert.Equal([]uint8{2}, out.Values())
}

func TestNewCpu(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu(DefaultConfig(), []byte{0xFF})
	assert.NoError(err)
	assert.Equal(STATE_RUNNING, cpu.State)
	assert.Len(cpu.Register, 8)
	assert.Len(cpu.Memory, 256)
	assert.Equal(16, cpu.Stack.Limit)
	assert.Equal(16, cpu.CallStack.Limit)
	assert.Equal(uint8(0xFF), cpu.Memory[0])
	assert.NotNil(cpu.Output())
	assert.Equal(DefaultConfig(), cpu.Config())

	config := DefaultConfig()
	config.MemorySize = 2
	_, err = NewCpu(config, []byte{1, 2, 3})
	assert.ErrorIs(err, ErrImageSize)

	config = DefaultConfig()
	config.Registers = 1
	_, err = NewCpu(config, nil)
	assert.ErrorIs(err, ErrConfig)
}

func TestCpuOutputFailure(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, DefaultConfig(), []byte{
		0x03, 0,
		0x03, 0,
		0xFF,
	})
	out := &io.Temporary{Capacity: 1}
	cpu.SetOutput(out)

	err := cpu.Run()
	assert.ErrorIs(err, ErrOutput)
	assert.ErrorIs(err, io.ErrChannelFull)
	assert.Equal(uint32(2), cpu.Ip)
	assert.Equal([]uint8{0}, out.Values())
}

func TestCpuTerminal(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, DefaultConfig(), []byte{0x33, 0, 1, 0xFF})

	done, err := cpu.Step()
	assert.True(done)
	assert.ErrorIs(err, ErrDivisionByZero)

	for range 3 {
		done, again := cpu.Step()
		assert.True(done)
		assert.Equal(err, again)
		assert.Equal(uint32(0), cpu.Ip)
	}
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, DefaultConfig(), []byte{0xFF})
	cpu.Register[3] = 0xAB

	text := cpu.String()
	assert.Contains(text, "running")
	assert.Contains(text, "r3: AB")
}
