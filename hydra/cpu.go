package hydra

import "github.com/valerio/go-hydra/hydra/debug"

// Memory is the address space a CPU executes against.
type Memory interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CPU is an instruction-level core driven by a console. Step executes one
// instruction and returns the cycles it took.
type CPU interface {
	Reset()
	Step(mem Memory) int
	Registers() debug.Registers
}

// nopCycles is the duration of a NOP (one machine cycle).
const nopCycles = 4

// IdleCPU executes an endless stream of NOPs: every step takes 4 cycles
// and advances PC by one. It lets the peripherals be clocked without an
// instruction decoder.
type IdleCPU struct {
	regs debug.Registers
}

func NewIdleCPU() *IdleCPU {
	c := &IdleCPU{}
	c.Reset()
	return c
}

// Reset loads the register values left by the DMG boot ROM.
func (c *IdleCPU) Reset() {
	c.regs = debug.Registers{
		A: 0x01, F: 0xB0,
		B: 0x00, C: 0x13,
		D: 0x00, E: 0xD8,
		H: 0x01, L: 0x4D,
		SP: 0xFFFE,
		PC: 0x0100,
	}
}

func (c *IdleCPU) Step(Memory) int {
	c.regs.PC++
	return nopCycles
}

func (c *IdleCPU) Registers() debug.Registers {
	return c.regs
}
