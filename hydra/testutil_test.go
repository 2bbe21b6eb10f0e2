package hydra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valerio/go-hydra/hydra/debug"
)

// writeROM stores a 32KB ROM-only image and returns its path.
func writeROM(t *testing.T) string {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom[0x134:], "HYDRA")
	rom[0x150] = 0x42
	rom[0x4000] = 0x24

	path := filepath.Join(t.TempDir(), "test.gb")
	require.NoError(t, os.WriteFile(path, rom, 0o644))
	return path
}

// scriptCPU takes a fixed number of cycles per step and lets a test act on
// memory from inside an instruction.
type scriptCPU struct {
	cycles int
	regs   debug.Registers
	steps  int
	during func(step int, mem Memory)
}

func (c *scriptCPU) Reset() {
	c.regs = debug.Registers{PC: 0x100}
	c.steps = 0
}

func (c *scriptCPU) Step(mem Memory) int {
	c.steps++
	if c.during != nil {
		c.during(c.steps, mem)
	}
	c.regs.PC++
	return c.cycles
}

func (c *scriptCPU) Registers() debug.Registers {
	return c.regs
}
