package memory

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-hydra/hydra/addr"
)

// Reg is a non-owning handle to a register cell stored in a Bus.
// Devices keep Regs instead of copies so every reader observes the same
// storage location.
type Reg struct {
	bus  *Bus
	slot int
}

// Get returns the raw stored value, without any read-side masking.
func (r Reg) Get() uint8 {
	return r.bus.cells[r.slot]
}

// Set stores value as is. Callers that model CPU writes should go through
// Bus.Write so masking and write side effects apply.
func (r Reg) Set(value uint8) {
	r.bus.cells[r.slot] = value
}

// Incr adds 1 to the register, wrapping from 0xFF to 0x00.
func (r Reg) Incr() {
	r.bus.cells[r.slot]++
}

// Address returns the address the cell is mapped at.
func (r Reg) Address() uint16 {
	return r.bus.addrs[r.slot]
}

// Valid reports whether the handle points into a bus.
func (r Reg) Valid() bool {
	return r.bus != nil && r.slot >= 0 && r.slot < len(r.bus.cells)
}

// Bus owns the memory mapped register cells of a console. There is exactly
// one Bus per console; devices get handles through GetReference.
type Bus struct {
	cells []uint8
	addrs []uint16
	slots map[uint16]int

	// DIVReset is raised by a CPU write to DIV and consumed by the timer.
	DIVReset bool
	// TACChanged is raised by a CPU write to TAC and consumed by the timer.
	TACChanged bool
}

// NewBus creates a register store with the timer and interrupt registers mapped.
func NewBus() *Bus {
	b := &Bus{
		slots: make(map[uint16]int),
	}
	for _, a := range []uint16{addr.DIV, addr.TIMA, addr.TMA, addr.TAC, addr.IF, addr.IE} {
		b.GetReference(a)
	}
	return b
}

// GetReference returns the handle for the cell at address, mapping a new
// zeroed cell if the address had none yet.
func (b *Bus) GetReference(address uint16) Reg {
	if slot, ok := b.slots[address]; ok {
		return Reg{bus: b, slot: slot}
	}
	slot := len(b.cells)
	b.cells = append(b.cells, 0)
	b.addrs = append(b.addrs, address)
	b.slots[address] = slot
	return Reg{bus: b, slot: slot}
}

// Mapped reports whether a cell exists at address.
func (b *Bus) Mapped(address uint16) bool {
	_, ok := b.slots[address]
	return ok
}

// Reset zeroes every cell and clears pending write signals.
func (b *Bus) Reset() {
	clear(b.cells)
	b.DIVReset = false
	b.TACChanged = false
}

// Read returns the value of the register at address as the CPU sees it.
// Unused bits of TAC and IF read back as 1. Unmapped addresses read as 0xFF.
func (b *Bus) Read(address uint16) uint8 {
	slot, ok := b.slots[address]
	if !ok {
		slog.Warn("Read from unmapped register", "addr", fmt.Sprintf("0x%04X", address))
		return 0xFF
	}

	value := b.cells[slot]
	switch address {
	case addr.TAC:
		return value | 0xF8
	case addr.IF:
		return value | 0xE0
	}
	return value
}

// Write performs a CPU write to the register at address. Values are masked
// to the register width, and writes to DIV and TAC raise the signals the
// timer consumes on its next update.
func (b *Bus) Write(address uint16, value uint8) {
	slot, ok := b.slots[address]
	if !ok {
		slog.Warn("Write to unmapped register", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
		return
	}

	switch address {
	case addr.DIV:
		// any write clears the divider, the value is irrelevant
		b.cells[slot] = 0
		b.DIVReset = true
	case addr.TAC:
		b.cells[slot] = value & 0x07
		b.TACChanged = true
	case addr.IF:
		b.cells[slot] = value & 0x1F
	default:
		b.cells[slot] = value
	}
}

// RequestInterrupt sets the bit of the chosen interrupt in IF.
func (b *Bus) RequestInterrupt(interrupt addr.Interrupt) {
	ifr := b.GetReference(addr.IF)
	ifr.Set(ifr.Get() | uint8(interrupt))
}
