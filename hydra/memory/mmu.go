package memory

import (
	"fmt"
	"log/slog"
)

// MMU routes CPU accesses for a Game Boy address space: the cartridge
// windows go to the mapper, registers mapped in the Bus go to the Bus, and
// everything else is plain RAM.
type MMU struct {
	bus    *Bus
	mapper Mapper
	memory []uint8
}

// NewMMU creates a memory unit over bus. mapper may be nil when no
// cartridge is inserted.
func NewMMU(bus *Bus, mapper Mapper) *MMU {
	return &MMU{
		bus:    bus,
		mapper: mapper,
		memory: make([]uint8, 0x10000),
	}
}

// Bus returns the register store backing the IO window.
func (m *MMU) Bus() *Bus {
	return m.bus
}

// Reset clears RAM and the mapper's bank registers. Cartridge RAM is left
// alone.
func (m *MMU) Reset() {
	clear(m.memory)
	if m.mapper != nil {
		m.mapper.Reset()
	}
}

func (m *MMU) Read(address uint16) uint8 {
	switch {
	case address <= 0x7FFF || isRAMWindow(address):
		if m.mapper == nil {
			slog.Warn("Reading from ROM/external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return 0xFF
		}
		return m.mapper.Read(address)
	case address >= 0xE000 && address <= 0xFDFF:
		return m.memory[address-0x2000]
	case m.bus.Mapped(address):
		return m.bus.Read(address)
	}
	return m.memory[address]
}

func (m *MMU) Write(address uint16, value uint8) {
	switch {
	case address <= 0x7FFF || isRAMWindow(address):
		if m.mapper == nil {
			slog.Warn("Writing to ROM/external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mapper.Write(address, value)
	case address >= 0xE000 && address <= 0xFDFF:
		m.memory[address-0x2000] = value
	case m.bus.Mapped(address):
		m.bus.Write(address, value)
	default:
		m.memory[address] = value
	}
}
