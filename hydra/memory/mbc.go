package memory

import (
	"fmt"
	"log/slog"
)

// Mapper is a memory bank controller: it decodes CPU accesses to the
// cartridge windows (0x0000-0x7FFF and 0xA000-0xBFFF) into bank storage.
type Mapper interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	// Reset restores the power-on bank selection. Bank contents are kept.
	Reset()
}

// NewMapper creates the bank controller for kind over banks. Unsupported
// controllers fall back to a plain two bank mapping.
func NewMapper(kind MapperKind, banks *Banks) Mapper {
	switch kind {
	case MapperROMOnly:
		return &noMBC{banks: banks}
	case MapperMBC1:
		return &mbc1{banks: banks, romBank: 1}
	case MapperMBC2:
		return &mbc2{banks: banks, romBank: 1}
	case MapperMBC3:
		return &mbc3{banks: banks, romBank: 1}
	case MapperMBC5:
		return &mbc5{banks: banks, romBank: 1}
	}

	slog.Warn("Unsupported memory bank controller, banking disabled", "mapper", kind.String())
	return &noMBC{banks: banks}
}

func (b *Banks) readROM(bank int, address uint16) uint8 {
	if len(b.ROM) == 0 {
		return 0xFF
	}
	return b.ROM[bank%len(b.ROM)][address&(ROMBankSize-1)]
}

func (b *Banks) readRAM(bank int, address uint16) uint8 {
	if len(b.RAM) == 0 {
		return 0xFF
	}
	return b.RAM[bank%len(b.RAM)][address&(RAMBankSize-1)]
}

func (b *Banks) writeRAM(bank int, address uint16, value uint8) {
	if len(b.RAM) == 0 {
		return
	}
	b.RAM[bank%len(b.RAM)][address&(RAMBankSize-1)] = value
}

func isRAMWindow(address uint16) bool {
	return address >= 0xA000 && address <= 0xBFFF
}

// noMBC maps banks 0 and 1 directly. ROM+RAM cartridges expose RAM bank 0.
type noMBC struct {
	banks *Banks
}

func (m *noMBC) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		return m.banks.readROM(0, address)
	case address <= 0x7FFF:
		return m.banks.readROM(1, address)
	case isRAMWindow(address):
		return m.banks.readRAM(0, address)
	}
	return 0xFF
}

func (m *noMBC) Reset() {}

func (m *noMBC) Write(address uint16, value uint8) {
	if isRAMWindow(address) {
		m.banks.writeRAM(0, address, value)
	}
}

// mbc1 supports up to 2MB ROM and 32KB RAM. The 2 bit secondary register
// selects either the upper ROM bank bits or the RAM bank, depending on the
// banking mode.
type mbc1 struct {
	banks      *Banks
	romBank    uint8 // lower 5 bits
	upper      uint8 // 2 bits
	mode       uint8
	ramEnabled bool
}

func (m *mbc1) Reset() {
	*m = mbc1{banks: m.banks, romBank: 1}
}

func (m *mbc1) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		bank := 0
		if m.mode == 1 {
			bank = int(m.upper) << 5
		}
		return m.banks.readROM(bank, address)
	case address <= 0x7FFF:
		return m.banks.readROM(int(m.upper)<<5|int(m.romBank), address)
	case isRAMWindow(address):
		if !m.ramEnabled {
			return 0xFF
		}
		return m.banks.readRAM(m.ramBank(), address)
	}
	return 0xFF
}

func (m *mbc1) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x3FFF:
		m.romBank = value & 0x1F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case address <= 0x5FFF:
		m.upper = value & 0x03
	case address <= 0x7FFF:
		m.mode = value & 0x01
	case isRAMWindow(address):
		if m.ramEnabled {
			m.banks.writeRAM(m.ramBank(), address, value)
		}
	}
}

func (m *mbc1) ramBank() int {
	if m.mode == 1 {
		return int(m.upper)
	}
	return 0
}

// mbc2 has 512 half-bytes of RAM built in. Address bit 8 selects between
// the RAM enable and the ROM bank register.
type mbc2 struct {
	banks      *Banks
	romBank    uint8
	ramEnabled bool
}

func (m *mbc2) Reset() {
	*m = mbc2{banks: m.banks, romBank: 1}
}

func (m *mbc2) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		return m.banks.readROM(0, address)
	case address <= 0x7FFF:
		return m.banks.readROM(int(m.romBank), address)
	case isRAMWindow(address):
		if !m.ramEnabled {
			return 0xFF
		}
		// only the low nibble exists, the RAM echoes every 512 bytes
		return 0xF0 | m.banks.readRAM(0, address&0x01FF)
	}
	return 0xFF
}

func (m *mbc2) Write(address uint16, value uint8) {
	switch {
	case address <= 0x3FFF:
		if address&0x0100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
			return
		}
		m.romBank = value & 0x0F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case isRAMWindow(address):
		if m.ramEnabled {
			m.banks.writeRAM(0, address&0x01FF, value&0x0F)
		}
	}
}

// mbc3 supports up to 2MB ROM and 32KB RAM. The real-time clock registers
// (RAM bank select 0x08-0x0C) are not emulated and read as 0xFF.
type mbc3 struct {
	banks      *Banks
	romBank    uint8
	ramBank    uint8
	ramEnabled bool
}

func (m *mbc3) Reset() {
	*m = mbc3{banks: m.banks, romBank: 1}
}

func (m *mbc3) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		return m.banks.readROM(0, address)
	case address <= 0x7FFF:
		return m.banks.readROM(int(m.romBank), address)
	case isRAMWindow(address):
		if !m.ramEnabled || m.ramBank > 0x03 {
			return 0xFF
		}
		return m.banks.readRAM(int(m.ramBank), address)
	}
	return 0xFF
}

func (m *mbc3) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x3FFF:
		m.romBank = value & 0x7F
		if m.romBank == 0 {
			m.romBank = 1
		}
	case address <= 0x5FFF:
		if value >= 0x08 && value <= 0x0C {
			slog.Debug("MBC3 RTC register selected, clock is not emulated", "reg", fmt.Sprintf("0x%02X", value))
		}
		m.ramBank = value
	case address <= 0x7FFF:
		// RTC latch, nothing to latch
	case isRAMWindow(address):
		if m.ramEnabled && m.ramBank <= 0x03 {
			m.banks.writeRAM(int(m.ramBank), address, value)
		}
	}
}

// mbc5 supports up to 8MB ROM through a 9 bit bank number and 128KB RAM.
// Unlike MBC1, bank 0 can be mapped in the switchable window.
type mbc5 struct {
	banks      *Banks
	romBank    uint16
	ramBank    uint8
	ramEnabled bool
}

func (m *mbc5) Reset() {
	*m = mbc5{banks: m.banks, romBank: 1}
}

func (m *mbc5) Read(address uint16) uint8 {
	switch {
	case address <= 0x3FFF:
		return m.banks.readROM(0, address)
	case address <= 0x7FFF:
		return m.banks.readROM(int(m.romBank), address)
	case isRAMWindow(address):
		if !m.ramEnabled {
			return 0xFF
		}
		return m.banks.readRAM(int(m.ramBank), address)
	}
	return 0xFF
}

func (m *mbc5) Write(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x2FFF:
		m.romBank = (m.romBank & 0x100) | uint16(value)
	case address <= 0x3FFF:
		m.romBank = (m.romBank & 0xFF) | uint16(value&0x01)<<8
	case address <= 0x5FFF:
		m.ramBank = value & 0x0F
	case isRAMWindow(address):
		if m.ramEnabled {
			m.banks.writeRAM(int(m.ramBank), address, value)
		}
	}
}
