package memory

import "fmt"

// CartridgeType is the banking controller byte at 0x0147.
type CartridgeType uint8

const (
	ROMOnly              CartridgeType = 0x00
	MBC1                 CartridgeType = 0x01
	MBC1RAM              CartridgeType = 0x02
	MBC1RAMBattery       CartridgeType = 0x03
	MBC2                 CartridgeType = 0x05
	MBC2Battery          CartridgeType = 0x06
	ROMRAM               CartridgeType = 0x08
	ROMRAMBattery        CartridgeType = 0x09
	MMM01                CartridgeType = 0x0B
	MMM01RAM             CartridgeType = 0x0C
	MMM01RAMBattery      CartridgeType = 0x0D
	MBC3TimerBattery     CartridgeType = 0x0F
	MBC3TimerRAMBattery  CartridgeType = 0x10
	MBC3                 CartridgeType = 0x11
	MBC3RAM              CartridgeType = 0x12
	MBC3RAMBattery       CartridgeType = 0x13
	MBC4                 CartridgeType = 0x15
	MBC4RAM              CartridgeType = 0x16
	MBC4RAMBattery       CartridgeType = 0x17
	MBC5                 CartridgeType = 0x19
	MBC5RAM              CartridgeType = 0x1A
	MBC5RAMBattery       CartridgeType = 0x1B
	MBC5Rumble           CartridgeType = 0x1C
	MBC5RumbleRAM        CartridgeType = 0x1D
	MBC5RumbleRAMBattery CartridgeType = 0x1E
	PocketCamera         CartridgeType = 0xFC
	BandaiTAMA5          CartridgeType = 0xFD
	HuC3                 CartridgeType = 0xFE
	HuC1RAMBattery       CartridgeType = 0xFF
)

var cartridgeTypeNames = map[CartridgeType]string{
	ROMOnly:              "ROM ONLY",
	MBC1:                 "MBC1",
	MBC1RAM:              "MBC1+RAM",
	MBC1RAMBattery:       "MBC1+RAM+BATTERY",
	MBC2:                 "MBC2",
	MBC2Battery:          "MBC2+BATTERY",
	ROMRAM:               "ROM+RAM",
	ROMRAMBattery:        "ROM+RAM+BATTERY",
	MMM01:                "MMM01",
	MMM01RAM:             "MMM01+RAM",
	MMM01RAMBattery:      "MMM01+RAM+BATTERY",
	MBC3TimerBattery:     "MBC3+TIMER+BATTERY",
	MBC3TimerRAMBattery:  "MBC3+TIMER+RAM+BATTERY",
	MBC3:                 "MBC3",
	MBC3RAM:              "MBC3+RAM",
	MBC3RAMBattery:       "MBC3+RAM+BATTERY",
	MBC4:                 "MBC4",
	MBC4RAM:              "MBC4+RAM",
	MBC4RAMBattery:       "MBC4+RAM+BATTERY",
	MBC5:                 "MBC5",
	MBC5RAM:              "MBC5+RAM",
	MBC5RAMBattery:       "MBC5+RAM+BATTERY",
	MBC5Rumble:           "MBC5+RUMBLE",
	MBC5RumbleRAM:        "MBC5+RUMBLE+RAM",
	MBC5RumbleRAMBattery: "MBC5+RUMBLE+RAM+BATTERY",
	PocketCamera:         "POCKET CAMERA",
	BandaiTAMA5:          "BANDAI TAMA5",
	HuC3:                 "HuC3",
	HuC1RAMBattery:       "HuC1+RAM+BATTERY",
}

func (t CartridgeType) String() string {
	if name, ok := cartridgeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(t))
}

// HasBattery reports whether cartridge RAM is battery backed.
func (t CartridgeType) HasBattery() bool {
	switch t {
	case MBC1RAMBattery, MBC2Battery, ROMRAMBattery, MMM01RAMBattery,
		MBC3TimerBattery, MBC3TimerRAMBattery, MBC3RAMBattery, MBC4RAMBattery,
		MBC5RAMBattery, MBC5RumbleRAMBattery, HuC1RAMBattery:
		return true
	}
	return false
}

// MapperKind groups cartridge types by the banking logic they need.
type MapperKind uint8

const (
	MapperROMOnly MapperKind = iota
	MapperMBC1
	MapperMBC2
	MapperMBC3
	MapperMBC5
	MapperUnsupported
)

func (k MapperKind) String() string {
	switch k {
	case MapperROMOnly:
		return "none"
	case MapperMBC1:
		return "MBC1"
	case MapperMBC2:
		return "MBC2"
	case MapperMBC3:
		return "MBC3"
	case MapperMBC5:
		return "MBC5"
	}
	return "unsupported"
}

// Mapper returns the banking logic the cartridge type uses.
func (t CartridgeType) Mapper() MapperKind {
	switch t {
	case ROMOnly, ROMRAM, ROMRAMBattery:
		return MapperROMOnly
	case MBC1, MBC1RAM, MBC1RAMBattery:
		return MapperMBC1
	case MBC2, MBC2Battery:
		return MapperMBC2
	case MBC3TimerBattery, MBC3TimerRAMBattery, MBC3, MBC3RAM, MBC3RAMBattery:
		return MapperMBC3
	case MBC5, MBC5RAM, MBC5RAMBattery, MBC5Rumble, MBC5RumbleRAM, MBC5RumbleRAMBattery:
		return MapperMBC5
	}
	return MapperUnsupported
}
