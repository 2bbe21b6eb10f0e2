package memory

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/cespare/xxhash"
	"github.com/valerio/go-hydra/hydra/bit"
)

const (
	// ROMBankSize is the size of a switchable ROM bank (16KB).
	ROMBankSize = 0x4000
	// RAMBankSize is the size of an external RAM bank (8KB).
	RAMBankSize = 0x2000
)

const (
	titleAddress          = 0x134
	titleLength           = 16
	cgbFlagAddress        = 0x143
	sgbFlagAddress        = 0x146
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	versionNumberAddress  = 0x14C
	headerChecksumAddress = 0x14D
	globalChecksumAddress = 0x14E
)

// ErrMalformedCartridge is returned when a ROM image cannot be read or is
// too short to contain a single ROM bank.
var ErrMalformedCartridge = errors.New("malformed cartridge")

// ROMBank is one 16KB block of cartridge ROM.
type ROMBank [ROMBankSize]uint8

// RAMBank is one 8KB block of cartridge RAM.
type RAMBank [RAMBankSize]uint8

// Banks holds the bank storage populated by a cartridge load.
type Banks struct {
	ROM []ROMBank
	RAM []RAMBank
}

// Header is the parsed cartridge header found at 0x0134-0x014F.
type Header struct {
	Title          string
	CGBFlag        uint8
	SGBFlag        uint8
	Type           CartridgeType
	ROMCode        uint8
	RAMCode        uint8
	Version        uint8
	HeaderChecksum uint8
	GlobalChecksum uint16
}

// CGBOnly reports whether the cartridge refuses to run on a DMG.
func (h Header) CGBOnly() bool {
	return h.CGBFlag == 0xC0
}

// Cartridge parses a ROM image and derives its banking layout. Accessors
// are only meaningful after a successful Load.
type Cartridge struct {
	header      Header
	romBanks    int
	ramBanks    int
	fingerprint uint64
	checksumOK  bool
	loaded      bool
}

// NewCartridge creates an empty, unloaded cartridge.
func NewCartridge() *Cartridge {
	return &Cartridge{}
}

// Load reads the ROM image at path (optionally compressed as .gz, .zip or
// .7z), parses its header and returns freshly populated bank storage.
func (c *Cartridge) Load(path string) (*Banks, error) {
	c.loaded = false

	data, err := ReadImage(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCartridge, err)
	}

	return c.LoadBytes(filepath.Base(path), data)
}

// LoadBytes is Load for an image already in memory. name is only used for
// diagnostics.
func (c *Cartridge) LoadBytes(name string, data []byte) (*Banks, error) {
	c.loaded = false

	if len(data) < ROMBankSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, need at least %d", ErrMalformedCartridge, name, len(data), ROMBankSize)
	}

	header := parseHeader(data)
	romCount := romBankCount(header.ROMCode, len(data))
	ramCount := ramBankCount(header)

	imageBanks := (len(data) + ROMBankSize - 1) / ROMBankSize
	if imageBanks > romCount {
		slog.Warn("ROM image is larger than its header declares, extra banks ignored",
			"rom", name, "declared", romCount, "image", imageBanks)
	}

	banks := &Banks{
		ROM: make([]ROMBank, romCount),
		RAM: make([]RAMBank, ramCount),
	}
	for i := range banks.ROM {
		offset := i * ROMBankSize
		if offset >= len(data) {
			break
		}
		copy(banks.ROM[i][:], data[offset:])
	}

	c.header = header
	c.romBanks = romCount
	c.ramBanks = ramCount
	c.fingerprint = xxhash.Sum64(data)
	c.checksumOK = headerChecksum(data) == header.HeaderChecksum
	c.loaded = true

	if !c.checksumOK {
		slog.Warn("Cartridge header checksum mismatch", "rom", name)
	}

	slog.Info("Loaded cartridge",
		"rom", name,
		"title", header.Title,
		"type", header.Type.String(),
		"rom_banks", romCount,
		"ram_banks", ramCount,
		"fingerprint", fmt.Sprintf("%016x", c.fingerprint))

	return banks, nil
}

// Loaded reports whether the last Load succeeded.
func (c *Cartridge) Loaded() bool {
	return c.loaded
}

// Header returns the parsed header.
func (c *Cartridge) Header() Header {
	return c.header
}

// CartridgeType returns the banking controller type byte.
func (c *Cartridge) CartridgeType() CartridgeType {
	return c.header.Type
}

// ROMSize returns the ROM size in bytes derived from the header.
func (c *Cartridge) ROMSize() int {
	return c.romBanks * ROMBankSize
}

// RAMSize returns the external RAM size in bytes, rounded up to whole banks.
func (c *Cartridge) RAMSize() int {
	return c.ramBanks * RAMBankSize
}

// ROMBankCount returns the number of 16KB ROM banks.
func (c *Cartridge) ROMBankCount() int {
	return c.romBanks
}

// RAMBankCount returns the number of 8KB RAM banks.
func (c *Cartridge) RAMBankCount() int {
	return c.ramBanks
}

// Fingerprint returns the xxhash of the whole ROM image.
func (c *Cartridge) Fingerprint() uint64 {
	return c.fingerprint
}

// HeaderChecksumOK reports whether the header checksum at 0x014D matches.
func (c *Cartridge) HeaderChecksumOK() bool {
	return c.checksumOK
}

func parseHeader(data []byte) Header {
	cgb := data[cgbFlagAddress]
	length := titleLength
	if bit.IsSet(7, cgb) {
		// on color cartridges the last title byte is the CGB flag
		length--
	}

	return Header{
		Title:          cleanGameboyTitle(data[titleAddress : titleAddress+length]),
		CGBFlag:        cgb,
		SGBFlag:        data[sgbFlagAddress],
		Type:           CartridgeType(data[cartridgeTypeAddress]),
		ROMCode:        data[romSizeAddress],
		RAMCode:        data[ramSizeAddress],
		Version:        data[versionNumberAddress],
		HeaderChecksum: data[headerChecksumAddress],
		GlobalChecksum: bit.Combine(data[globalChecksumAddress], data[globalChecksumAddress+1]),
	}
}

// headerChecksum computes the boot ROM checksum over 0x0134-0x014C.
func headerChecksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data[titleAddress:headerChecksumAddress] {
		sum = sum - b - 1
	}
	return sum
}

func romBankCount(code uint8, imageSize int) int {
	switch {
	case code <= 0x08:
		return 2 << code
	case code == 0x52:
		return 72
	case code == 0x53:
		return 80
	case code == 0x54:
		return 96
	}

	count := max((imageSize+ROMBankSize-1)/ROMBankSize, 2)
	slog.Warn("Unknown ROM size code, using image size", "code", fmt.Sprintf("0x%02X", code), "banks", count)
	return count
}

func ramBankCount(h Header) int {
	if h.Type.Mapper() == MapperMBC2 {
		// 512x4 bits of RAM built into the controller
		return 1
	}

	switch h.RAMCode {
	case 0x00:
		return 0
	case 0x01, 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	}

	slog.Warn("Unknown RAM size code, assuming no RAM", "code", fmt.Sprintf("0x%02X", h.RAMCode))
	return 0
}
