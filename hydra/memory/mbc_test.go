package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// numberedBanks returns storage where each ROM bank is filled with its index.
func numberedBanks(romBanks, ramBanks int) *Banks {
	b := &Banks{
		ROM: make([]ROMBank, romBanks),
		RAM: make([]RAMBank, ramBanks),
	}
	for i := range b.ROM {
		for j := range b.ROM[i] {
			b.ROM[i][j] = uint8(i)
		}
	}
	return b
}

func TestNoMBC(t *testing.T) {
	m := NewMapper(MapperROMOnly, numberedBanks(2, 1))

	assert.Equal(t, uint8(0), m.Read(0x0000))
	assert.Equal(t, uint8(1), m.Read(0x4000))
	assert.Equal(t, uint8(1), m.Read(0x7FFF))

	m.Write(0x2000, 0x05) // no banking register
	assert.Equal(t, uint8(1), m.Read(0x4000))

	m.Write(0xA010, 0x42)
	assert.Equal(t, uint8(0x42), m.Read(0xA010))

	noRAM := NewMapper(MapperROMOnly, numberedBanks(2, 0))
	noRAM.Write(0xA000, 0x42)
	assert.Equal(t, uint8(0xFF), noRAM.Read(0xA000))
}

func TestMBC1(t *testing.T) {
	t.Run("ROM bank switching", func(t *testing.T) {
		m := NewMapper(MapperMBC1, numberedBanks(64, 0))

		tests := []struct {
			name  string
			value uint8
			want  uint8
		}{
			{"bank 0 maps to 1", 0x00, 1},
			{"bank 2", 0x02, 2},
			{"bank 31", 0x1F, 31},
			{"only 5 bits are used", 0x23, 3},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				m.Write(0x2000, tt.value)
				assert.Equal(t, tt.want, m.Read(0x4000))
			})
		}

		m.Write(0x2000, 0x01)
		m.Write(0x4000, 0x01)
		assert.Equal(t, uint8(33), m.Read(0x4000), "upper bits extend the bank number")
	})

	t.Run("mode 1 remaps bank 0 and RAM", func(t *testing.T) {
		m := NewMapper(MapperMBC1, numberedBanks(128, 4))
		m.Write(0x0000, 0x0A)
		m.Write(0x4000, 0x02)

		assert.Equal(t, uint8(0), m.Read(0x0000))
		m.Write(0xA000, 0x11)

		m.Write(0x6000, 0x01)
		assert.Equal(t, uint8(64), m.Read(0x0000))
		assert.Equal(t, uint8(0), m.Read(0xA000), "RAM bank 2 is empty")
		m.Write(0xA000, 0x22)

		m.Write(0x6000, 0x00)
		assert.Equal(t, uint8(0x11), m.Read(0xA000))
	})

	t.Run("RAM disabled by default", func(t *testing.T) {
		m := NewMapper(MapperMBC1, numberedBanks(4, 1))
		m.Write(0xA000, 0x42)
		assert.Equal(t, uint8(0xFF), m.Read(0xA000))

		m.Write(0x0000, 0x0A)
		m.Write(0xA000, 0x42)
		assert.Equal(t, uint8(0x42), m.Read(0xA000))

		m.Write(0x0000, 0x00)
		assert.Equal(t, uint8(0xFF), m.Read(0xA000))
	})

	t.Run("bank numbers wrap around the ROM size", func(t *testing.T) {
		m := NewMapper(MapperMBC1, numberedBanks(4, 0))
		m.Write(0x2000, 0x05)
		assert.Equal(t, uint8(1), m.Read(0x4000))
	})
}

func TestMBC2(t *testing.T) {
	m := NewMapper(MapperMBC2, numberedBanks(16, 1))

	m.Write(0x2100, 0x03) // address bit 8 set: ROM bank
	assert.Equal(t, uint8(3), m.Read(0x4000))

	m.Write(0x2000, 0x0A) // bit 8 clear: RAM enable
	assert.Equal(t, uint8(3), m.Read(0x4000))

	m.Write(0xA001, 0xAB)
	assert.Equal(t, uint8(0xFB), m.Read(0xA001), "only the low nibble is stored")
	assert.Equal(t, uint8(0xFB), m.Read(0xA201), "RAM echoes every 512 bytes")
}

func TestMBC3(t *testing.T) {
	m := NewMapper(MapperMBC3, numberedBanks(128, 4))

	m.Write(0x2000, 0x00)
	assert.Equal(t, uint8(1), m.Read(0x4000))
	m.Write(0x2000, 0x7F)
	assert.Equal(t, uint8(127), m.Read(0x4000))

	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x03)
	m.Write(0xA000, 0x33)
	m.Write(0x4000, 0x00)
	assert.Equal(t, uint8(0x00), m.Read(0xA000))
	m.Write(0x4000, 0x03)
	assert.Equal(t, uint8(0x33), m.Read(0xA000))

	m.Write(0x4000, 0x08)
	assert.Equal(t, uint8(0xFF), m.Read(0xA000), "RTC registers are not emulated")
}

func TestMBC5(t *testing.T) {
	m := NewMapper(MapperMBC5, numberedBanks(512, 16))

	m.Write(0x2000, 0x00)
	assert.Equal(t, uint8(0), m.Read(0x4000), "bank 0 is selectable")

	m.Write(0x2000, 0x05)
	m.Write(0x3000, 0x01)
	assert.Equal(t, uint8(0x05), m.Read(0x4000)) // bank 0x105, byte value truncates

	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x0F)
	m.Write(0xBFFF, 0x99)
	assert.Equal(t, uint8(0x99), m.Read(0xBFFF))
}

func TestUnsupportedMapperFallsBack(t *testing.T) {
	m := NewMapper(MapperUnsupported, numberedBanks(4, 0))
	m.Write(0x2000, 0x03)
	assert.Equal(t, uint8(1), m.Read(0x4000))
}

func TestMapperReset(t *testing.T) {
	kinds := []MapperKind{MapperMBC1, MapperMBC2, MapperMBC3, MapperMBC5}
	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			m := NewMapper(kind, numberedBanks(16, 1))
			m.Write(0x0000, 0x0A)
			m.Write(0x2100, 0x05)
			assert.Equal(t, uint8(5), m.Read(0x4000))

			m.Reset()
			assert.Equal(t, uint8(1), m.Read(0x4000))
			assert.Equal(t, uint8(0xFF), m.Read(0xA000))
		})
	}

	t.Run("ROM only", func(t *testing.T) {
		m := NewMapper(MapperROMOnly, numberedBanks(2, 0))
		m.Reset()
		assert.Equal(t, uint8(1), m.Read(0x4000))
	})
}
