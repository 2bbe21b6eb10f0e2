package memory

import (
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeROM builds an image whose every byte outside the header holds the
// number of the bank it lives in.
func makeROM(size int, cartType CartridgeType, romCode, ramCode uint8) []byte {
	rom := make([]byte, size)
	for i := range rom {
		rom[i] = uint8(i / ROMBankSize)
	}
	for i := titleAddress; i <= globalChecksumAddress+1; i++ {
		rom[i] = 0
	}
	copy(rom[titleAddress:], "HYDRATEST")
	rom[cartridgeTypeAddress] = uint8(cartType)
	rom[romSizeAddress] = romCode
	rom[ramSizeAddress] = ramCode
	rom[headerChecksumAddress] = headerChecksum(rom)
	return rom
}

func TestCartridgeLoadBanks(t *testing.T) {
	tests := []struct {
		name             string
		size             int
		cartType         CartridgeType
		romCode, ramCode uint8
		romBanks         int
		ramBanks         int
	}{
		{"32KB ROM only", 0x8000, ROMOnly, 0x00, 0x00, 2, 0},
		{"128KB MBC1", 0x20000, MBC1, 0x02, 0x00, 8, 0},
		{"MBC1 with 32KB RAM", 0x20000, MBC1RAMBattery, 0x02, 0x03, 8, 4},
		{"MBC5 with 128KB RAM", 0x40000, MBC5RAM, 0x03, 0x04, 16, 16},
		{"MBC3 with 64KB RAM", 0x20000, MBC3RAM, 0x02, 0x05, 8, 8},
		{"2KB RAM rounds up to a bank", 0x8000, ROMRAM, 0x00, 0x01, 2, 1},
		{"MBC2 built-in RAM", 0x10000, MBC2, 0x01, 0x00, 4, 1},
		{"1.1MB ROM", 72 * ROMBankSize, MBC1, 0x52, 0x00, 72, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := NewCartridge()
			banks, err := cart.LoadBytes("test.gb", makeROM(tt.size, tt.cartType, tt.romCode, tt.ramCode))
			require.NoError(t, err)

			assert.Len(t, banks.ROM, tt.romBanks)
			assert.Len(t, banks.RAM, tt.ramBanks)
			assert.Equal(t, tt.romBanks*ROMBankSize, cart.ROMSize())
			assert.Equal(t, tt.ramBanks*RAMBankSize, cart.RAMSize())
			assert.Equal(t, tt.cartType, cart.CartridgeType())
			assert.True(t, cart.Loaded())

			for i, bank := range banks.ROM {
				assert.Equal(t, uint8(i), bank[ROMBankSize-1], "bank %d", i)
			}
			for _, bank := range banks.RAM {
				assert.Equal(t, RAMBank{}, bank)
			}
		})
	}
}

func TestCartridgeHeader(t *testing.T) {
	t.Run("DMG title and checksum", func(t *testing.T) {
		cart := NewCartridge()
		_, err := cart.LoadBytes("test.gb", makeROM(0x8000, ROMOnly, 0, 0))
		require.NoError(t, err)

		assert.Equal(t, "HYDRATEST", cart.Header().Title)
		assert.True(t, cart.HeaderChecksumOK())
		assert.False(t, cart.Header().CGBOnly())
	})

	t.Run("CGB flag shortens the title", func(t *testing.T) {
		rom := makeROM(0x8000, ROMOnly, 0, 0)
		copy(rom[titleAddress:], "ABCDEFGHIJKLMNOP")
		rom[cgbFlagAddress] = 0xC0
		rom[headerChecksumAddress] = headerChecksum(rom)

		cart := NewCartridge()
		_, err := cart.LoadBytes("test.gbc", rom)
		require.NoError(t, err)

		assert.Equal(t, "ABCDEFGHIJKLMNO", cart.Header().Title)
		assert.True(t, cart.Header().CGBOnly())
	})

	t.Run("bad checksum still loads", func(t *testing.T) {
		rom := makeROM(0x8000, ROMOnly, 0, 0)
		rom[headerChecksumAddress]++

		cart := NewCartridge()
		_, err := cart.LoadBytes("test.gb", rom)
		require.NoError(t, err)
		assert.False(t, cart.HeaderChecksumOK())
	})

	t.Run("fingerprint is the image hash", func(t *testing.T) {
		rom := makeROM(0x8000, ROMOnly, 0, 0)
		cart := NewCartridge()
		_, err := cart.LoadBytes("test.gb", rom)
		require.NoError(t, err)
		assert.Equal(t, xxhash.Sum64(rom), cart.Fingerprint())
	})
}

func TestCartridgeImageSizeMismatch(t *testing.T) {
	t.Run("header declares more banks than the image has", func(t *testing.T) {
		cart := NewCartridge()
		banks, err := cart.LoadBytes("short.gb", makeROM(0x8000, MBC1, 0x03, 0))
		require.NoError(t, err)

		require.Len(t, banks.ROM, 16)
		assert.Equal(t, uint8(1), banks.ROM[1][0])
		assert.Equal(t, ROMBank{}, banks.ROM[5])
	})

	t.Run("image larger than the header", func(t *testing.T) {
		cart := NewCartridge()
		banks, err := cart.LoadBytes("long.gb", makeROM(0x20000, ROMOnly, 0x00, 0))
		require.NoError(t, err)
		assert.Len(t, banks.ROM, 2)
	})

	t.Run("unknown ROM code uses the image size", func(t *testing.T) {
		cart := NewCartridge()
		banks, err := cart.LoadBytes("odd.gb", makeROM(0x18000, MBC1, 0x20, 0))
		require.NoError(t, err)
		assert.Len(t, banks.ROM, 6)
	})
}

func TestCartridgeLoadFailures(t *testing.T) {
	t.Run("shorter than one bank", func(t *testing.T) {
		cart := NewCartridge()
		_, err := cart.LoadBytes("tiny.gb", make([]byte, ROMBankSize-1))
		assert.ErrorIs(t, err, ErrMalformedCartridge)
		assert.False(t, cart.Loaded())
	})

	t.Run("missing file", func(t *testing.T) {
		cart := NewCartridge()
		_, err := cart.Load(filepath.Join(t.TempDir(), "missing.gb"))
		assert.ErrorIs(t, err, ErrMalformedCartridge)
	})

	t.Run("failed load clears loaded state", func(t *testing.T) {
		cart := NewCartridge()
		_, err := cart.LoadBytes("ok.gb", makeROM(0x8000, ROMOnly, 0, 0))
		require.NoError(t, err)
		_, err = cart.LoadBytes("tiny.gb", []byte{1, 2, 3})
		require.Error(t, err)
		assert.False(t, cart.Loaded())
	})
}

func TestCartridgeLoadFromDisk(t *testing.T) {
	rom := makeROM(0x20000, MBC1, 0x02, 0x00)
	dir := t.TempDir()

	plain := filepath.Join(dir, "game.gb")
	require.NoError(t, os.WriteFile(plain, rom, 0o644))

	gz := filepath.Join(dir, "game.gb.gz")
	{
		f, err := os.Create(gz)
		require.NoError(t, err)
		w := gzip.NewWriter(f)
		_, err = w.Write(rom)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, f.Close())
	}

	zipped := filepath.Join(dir, "game.zip")
	{
		f, err := os.Create(zipped)
		require.NoError(t, err)
		w := zip.NewWriter(f)
		entry, err := w.Create("game.gb")
		require.NoError(t, err)
		_, err = entry.Write(rom)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, f.Close())
	}

	for _, path := range []string{plain, gz, zipped} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			cart := NewCartridge()
			banks, err := cart.Load(path)
			require.NoError(t, err)
			assert.Len(t, banks.ROM, 8)
			assert.Equal(t, xxhash.Sum64(rom), cart.Fingerprint())
		})
	}
}

func TestCartridgeTypeNames(t *testing.T) {
	assert.Equal(t, "ROM ONLY", ROMOnly.String())
	assert.Equal(t, "MBC5+RUMBLE+RAM+BATTERY", MBC5RumbleRAMBattery.String())
	assert.Equal(t, "UNKNOWN(0x42)", CartridgeType(0x42).String())
	assert.True(t, MBC3TimerRAMBattery.HasBattery())
	assert.False(t, MBC1.HasBattery())
	assert.Equal(t, MapperMBC3, MBC3TimerBattery.Mapper())
	assert.Equal(t, MapperUnsupported, HuC3.Mapper())
}

func TestCleanGameboyTitle(t *testing.T) {
	assert.Equal(t, "TETRIS", cleanGameboyTitle([]byte("TETRIS\x00\x00\x00")))
	assert.Equal(t, "(Untitled)", cleanGameboyTitle(make([]byte, 16)))
	assert.Equal(t, "A?B", cleanGameboyTitle([]byte{'A', 0x07, 'B'}))
}
