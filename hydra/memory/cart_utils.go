package memory

import (
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/bodgit/sevenzip"
)

// maxROMImage bounds decompression; the largest licensed cartridge is 8MB.
const maxROMImage = 8 << 20

// cleanGameboyTitle turns the raw title bytes into a printable string.
// NUL padding becomes spaces, anything unprintable becomes '?', and the
// result is trimmed.
func cleanGameboyTitle(titleBytes []byte) string {
	runes := make([]rune, 0, len(titleBytes))
	for _, b := range titleBytes {
		r := rune(b)
		if r == 0 {
			r = ' '
		} else if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			r = '?'
		}
		runes = append(runes, r)
	}

	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(Untitled)"
	}
	return title
}

// ReadImage loads a ROM or memory image, decompressing it when the
// extension says it is an archive. Archives must contain the image as
// their first entry.
func ReadImage(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer zr.Close()
		return readLimited(zr)
	case ".zip":
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		defer zr.Close()

		if len(zr.File) == 0 {
			return nil, fmt.Errorf("%s: empty archive", path)
		}
		rc, err := zr.File[0].Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return readLimited(rc)
	case ".7z":
		zr, err := sevenzip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		defer zr.Close()

		if len(zr.File) == 0 {
			return nil, fmt.Errorf("%s: empty archive", path)
		}
		rc, err := zr.File[0].Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return readLimited(rc)
	default:
		return os.ReadFile(path)
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxROMImage+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxROMImage {
		return nil, fmt.Errorf("decompressed image exceeds %d bytes", maxROMImage)
	}
	return data, nil
}
