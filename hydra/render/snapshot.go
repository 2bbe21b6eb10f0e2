package render

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash"
	"golang.org/x/image/bmp"
)

// ErrUnsupportedFormat is returned for snapshot paths that are neither .png
// nor .bmp.
var ErrUnsupportedFormat = errors.New("unsupported snapshot format")

// EncodeFrame writes frame to w as "png" or "bmp".
func EncodeFrame(w io.Writer, frame image.Image, format string) error {
	switch strings.ToLower(format) {
	case "png":
		return png.Encode(w, frame)
	case "bmp":
		return bmp.Encode(w, frame)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// SaveFrame writes frame to path, picking the encoding from the extension.
func SaveFrame(path string, frame *image.RGBA) error {
	if frame == nil || frame.Rect.Empty() {
		return errors.New("no frame data available for snapshot")
	}

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if err := EncodeFrame(file, frame, format); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	slog.Info("Snapshot saved", "path", path, "size", fmt.Sprintf("%dx%d", frame.Rect.Dx(), frame.Rect.Dy()))
	return nil
}

// SnapshotPath builds a timestamped file name such as
// hydra_snapshot_20240102_150405.png inside dir.
func SnapshotPath(dir, base, format string, now time.Time) string {
	name := fmt.Sprintf("%s_%s.%s", base, now.Format("20060102_150405"), format)
	return filepath.Join(dir, name)
}

// FrameDigest hashes the visible pixels of frame. Equal pictures give equal
// digests regardless of stride.
func FrameDigest(frame *image.RGBA) uint64 {
	if frame == nil {
		return 0
	}
	rowBytes := frame.Rect.Dx() * 4
	if frame.Stride == rowBytes {
		start := frame.PixOffset(frame.Rect.Min.X, frame.Rect.Min.Y)
		return xxhash.Sum64(frame.Pix[start : start+rowBytes*frame.Rect.Dy()])
	}

	h := xxhash.New()
	for y := frame.Rect.Min.Y; y < frame.Rect.Max.Y; y++ {
		start := frame.PixOffset(frame.Rect.Min.X, y)
		h.Write(frame.Pix[start : start+rowBytes])
	}
	return h.Sum64()
}
