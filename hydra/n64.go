package hydra

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/valerio/go-hydra/hydra/debug"
	"github.com/valerio/go-hydra/hydra/memory"
	"github.com/valerio/go-hydra/hydra/video"
)

// N64 drives the video interface over a block of RDRAM. There is no CPU:
// each step advances the clock by one video half-line.
type N64 struct {
	rdram []byte
	mi    *video.MI
	vi    *video.VI

	cycles uint64
	steps  uint64
	frames uint64
}

func NewN64(opts ...Option) *N64 {
	cfg := newConfig(opts)
	rdram := make([]byte, cfg.rdramSize)
	mi := &video.MI{}

	return &N64{
		rdram: rdram,
		mi:    mi,
		vi:    video.NewVI(rdram, mi),
	}
}

func (n *N64) Kind() Kind {
	return KindN64
}

// Load copies a raw RDRAM dump (optionally compressed) to the start of
// memory. Images larger than RDRAM are truncated.
func (n *N64) Load(path string) error {
	data, err := memory.ReadImage(path)
	if err != nil {
		return fmt.Errorf("failed to load RDRAM image: %w", err)
	}
	if len(data) > len(n.rdram) {
		slog.Warn("RDRAM image truncated", "size", len(data), "rdram", len(n.rdram))
	}
	clear(n.rdram)
	copied := copy(n.rdram, data)
	slog.Info("Loaded RDRAM image", "bytes", copied)
	return nil
}

// Reset restores the video registers. RDRAM contents are kept.
func (n *N64) Reset() {
	n.vi.Reset()
	n.mi.VI = false
	n.cycles = 0
	n.steps = 0
	n.frames = 0
}

// Step advances one half-line and redraws the frame at vertical blank.
func (n *N64) Step() (int, error) {
	cycles := n.vi.CyclesPerHalfline()
	if n.vi.Tick(cycles) {
		n.vi.Redraw()
		n.frames++
	}
	n.cycles += uint64(cycles)
	n.steps++
	return cycles, nil
}

// Snapshot carries counters only; registers are always zero.
func (n *N64) Snapshot() debug.Snapshot {
	return debug.Snapshot{Cycles: n.cycles, Steps: n.steps}
}

func (n *N64) AddBreakpoint(debug.Breakpoint) error {
	return ErrBreakpointsUnsupported
}

func (n *N64) Framebuffer() *image.RGBA {
	return n.vi.Image()
}

func (n *N64) VI() *video.VI {
	return n.vi
}

func (n *N64) RDRAM() []byte {
	return n.rdram
}

// Frames counts the vertical blanks seen since reset.
func (n *N64) Frames() uint64 {
	return n.frames
}
