package video

import (
	"encoding/binary"
	"fmt"
	"image"
	"log/slog"

	"github.com/valerio/go-hydra/hydra/addr"
	"github.com/valerio/go-hydra/hydra/bit"
)

// PixelMode is the framebuffer format selected by VI_CTRL bits 1-0.
type PixelMode uint8

const (
	PixelModeBlank    PixelMode = 0
	PixelModeReserved PixelMode = 1
	PixelMode16       PixelMode = 2 // RGBA 5-5-5-1
	PixelMode32       PixelMode = 3 // RGBA 8-8-8-8
)

const (
	// scales are 2.10 fixed point
	scaleShift   = 10
	defaultScale = 512

	cpuClock     = 93_750_000
	fieldsPerSec = 60
	// NTSC: 525 lines interlaced
	defaultVSync = 0x20D

	ctrlMask   = 0x1FFFF
	widthMask  = 0xFFF
	lineMask   = 0x3FF
	scaleMask  = 0xFFF
	originMask = 0x00FFFFFF
)

// MI holds the interrupt lines of the MIPS interface that the VI drives.
type MI struct {
	VI bool
}

// VI is the N64 video interface. Register writes only update state; the
// framebuffer is rebuilt from RDRAM when Redraw is called at vertical blank.
type VI struct {
	rdram []byte
	mi    *MI

	ctrl       uint32
	origin     uint32
	width      uint32
	vIntr      uint32
	vCurrent   uint32
	burst      uint32
	vSync      uint32
	hSync      uint32
	hSyncLeap  uint32
	hStart     uint32
	hEnd       uint32
	vStart     uint32
	vEnd       uint32
	vBurst     uint32
	xScale     uint32
	yScale     uint32
	testAddr   uint32
	stagedData uint32

	pixelMode PixelMode
	bound     bool
	submitted uint64

	halflines         uint32
	cyclesPerHalfline int
	halflineCycles    int

	outWidth    int
	outHeight   int
	framebuffer []byte
	blackedOut  bool

	warnedInterlace bool
	warnedMode      bool
}

// NewVI creates a video interface reading framebuffers out of rdram and
// raising its interrupt on mi. A nil mi gets a private one.
func NewVI(rdram []byte, mi *MI) *VI {
	if mi == nil {
		mi = &MI{}
	}
	v := &VI{rdram: rdram, mi: mi}
	v.Reset()
	return v
}

// Reset restores power-on register values and unbinds the source.
func (v *VI) Reset() {
	*v = VI{rdram: v.rdram, mi: v.mi}
	v.vIntr = 0x100
	v.setVSync(defaultVSync)
}

// MI returns the interrupt lines this VI drives.
func (v *VI) MI() *MI {
	return v.mi
}

// Width returns the output width computed by the last rendering Redraw.
func (v *VI) Width() int {
	return v.outWidth
}

// Height returns the output height computed by the last rendering Redraw.
func (v *VI) Height() int {
	return v.outHeight
}

// Framebuffer returns the RGBA output, 4 bytes per pixel.
func (v *VI) Framebuffer() []byte {
	return v.framebuffer
}

// BlackedOut reports whether the last Redraw had nothing valid to show.
func (v *VI) BlackedOut() bool {
	return v.blackedOut
}

// PixelMode returns the format selected in VI_CTRL.
func (v *VI) PixelMode() PixelMode {
	return v.pixelMode
}

// CyclesPerHalfline returns the CPU cycles between two V_CURRENT increments
// for the programmed V_SYNC.
func (v *VI) CyclesPerHalfline() int {
	return v.cyclesPerHalfline
}

// FrameSubmissions counts writes to VI_ORIGIN.
func (v *VI) FrameSubmissions() uint64 {
	return v.submitted
}

// Image wraps the framebuffer without copying it.
func (v *VI) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    v.framebuffer,
		Stride: v.outWidth * 4,
		Rect:   image.Rect(0, 0, v.outWidth, v.outHeight),
	}
}

// ReadWord returns the register at address. Unknown addresses read as 0.
func (v *VI) ReadWord(address uint32) uint32 {
	switch address {
	case addr.VICtrl:
		return v.ctrl
	case addr.VIOrigin:
		return v.origin
	case addr.VIWidth:
		return v.width
	case addr.VIVIntr:
		return v.vIntr
	case addr.VIVCurrent:
		return v.vCurrent
	case addr.VIBurst:
		return v.burst
	case addr.VIVSync:
		return v.vSync
	case addr.VIHSync:
		return v.hSync
	case addr.VIHSyncLeap:
		return v.hSyncLeap
	case addr.VIHVideo:
		return v.hEnd | v.hStart<<16
	case addr.VIVVideo:
		return v.vEnd | v.vStart<<16
	case addr.VIVBurst:
		return v.vBurst
	case addr.VIXScale:
		return v.xScale
	case addr.VIYScale:
		return v.yScale
	case addr.VITestAddr:
		return v.testAddr
	case addr.VIStagedData:
		return v.stagedData
	}

	slog.Warn("VI: unhandled read", "addr", fmt.Sprintf("0x%08X", address))
	return 0
}

// WriteWord stores value into the register at address, masking it to the
// register width.
func (v *VI) WriteWord(address uint32, value uint32) {
	switch address {
	case addr.VICtrl:
		v.ctrl = value & ctrlMask
		v.pixelMode = PixelMode(value & 0b11)
		v.warnedMode = false
		if bit.IsSet32(6, value) && !v.warnedInterlace {
			slog.Warn("VI: interlacing enabled, fields are not woven")
			v.warnedInterlace = true
		}
	case addr.VIOrigin:
		v.origin = value & originMask
		v.bound = v.rdram != nil
		v.submitted++
	case addr.VIWidth:
		v.width = value & widthMask
	case addr.VIVIntr:
		v.vIntr = value & lineMask
	case addr.VIVCurrent:
		// any write acknowledges the interrupt
		v.mi.VI = false
	case addr.VIVSync:
		v.setVSync(value & lineMask)
	case addr.VIHVideo:
		v.hEnd = bit.Field32(value, 0, 10)
		v.hStart = bit.Field32(value, 16, 10)
	case addr.VIVVideo:
		v.vEnd = bit.Field32(value, 0, 10)
		v.vStart = bit.Field32(value, 16, 10)
	case addr.VIXScale:
		v.xScale = value & scaleMask
	case addr.VIYScale:
		v.yScale = value & scaleMask
	case addr.VIBurst, addr.VIHSync, addr.VIHSyncLeap, addr.VIVBurst, addr.VITestAddr, addr.VIStagedData:
		// timing and test registers, accepted and ignored
	default:
		slog.Warn("VI: unhandled write", "addr", fmt.Sprintf("0x%08X", address), "value", fmt.Sprintf("0x%08X", value))
	}
}

func (v *VI) setVSync(value uint32) {
	halflines := value >> 1
	if halflines == 0 {
		slog.Warn("VI: ignoring V_SYNC with no half-lines", "value", value)
		return
	}
	v.vSync = value
	v.halflines = halflines
	v.cyclesPerHalfline = int(cpuClock / fieldsPerSec / halflines)
	if v.vCurrent >= halflines {
		v.vCurrent = 0
	}
}

// Tick advances video timing by cycles CPU cycles. V_CURRENT moves one
// half-line at a time and raises the VI interrupt when it reaches V_INTR.
// It returns true when a field ended during this call.
func (v *VI) Tick(cycles int) bool {
	vblank := false
	v.halflineCycles += cycles
	for v.halflineCycles >= v.cyclesPerHalfline {
		v.halflineCycles -= v.cyclesPerHalfline
		v.vCurrent++
		if v.vCurrent >= v.halflines {
			v.vCurrent = 0
			vblank = true
		}
		if v.vCurrent == v.vIntr {
			v.mi.VI = true
		}
	}
	return vblank
}

// Redraw rebuilds the framebuffer from RDRAM using the current geometry and
// pixel mode. When there is nothing to show the framebuffer is zeroed once
// and keeps its previous size. It never fails.
func (v *VI) Redraw() bool {
	width := max(int(v.hEnd)-int(v.hStart), 0)
	height := max(int(v.vEnd)-int(v.vStart), 0) / 2
	width = (width * scaleOrDefault(v.xScale)) >> scaleShift
	height = (height * scaleOrDefault(v.yScale)) >> scaleShift

	if width == 0 || height == 0 || !v.bound || v.pixelMode == PixelModeBlank {
		if !v.blackedOut {
			clear(v.framebuffer)
			v.blackedOut = true
		}
		return true
	}

	v.blackedOut = false
	v.outWidth = width
	v.outHeight = height
	if size := width * height * 4; len(v.framebuffer) != size {
		v.framebuffer = make([]byte, size)
	}

	switch v.pixelMode {
	case PixelMode32:
		v.draw32()
	case PixelMode16:
		v.draw16()
	default:
		if !v.warnedMode {
			slog.Warn("VI: unsupported pixel mode, keeping previous frame", "mode", v.pixelMode)
			v.warnedMode = true
		}
	}
	return true
}

func (v *VI) draw32() {
	stride := int(v.width)
	for y := range v.outHeight {
		for x := range v.outWidth {
			dst := v.framebuffer[(y*v.outWidth+x)*4:][:4]
			src := int(v.origin) + (y*stride+x)*4
			if src+4 > len(v.rdram) {
				clear(dst)
				continue
			}
			copy(dst, v.rdram[src:src+4])
		}
	}
}

func (v *VI) draw16() {
	stride := int(v.width)
	for y := range v.outHeight {
		for x := range v.outWidth {
			dst := v.framebuffer[(y*v.outWidth+x)*4:][:4]
			src := int(v.origin) + (y*stride+x)*2
			if src+2 > len(v.rdram) {
				clear(dst)
				continue
			}
			color := binary.BigEndian.Uint16(v.rdram[src:])
			dst[0] = bit.Expand5(uint8(color >> 11))
			dst[1] = bit.Expand5(uint8(color >> 6))
			dst[2] = bit.Expand5(uint8(color >> 1))
			dst[3] = 0xFF
		}
	}
}

func scaleOrDefault(scale uint32) int {
	if scale == 0 {
		return defaultScale
	}
	return int(scale)
}
