package addr

// N64 video interface registers, physical addresses.
// Reference: https://n64brew.dev/wiki/Video_Interface
const (
	// VICtrl holds the pixel format (bits 1-0), gamma/dither options and
	// the serrate/interlace bit (bit 6).
	VICtrl uint32 = 0x04400000
	// VIOrigin is the RDRAM address of the framebuffer.
	VIOrigin uint32 = 0x04400004
	// VIWidth is the framebuffer line stride, in pixels.
	VIWidth uint32 = 0x04400008
	// VIVIntr is the half-line at which the VI interrupt fires.
	VIVIntr uint32 = 0x0440000C
	// VIVCurrent is the current half-line. Writing it acknowledges the VI interrupt.
	VIVCurrent uint32 = 0x04400010
	VIBurst    uint32 = 0x04400014
	// VIVSync is the number of half-lines per field.
	VIVSync     uint32 = 0x04400018
	VIHSync     uint32 = 0x0440001C
	VIHSyncLeap uint32 = 0x04400020
	// VIHVideo packs the active horizontal range as end | start<<16.
	VIHVideo uint32 = 0x04400024
	// VIVVideo packs the active vertical range as end | start<<16.
	VIVVideo   uint32 = 0x04400028
	VIVBurst   uint32 = 0x0440002C
	VIXScale   uint32 = 0x04400030
	VIYScale   uint32 = 0x04400034
	VITestAddr uint32 = 0x04400038
	// VIStagedData is the test data register.
	VIStagedData uint32 = 0x0440003C
)
