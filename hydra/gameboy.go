package hydra

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/valerio/go-hydra/hydra/addr"
	"github.com/valerio/go-hydra/hydra/debug"
	"github.com/valerio/go-hydra/hydra/memory"
)

// GameBoy wires a CPU to the timer and interrupt registers and a cartridge.
type GameBoy struct {
	cpu         CPU
	bus         *memory.Bus
	timer       *memory.Timer
	cart        *memory.Cartridge
	banks       *memory.Banks
	mmu         *memory.MMU
	breakpoints *debug.Breakpoints

	interruptFlags memory.Reg

	cycles uint64
	steps  uint64
}

// NewGameBoy creates a console with no cartridge inserted.
func NewGameBoy(opts ...Option) *GameBoy {
	cfg := newConfig(opts)
	bus := memory.NewBus()

	g := &GameBoy{
		cpu:            cfg.cpu,
		bus:            bus,
		timer:          memory.NewTimer(bus),
		cart:           memory.NewCartridge(),
		mmu:            memory.NewMMU(bus, nil),
		breakpoints:    cfg.breakpoints,
		interruptFlags: bus.GetReference(addr.IF),
	}
	g.Reset()
	return g
}

func (g *GameBoy) Kind() Kind {
	return KindGameBoy
}

// Load inserts the cartridge at path and resets the console.
func (g *GameBoy) Load(path string) error {
	banks, err := g.cart.Load(path)
	if err != nil {
		return err
	}
	g.insert(banks)
	return nil
}

// LoadBytes inserts a cartridge image already in memory.
func (g *GameBoy) LoadBytes(name string, data []byte) error {
	banks, err := g.cart.LoadBytes(name, data)
	if err != nil {
		return err
	}
	g.insert(banks)
	return nil
}

func (g *GameBoy) insert(banks *memory.Banks) {
	g.banks = banks
	kind := g.cart.CartridgeType().Mapper()
	g.mmu = memory.NewMMU(g.bus, memory.NewMapper(kind, banks))
	slog.Debug("Cartridge inserted", "title", g.cart.Header().Title, "mapper", kind)
	g.Reset()
}

// Reset returns the CPU and peripherals to their power-on state. The
// cartridge stays inserted.
func (g *GameBoy) Reset() {
	g.bus.Reset()
	g.timer.Reset()
	g.mmu.Reset()
	g.cpu.Reset()
	g.cycles = 0
	g.steps = 0
}

// Step executes one CPU instruction and clocks the timer with its cycles.
func (g *GameBoy) Step() (int, error) {
	// the timer needs IF as it was before the instruction could touch it
	oldIF := g.interruptFlags.Get()
	cycles := g.cpu.Step(g.mmu)
	if cycles <= 0 {
		return 0, fmt.Errorf("CPU step returned %d cycles", cycles)
	}
	g.timer.Update(cycles, oldIF)

	g.cycles += uint64(cycles)
	g.steps++

	if bp, ok := g.breakpoints.Match(g.cpu.Registers()); ok {
		return cycles, &BreakError{Breakpoint: bp, Snapshot: g.Snapshot()}
	}
	return cycles, nil
}

func (g *GameBoy) Snapshot() debug.Snapshot {
	return debug.Snapshot{
		Registers: g.cpu.Registers(),
		Cycles:    g.cycles,
		Steps:     g.steps,
	}
}

func (g *GameBoy) AddBreakpoint(bp debug.Breakpoint) error {
	g.breakpoints.Add(bp)
	return nil
}

// Framebuffer is always nil: the picture processing unit is not emulated.
func (g *GameBoy) Framebuffer() *image.RGBA {
	return nil
}

func (g *GameBoy) Bus() *memory.Bus {
	return g.bus
}

func (g *GameBoy) Timer() *memory.Timer {
	return g.timer
}

func (g *GameBoy) Cartridge() *memory.Cartridge {
	return g.cart
}

// Banks returns the storage of the inserted cartridge, or nil.
func (g *GameBoy) Banks() *memory.Banks {
	return g.banks
}

func (g *GameBoy) MMU() *memory.MMU {
	return g.mmu
}
