package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli"
	"github.com/valerio/go-hydra/hydra"
	"github.com/valerio/go-hydra/hydra/addr"
	"github.com/valerio/go-hydra/hydra/debug"
	"github.com/valerio/go-hydra/hydra/memory"
	"github.com/valerio/go-hydra/hydra/render"
	"github.com/valerio/go-hydra/hydra/video"
)

var cartCommand = cli.Command{
	Name:      "cart",
	Usage:     "Print the header and banking layout of a Game Boy ROM",
	ArgsUsage: "<ROM file>",
	Action:    runCart,
}

var timerCommand = cli.Command{
	Name:      "timer",
	Usage:     "Clock the Game Boy timer headlessly and print its registers",
	ArgsUsage: "[ROM file]",
	Flags: []cli.Flag{
		cli.IntFlag{
			Name:  "steps",
			Usage: "Number of CPU steps to run",
			Value: 1000,
		},
		cli.StringFlag{
			Name:  "tac",
			Usage: "Initial TAC value",
			Value: "0x05",
		},
		cli.StringFlag{
			Name:  "tma",
			Usage: "Initial TMA value",
			Value: "0x00",
		},
		cli.StringFlag{
			Name:  "break",
			Usage: "Stop early when PC reaches this address",
		},
	},
	Action: runTimer,
}

var videoFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "format",
		Usage: "Pixel size in bits: 16 or 32",
		Value: 16,
	},
	cli.IntFlag{
		Name:  "width",
		Usage: "Framebuffer line stride in pixels (VI_WIDTH)",
		Value: 320,
	},
	cli.IntFlag{
		Name:  "origin",
		Usage: "Framebuffer offset in RDRAM (VI_ORIGIN)",
	},
	cli.StringFlag{
		Name:  "h-video",
		Usage: "Horizontal active area as START:END",
		Value: "0:320",
	},
	cli.StringFlag{
		Name:  "v-video",
		Usage: "Vertical active area in half-lines as START:END",
		Value: "0:480",
	},
	cli.IntFlag{
		Name:  "x-scale",
		Usage: "Horizontal scale, 2.10 fixed point (0 means 0.5)",
		Value: 1024,
	},
	cli.IntFlag{
		Name:  "y-scale",
		Usage: "Vertical scale, 2.10 fixed point (0 means 0.5)",
		Value: 1024,
	},
	cli.IntFlag{
		Name:  "rdram",
		Usage: "RDRAM size in bytes",
		Value: hydra.DefaultRDRAMSize,
	},
}

var viCommand = cli.Command{
	Name:      "vi",
	Usage:     "Render an RDRAM dump through the N64 video interface",
	ArgsUsage: "<RDRAM dump>",
	Flags: append([]cli.Flag{
		cli.StringFlag{
			Name:  "snapshot",
			Usage: "Write the frame to this .png or .bmp file",
		},
		cli.BoolFlag{
			Name:  "display",
			Usage: "Show the frame in the terminal",
		},
	}, videoFlags...),
	Action: runVI,
}

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "Run a console interactively in the terminal",
	ArgsUsage: "<ROM or RDRAM dump>",
	Flags: append([]cli.Flag{
		cli.StringFlag{
			Name:  "console",
			Usage: "Console core: gameboy or n64",
			Value: "gameboy",
		},
		cli.StringFlag{
			Name:  "break",
			Usage: "Pause when PC reaches this address (gameboy)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory for snapshots taken with the s key",
			Value: ".",
		},
		cli.BoolFlag{
			Name:  "paused",
			Usage: "Start paused",
		},
	}, videoFlags...),
	Action: runInteractive,
}

func requireArg(c *cli.Context, what string) (string, error) {
	if c.NArg() == 0 {
		cli.ShowCommandHelp(c, c.Command.Name)
		return "", fmt.Errorf("no %s provided", what)
	}
	return c.Args().Get(0), nil
}

func runCart(c *cli.Context) error {
	path, err := requireArg(c, "ROM path")
	if err != nil {
		return err
	}

	cart := memory.NewCartridge()
	if _, err := cart.Load(path); err != nil {
		return err
	}

	h := cart.Header()
	w := c.App.Writer
	fmt.Fprintf(w, "Title:       %s\n", h.Title)
	fmt.Fprintf(w, "Type:        %s (0x%02X)\n", h.Type, uint8(h.Type))
	fmt.Fprintf(w, "Mapper:      %s\n", h.Type.Mapper())
	fmt.Fprintf(w, "Battery:     %t\n", h.Type.HasBattery())
	fmt.Fprintf(w, "ROM:         %d banks, %d bytes\n", cart.ROMBankCount(), cart.ROMSize())
	fmt.Fprintf(w, "RAM:         %d banks, %d bytes\n", cart.RAMBankCount(), cart.RAMSize())
	fmt.Fprintf(w, "CGB flag:    0x%02X (CGB only: %t)\n", h.CGBFlag, h.CGBOnly())
	fmt.Fprintf(w, "Checksum:    0x%02X (valid: %t)\n", h.HeaderChecksum, cart.HeaderChecksumOK())
	fmt.Fprintf(w, "Fingerprint: %016x\n", cart.Fingerprint())
	return nil
}

func runTimer(c *cli.Context) error {
	steps := c.Int("steps")
	if steps <= 0 {
		return errors.New("--steps must be positive")
	}
	tac, err := parseByte(c.String("tac"))
	if err != nil {
		return fmt.Errorf("invalid --tac: %w", err)
	}
	tma, err := parseByte(c.String("tma"))
	if err != nil {
		return fmt.Errorf("invalid --tma: %w", err)
	}

	gb := hydra.NewGameBoy()
	if c.NArg() > 0 {
		if err := gb.Load(c.Args().Get(0)); err != nil {
			return err
		}
	}
	if pc := c.String("break"); pc != "" {
		bp, err := parseBreakpoint(pc)
		if err != nil {
			return err
		}
		if err := gb.AddBreakpoint(bp); err != nil {
			return err
		}
	}

	bus := gb.Bus()
	bus.Write(addr.TAC, tac)
	bus.Write(addr.TMA, tma)

	overflows := 0
	for range steps {
		_, err := gb.Step()
		var hit *hydra.BreakError
		if errors.As(err, &hit) {
			fmt.Fprintln(c.App.Writer, hit.Error())
			break
		}
		if err != nil {
			return err
		}
		if gb.Timer().Pending() {
			overflows++
		}
	}

	snap := gb.Snapshot()
	w := c.App.Writer
	fmt.Fprintf(w, "steps=%d cycles=%d overflows=%d\n", snap.Steps, snap.Cycles, overflows)
	fmt.Fprintf(w, "DIV=0x%02X TIMA=0x%02X TMA=0x%02X TAC=0x%02X IF=0x%02X\n",
		bus.Read(addr.DIV), bus.Read(addr.TIMA), bus.Read(addr.TMA), bus.Read(addr.TAC), bus.Read(addr.IF))
	return nil
}

func runVI(c *cli.Context) error {
	path, err := requireArg(c, "RDRAM dump")
	if err != nil {
		return err
	}

	s, err := hydra.NewSession(hydra.KindN64, hydra.WithRDRAMSize(c.Int("rdram")))
	if err != nil {
		return err
	}
	if err := s.Load(path); err != nil {
		return err
	}
	n64 := s.Console().(*hydra.N64)
	if err := programVI(c, n64.VI()); err != nil {
		return err
	}
	n64.VI().Redraw()

	frame := s.Frame()
	w := c.App.Writer
	if n64.VI().BlackedOut() {
		fmt.Fprintln(w, "blacked out")
	} else {
		fmt.Fprintf(w, "%dx%d digest=%016x\n", frame.Rect.Dx(), frame.Rect.Dy(), render.FrameDigest(frame))
	}

	if out := c.String("snapshot"); out != "" {
		if err := render.SaveFrame(out, frame); err != nil {
			return err
		}
	}

	if c.Bool("display") {
		term, err := render.NewTerminal(".")
		if err != nil {
			return err
		}
		if err := s.Pause(); err != nil {
			return err
		}
		return term.Run(context.Background(), s)
	}
	return nil
}

func runInteractive(c *cli.Context) error {
	path, err := requireArg(c, "ROM or RDRAM dump")
	if err != nil {
		return err
	}
	kind, err := hydra.ParseKind(c.String("console"))
	if err != nil {
		return err
	}

	s, err := hydra.NewSession(kind, hydra.WithRDRAMSize(c.Int("rdram")))
	if err != nil {
		return err
	}
	if err := s.Load(path); err != nil {
		return err
	}

	if n64, ok := s.Console().(*hydra.N64); ok {
		if err := programVI(c, n64.VI()); err != nil {
			return err
		}
	}
	if pc := c.String("break"); pc != "" {
		bp, err := parseBreakpoint(pc)
		if err != nil {
			return err
		}
		if err := s.AddBreakpoint(bp); err != nil {
			return err
		}
	}
	if c.Bool("paused") {
		if err := s.Pause(); err != nil {
			return err
		}
	}

	dir := c.String("snapshot-dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	term, err := render.NewTerminal(dir)
	if err != nil {
		return err
	}
	return term.Run(context.Background(), s)
}

// programVI writes the video flags into the VI registers. ORIGIN goes last
// since it binds the framebuffer.
func programVI(c *cli.Context, vi *video.VI) error {
	var mode video.PixelMode
	switch c.Int("format") {
	case 16:
		mode = video.PixelMode16
	case 32:
		mode = video.PixelMode32
	default:
		return fmt.Errorf("invalid --format %d, want 16 or 32", c.Int("format"))
	}
	hVideo, err := parseSpan(c.String("h-video"))
	if err != nil {
		return fmt.Errorf("invalid --h-video: %w", err)
	}
	vVideo, err := parseSpan(c.String("v-video"))
	if err != nil {
		return fmt.Errorf("invalid --v-video: %w", err)
	}

	vi.WriteWord(addr.VICtrl, uint32(mode))
	vi.WriteWord(addr.VIWidth, uint32(c.Int("width")))
	vi.WriteWord(addr.VIHVideo, hVideo)
	vi.WriteWord(addr.VIVVideo, vVideo)
	vi.WriteWord(addr.VIXScale, uint32(c.Int("x-scale")))
	vi.WriteWord(addr.VIYScale, uint32(c.Int("y-scale")))
	vi.WriteWord(addr.VIOrigin, uint32(c.Int("origin")))
	return nil
}

// parseSpan turns "START:END" into the packed end | start<<16 register
// layout used by H_VIDEO and V_VIDEO.
func parseSpan(s string) (uint32, error) {
	startText, endText, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%q is not START:END", s)
	}
	start, err := strconv.ParseUint(startText, 0, 10)
	if err != nil {
		return 0, err
	}
	end, err := strconv.ParseUint(endText, 0, 10)
	if err != nil {
		return 0, err
	}
	return uint32(end) | uint32(start)<<16, nil
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return uint8(v), err
}

func parseBreakpoint(s string) (debug.Breakpoint, error) {
	pc, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return debug.Breakpoint{}, fmt.Errorf("invalid breakpoint address %q: %w", s, err)
	}
	return debug.AtPC(uint16(pc)), nil
}
