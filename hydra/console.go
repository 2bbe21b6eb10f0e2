package hydra

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/valerio/go-hydra/hydra/debug"
)

var (
	// ErrInvalidSessionState is returned by session operations issued
	// before a load or after a stop.
	ErrInvalidSessionState = errors.New("invalid session state")
	// ErrBreakpointsUnsupported is returned by consoles that expose no CPU
	// registers to match against.
	ErrBreakpointsUnsupported = errors.New("breakpoints not supported by this console")
	// ErrUnknownConsole is returned for a console kind or name that has no core.
	ErrUnknownConsole = errors.New("unknown console")
)

// Kind identifies one of the supported console cores.
type Kind uint8

const (
	KindGameBoy Kind = iota + 1
	KindN64
)

func (k Kind) String() string {
	switch k {
	case KindGameBoy:
		return "gameboy"
	case KindN64:
		return "n64"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind accepts the names printed by Kind.String plus a few aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "gameboy", "gb", "dmg":
		return KindGameBoy, nil
	case "n64":
		return KindN64, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownConsole, name)
}

// Console is the capability set shared by every console core.
type Console interface {
	Kind() Kind
	Reset()
	// Step runs the smallest unit of work the console supports and returns
	// the cycles it took. A *BreakError is returned, after the step has
	// completed, when a breakpoint matches the resulting registers.
	Step() (int, error)
	Snapshot() debug.Snapshot
	AddBreakpoint(bp debug.Breakpoint) error
	Load(path string) error
	// Framebuffer returns the last completed frame, or nil when the console
	// produces no picture.
	Framebuffer() *image.RGBA
}

var (
	_ Console = (*GameBoy)(nil)
	_ Console = (*N64)(nil)
)

// BreakError reports that execution reached a breakpoint.
type BreakError struct {
	Breakpoint debug.Breakpoint
	Snapshot   debug.Snapshot
}

func (e *BreakError) Error() string {
	return fmt.Sprintf("breakpoint %s hit at PC=0x%04X", e.Breakpoint, e.Snapshot.Registers.PC)
}

// NewConsole creates the console core selected by kind.
func NewConsole(kind Kind, opts ...Option) (Console, error) {
	switch kind {
	case KindGameBoy:
		return NewGameBoy(opts...), nil
	case KindN64:
		return NewN64(opts...), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownConsole, kind)
}
