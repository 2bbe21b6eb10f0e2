package hydra

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/valerio/go-hydra/hydra/debug"
)

// State is the lifecycle stage of a Session.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session owns a console and its breakpoint set, and runs the console on a
// single goroutine. Pause, Resume, RequestStep and Stop may be called from
// any goroutine; they take effect between two steps.
type Session struct {
	// OnBreak is called from the run goroutine when a breakpoint pauses
	// the session. It must not call back into Run.
	OnBreak func(hit *BreakError)

	mu          sync.Mutex // serialises console access
	console     Console
	breakpoints *debug.Breakpoints

	loaded  atomic.Bool
	busy    atomic.Bool // held by Run, Load and Step for their whole duration
	running atomic.Bool
	paused  atomic.Bool
	stopped atomic.Bool
	pending atomic.Int32 // single steps requested while paused
	steps   atomic.Uint64

	wake chan struct{}
}

// NewSession creates a session around a new console of the given kind.
func NewSession(kind Kind, opts ...Option) (*Session, error) {
	s := &Session{
		breakpoints: &debug.Breakpoints{},
		wake:        make(chan struct{}, 1),
	}
	opts = append(opts, withBreakpoints(s.breakpoints))

	console, err := NewConsole(kind, opts...)
	if err != nil {
		return nil, err
	}
	s.console = console
	return s, nil
}

// Console returns the console driven by this session. It must not be used
// while Run is active.
func (s *Session) Console() Console {
	return s.console
}

func (s *Session) State() State {
	switch {
	case s.stopped.Load():
		return StateStopped
	case s.running.Load() && s.paused.Load():
		return StatePaused
	case s.running.Load():
		return StateRunning
	case s.loaded.Load():
		return StateLoaded
	}
	return StateIdle
}

// Steps returns the number of steps executed since the last load.
func (s *Session) Steps() uint64 {
	return s.steps.Load()
}

// Load loads path into the console. It fails once the session is stopped
// or while Run or another Load or Step is in progress.
func (s *Session) Load(path string) error {
	if s.stopped.Load() || !s.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: cannot load while %s", ErrInvalidSessionState, s.State())
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.console.Load(path); err != nil {
		return err
	}
	s.console.Reset()
	s.steps.Store(0)
	s.loaded.Store(true)
	return nil
}

// MarkLoaded is for consoles that were set up directly through Console(),
// for instance by writing registers, rather than by Load.
func (s *Session) MarkLoaded() {
	s.loaded.Store(true)
}

func (s *Session) ready() error {
	if s.stopped.Load() {
		return fmt.Errorf("%w: session stopped", ErrInvalidSessionState)
	}
	if !s.loaded.Load() {
		return fmt.Errorf("%w: nothing loaded", ErrInvalidSessionState)
	}
	return nil
}

func (s *Session) AddBreakpoint(bp debug.Breakpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.console.AddBreakpoint(bp)
}

func (s *Session) RemoveBreakpoint(bp debug.Breakpoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breakpoints.Remove(bp)
}

func (s *Session) Breakpoints() []debug.Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breakpoints.All()
}

// Snapshot returns the console state at the last step boundary.
func (s *Session) Snapshot() debug.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.console.Snapshot()
}

// Frame returns a copy of the console's last completed frame, or nil when
// the console has no picture. It is safe to call while Run is active.
func (s *Session) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.console.Framebuffer()
	if src == nil {
		return nil
	}
	frame := image.NewRGBA(src.Rect)
	copy(frame.Pix, src.Pix)
	return frame
}

// Step executes a single step synchronously. It is only allowed while Run
// is not active; use RequestStep to step a paused Run.
func (s *Session) Step() (debug.Snapshot, error) {
	if err := s.ready(); err != nil {
		return debug.Snapshot{}, err
	}
	if !s.busy.CompareAndSwap(false, true) {
		return debug.Snapshot{}, fmt.Errorf("%w: session is busy", ErrInvalidSessionState)
	}
	defer s.busy.Store(false)

	if _, err := s.step(); err != nil {
		return debug.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// step runs one console step. A breakpoint hit is not an error.
func (s *Session) step() (*BreakError, error) {
	s.mu.Lock()
	_, err := s.console.Step()
	s.mu.Unlock()
	s.steps.Add(1)

	var hit *BreakError
	if errors.As(err, &hit) {
		return hit, nil
	}
	return nil, err
}

// Pause stops Run before its next step. Pausing before Run makes it start
// paused.
func (s *Session) Pause() error {
	if err := s.ready(); err != nil {
		return err
	}
	s.paused.Store(true)
	s.notify()
	return nil
}

func (s *Session) Resume() error {
	if err := s.ready(); err != nil {
		return err
	}
	s.pending.Store(0)
	s.paused.Store(false)
	s.notify()
	return nil
}

// RequestStep asks a paused Run to execute one more step.
func (s *Session) RequestStep() error {
	if err := s.ready(); err != nil {
		return err
	}
	if !s.paused.Load() {
		return fmt.Errorf("%w: step requested while not paused", ErrInvalidSessionState)
	}
	s.pending.Add(1)
	s.notify()
	return nil
}

// Stop ends the session. Run returns before its next step and every later
// operation fails with ErrInvalidSessionState.
func (s *Session) Stop() {
	s.stopped.Store(true)
	s.notify()
}

func (s *Session) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run steps the console until Stop is called, ctx is cancelled or the
// console fails. A breakpoint hit pauses the session and calls OnBreak.
func (s *Session) Run(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !s.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: session is busy", ErrInvalidSessionState)
	}
	defer s.busy.Store(false)
	s.running.Store(true)
	defer s.running.Store(false)

	for {
		if s.stopped.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.paused.Load() {
			if s.pending.Load() > 0 {
				s.pending.Add(-1)
				if err := s.runStep(); err != nil {
					return err
				}
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.wake:
			}
			continue
		}

		if err := s.runStep(); err != nil {
			return err
		}
	}
}

func (s *Session) runStep() error {
	hit, err := s.step()
	if err != nil {
		return err
	}
	if hit != nil {
		s.paused.Store(true)
		s.pending.Store(0)
		slog.Info("Paused at breakpoint", "breakpoint", hit.Breakpoint.String(), "pc", fmt.Sprintf("0x%04X", hit.Snapshot.Registers.PC))
		if s.OnBreak != nil {
			s.OnBreak(hit)
		}
	}
	return nil
}
