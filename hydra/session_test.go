package hydra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-hydra/hydra/addr"
	"github.com/valerio/go-hydra/hydra/debug"
	"github.com/valerio/go-hydra/hydra/video"
)

const waitFor = 2 * time.Second

func newLoadedSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(KindGameBoy)
	require.NoError(t, err)
	require.NoError(t, s.Load(writeROM(t)))
	return s
}

// startRun runs s in the background and returns the channel its result is
// delivered on.
func startRun(ctx context.Context, s *Session) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestSessionRequiresLoad(t *testing.T) {
	s, err := NewSession(KindGameBoy)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, s.State())

	_, err = s.Step()
	assert.ErrorIs(t, err, ErrInvalidSessionState)
	assert.ErrorIs(t, s.Run(context.Background()), ErrInvalidSessionState)
	assert.ErrorIs(t, s.Pause(), ErrInvalidSessionState)
	assert.ErrorIs(t, s.Resume(), ErrInvalidSessionState)
	assert.ErrorIs(t, s.RequestStep(), ErrInvalidSessionState)
}

func TestSessionUnknownKind(t *testing.T) {
	_, err := NewSession(Kind(0))
	assert.ErrorIs(t, err, ErrUnknownConsole)
}

func TestSessionLoadFailureKeepsIdle(t *testing.T) {
	s, err := NewSession(KindGameBoy)
	require.NoError(t, err)

	assert.Error(t, s.Load("does-not-exist.gb"))
	assert.Equal(t, StateIdle, s.State())
}

func TestSessionStep(t *testing.T) {
	s := newLoadedSession(t)
	assert.Equal(t, StateLoaded, s.State())

	snap, err := s.Step()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0101), snap.Registers.PC)
	assert.Equal(t, uint64(4), snap.Cycles)
	assert.Equal(t, uint64(1), s.Steps())

	require.NoError(t, s.AddBreakpoint(debug.AtPC(0x0102)))
	snap, err = s.Step()
	require.NoError(t, err, "a breakpoint is not a step failure")
	assert.Equal(t, uint16(0x0102), snap.Registers.PC)
}

func TestSessionRunStopsAtBreakpoint(t *testing.T) {
	s := newLoadedSession(t)
	require.NoError(t, s.AddBreakpoint(debug.AtPC(0x0110)))

	hits := make(chan *BreakError, 1)
	s.OnBreak = func(hit *BreakError) { hits <- hit }

	done := startRun(context.Background(), s)

	select {
	case hit := <-hits:
		assert.Equal(t, uint16(0x0110), hit.Snapshot.Registers.PC)
		assert.Equal(t, uint64(16), hit.Snapshot.Steps)
	case <-time.After(waitFor):
		t.Fatal("breakpoint not reached")
	}

	assert.Eventually(t, func() bool { return s.State() == StatePaused }, waitFor, time.Millisecond)
	assert.Equal(t, uint64(16), s.Steps())

	require.NoError(t, s.RequestStep())
	assert.Eventually(t, func() bool { return s.Steps() == 17 }, waitFor, time.Millisecond)
	assert.Equal(t, uint16(0x0111), s.Snapshot().Registers.PC)

	s.Stop()
	assert.NoError(t, waitRun(t, done))
	assert.Equal(t, StateStopped, s.State())
	assert.ErrorIs(t, s.Load(writeROM(t)), ErrInvalidSessionState)
	assert.ErrorIs(t, s.Pause(), ErrInvalidSessionState)
}

func TestSessionPauseBeforeRun(t *testing.T) {
	s := newLoadedSession(t)
	require.NoError(t, s.Pause())

	done := startRun(context.Background(), s)
	assert.Eventually(t, func() bool { return s.State() == StatePaused }, waitFor, time.Millisecond)
	assert.Zero(t, s.Steps())

	require.NoError(t, s.RequestStep())
	require.NoError(t, s.RequestStep())
	assert.Eventually(t, func() bool { return s.Steps() == 2 }, waitFor, time.Millisecond)

	require.NoError(t, s.Resume())
	assert.Eventually(t, func() bool { return s.Steps() > 100 }, waitFor, time.Millisecond)
	assert.ErrorIs(t, s.RequestStep(), ErrInvalidSessionState, "stepping needs a paused session")

	_, err := s.Step()
	assert.ErrorIs(t, err, ErrInvalidSessionState, "synchronous steps race with Run")
	assert.ErrorIs(t, s.Run(context.Background()), ErrInvalidSessionState)

	s.Stop()
	assert.NoError(t, waitRun(t, done))
}

func TestSessionRunCancelled(t *testing.T) {
	s := newLoadedSession(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := startRun(ctx, s)
	assert.Eventually(t, func() bool { return s.Steps() > 10 }, waitFor, time.Millisecond)
	cancel()

	assert.ErrorIs(t, waitRun(t, done), context.Canceled)
	assert.Equal(t, StateLoaded, s.State())
}

func TestSessionRunCancelledWhilePaused(t *testing.T) {
	s := newLoadedSession(t)
	require.NoError(t, s.Pause())
	ctx, cancel := context.WithCancel(context.Background())

	done := startRun(ctx, s)
	assert.Eventually(t, func() bool { return s.State() == StatePaused }, waitFor, time.Millisecond)
	cancel()

	assert.ErrorIs(t, waitRun(t, done), context.Canceled)
}

func TestSessionLoadAndStepExcludeRun(t *testing.T) {
	s := newLoadedSession(t)
	require.NoError(t, s.Pause())
	ctx, cancel := context.WithCancel(context.Background())

	done := startRun(ctx, s)
	assert.Eventually(t, func() bool { return s.State() == StatePaused }, waitFor, time.Millisecond)

	assert.ErrorIs(t, s.Load(writeROM(t)), ErrInvalidSessionState)
	_, err := s.Step()
	assert.ErrorIs(t, err, ErrInvalidSessionState)
	assert.Zero(t, s.Steps(), "a rejected Step must not touch the console")

	cancel()
	assert.ErrorIs(t, waitRun(t, done), context.Canceled)

	_, err = s.Step()
	require.NoError(t, err)
	require.NoError(t, s.Load(writeROM(t)))
	assert.Zero(t, s.Steps())

	require.NoError(t, s.Resume())
	ctx, cancel = context.WithCancel(context.Background())
	done = startRun(ctx, s)
	assert.Eventually(t, func() bool { return s.Steps() > 0 }, waitFor, time.Millisecond)
	cancel()
	assert.ErrorIs(t, waitRun(t, done), context.Canceled)
}

func TestSessionBreakpointsAreScoped(t *testing.T) {
	a := newLoadedSession(t)
	b := newLoadedSession(t)

	require.NoError(t, a.AddBreakpoint(debug.AtPC(0x0101)))
	assert.Len(t, a.Breakpoints(), 1)
	assert.Empty(t, b.Breakpoints())

	_, err := b.Step()
	require.NoError(t, err)

	assert.True(t, a.RemoveBreakpoint(debug.AtPC(0x0101)))
	assert.Empty(t, a.Breakpoints())
}

func TestSessionN64(t *testing.T) {
	s, err := NewSession(KindN64, WithRDRAMSize(64))
	require.NoError(t, err)
	assert.ErrorIs(t, s.AddBreakpoint(debug.AtPC(0)), ErrBreakpointsUnsupported)

	s.MarkLoaded()
	snap, err := s.Step()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Steps)
}

func TestSessionFrame(t *testing.T) {
	gb := newLoadedSession(t)
	assert.Nil(t, gb.Frame())

	s, err := NewSession(KindN64, WithRDRAMSize(64))
	require.NoError(t, err)
	n64 := s.Console().(*N64)
	n64.RDRAM()[3] = 0xFF
	vi := n64.VI()
	vi.WriteWord(addr.VICtrl, uint32(video.PixelMode32))
	vi.WriteWord(addr.VIWidth, 1)
	vi.WriteWord(addr.VIHVideo, 1)
	vi.WriteWord(addr.VIVVideo, 2)
	vi.WriteWord(addr.VIXScale, 1024)
	vi.WriteWord(addr.VIYScale, 1024)
	vi.WriteWord(addr.VIOrigin, 0)
	vi.Redraw()

	frame := s.Frame()
	require.NotNil(t, frame)
	assert.Equal(t, []byte{0, 0, 0, 0xFF}, frame.Pix)

	frame.Pix[0] = 0x11
	assert.Equal(t, uint8(0), vi.Framebuffer()[0], "frames are copies")
}
