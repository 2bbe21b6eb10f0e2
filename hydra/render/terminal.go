package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/go-hydra/hydra"
)

const frameTime = time.Second / 60

// halfBlock shows the upper pixel as foreground and the lower one as
// background, so each cell carries two rows.
const halfBlock = '▀'

// Terminal presents frames on a tcell screen and forwards keys to a session.
type Terminal struct {
	screen      tcell.Screen
	snapshotDir string
}

// NewTerminal initialises the controlling terminal.
func NewTerminal(snapshotDir string) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	return NewTerminalWithScreen(screen, snapshotDir), nil
}

// NewTerminalWithScreen uses an already initialised screen.
func NewTerminalWithScreen(screen tcell.Screen, snapshotDir string) *Terminal {
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()
	return &Terminal{screen: screen, snapshotDir: snapshotDir}
}

// Run drives s until the user quits, ctx is cancelled, a termination signal
// arrives or the session fails. The screen is released on return.
func (t *Terminal) Run(ctx context.Context, s *hydra.Session) error {
	defer func() {
		slog.Info("Finishing terminal")
		t.screen.Fini()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx)
	}()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go t.screen.ChannelEvents(events, quit)

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	for {
		select {
		case err := <-runErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case ev := <-events:
			if ev != nil && !t.HandleEvent(ev, s) {
				s.Stop()
			}
		case <-ticker.C:
			t.Draw(s.Frame())
			t.drawStatus(s)
			t.screen.Show()
		}
	}
}

// HandleEvent applies a terminal event to s. It returns false when the user
// asked to quit.
func (t *Terminal) HandleEvent(ev tcell.Event, s *hydra.Session) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				t.togglePause(s)
			case 'n':
				if err := s.RequestStep(); err != nil {
					slog.Debug("Step ignored", "error", err)
				}
			case 's':
				t.saveSnapshot(s)
			}
		}
	case *tcell.EventResize:
		t.screen.Sync()
	}
	return true
}

func (t *Terminal) togglePause(s *hydra.Session) {
	var err error
	if s.State() == hydra.StatePaused {
		err = s.Resume()
	} else {
		err = s.Pause()
	}
	if err != nil {
		slog.Warn("Pause toggle failed", "error", err)
	}
}

func (t *Terminal) saveSnapshot(s *hydra.Session) {
	frame := s.Frame()
	if frame == nil {
		slog.Warn("No frame data available for snapshot")
		return
	}
	path := SnapshotPath(t.snapshotDir, "hydra_snapshot", "png", time.Now())
	if err := SaveFrame(path, frame); err != nil {
		slog.Error("Failed to save snapshot", "error", err)
	}
}

// Draw paints frame scaled to fit the screen above the status line, keeping
// its aspect ratio. A nil or empty frame clears the picture area.
func (t *Terminal) Draw(frame *image.RGBA) {
	t.screen.Clear()
	cols, rows := t.screen.Size()
	rows-- // status line

	if frame == nil || frame.Rect.Empty() || cols <= 0 || rows <= 0 {
		return
	}

	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	// each cell is one pixel wide and two pixels tall
	scale := min(float64(cols)/float64(fw), float64(rows*2)/float64(fh))
	outW := max(int(float64(fw)*scale), 1)
	outH := max(int(float64(fh)*scale), 1)

	for cy := 0; cy*2 < outH; cy++ {
		for cx := 0; cx < outW; cx++ {
			srcX := frame.Rect.Min.X + cx*fw/outW
			top := frame.RGBAAt(srcX, frame.Rect.Min.Y+(cy*2)*fh/outH)
			style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B)))
			if cy*2+1 < outH {
				bottom := frame.RGBAAt(srcX, frame.Rect.Min.Y+(cy*2+1)*fh/outH)
				style = style.Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			} else {
				style = style.Background(tcell.ColorBlack)
			}
			t.screen.SetContent(cx, cy, halfBlock, nil, style)
		}
	}
}

func (t *Terminal) drawStatus(s *hydra.Session) {
	_, rows := t.screen.Size()
	snap := s.Snapshot()
	line := fmt.Sprintf(" %s | steps=%d cycles=%d | q=quit SPACE=pause/resume n=step s=snapshot",
		s.State(), snap.Steps, snap.Cycles)

	style := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	for i, r := range []rune(line) {
		t.screen.SetContent(i, rows-1, r, nil, style)
	}
}
