package memory

import (
	"github.com/valerio/go-hydra/hydra/addr"
	"github.com/valerio/go-hydra/hydra/bit"
)

// timerFrequencies maps TAC input clock select (bits 1-0) to the number of
// CPU cycles per TIMA increment.
//
//	00 -> 1024 (4096 Hz)
//	01 -> 16   (262144 Hz)
//	10 -> 64   (65536 Hz)
//	11 -> 256  (16384 Hz)
var timerFrequencies = [4]int{1024, 16, 64, 256}

// timerState tracks the overflow latency: after TIMA wraps it reads as 0x00
// for one update before being reloaded from TMA.
type timerState uint8

const (
	timerNormal timerState = iota
	timerPendingReload
)

// divResetDone marks that no DIV reset phase is being tracked.
const divResetDone = -1

// Timer emulates DIV/TIMA/TMA/TAC on top of the registers owned by a Bus.
type Timer struct {
	bus *Bus

	div  Reg
	tima Reg
	tma  Reg
	tac  Reg
	ifr  Reg

	oscillator    uint16 // DIV is the upper 8 bits
	counter       int    // cycles accumulated towards the next TIMA increment
	divResetIndex int    // cycles since the last DIV reset, or divResetDone
	oldTAC        uint8
	state         timerState
}

// NewTimer creates a timer bound to the timer and IF registers of bus.
func NewTimer(bus *Bus) *Timer {
	t := &Timer{
		bus:  bus,
		div:  bus.GetReference(addr.DIV),
		tima: bus.GetReference(addr.TIMA),
		tma:  bus.GetReference(addr.TMA),
		tac:  bus.GetReference(addr.TAC),
		ifr:  bus.GetReference(addr.IF),
	}
	t.Reset()
	return t
}

// Reset zeroes the timer registers and all internal counters.
func (t *Timer) Reset() {
	t.div.Set(0)
	t.tac.Set(0)
	t.tima.Set(0)
	t.tma.Set(0)
	t.oscillator = 0
	t.counter = 0
	t.divResetIndex = divResetDone
	t.oldTAC = 0
	t.state = timerNormal
}

// Pending reports whether TIMA overflowed in the previous update and is
// waiting to be reloaded from TMA.
func (t *Timer) Pending() bool {
	return t.state == timerPendingReload
}

// Oscillator returns the full internal divider counter.
func (t *Timer) Oscillator() uint16 {
	return t.oscillator
}

// Update advances the timer by cycles CPU cycles. oldIF is the value IF held
// before the instruction that produced these cycles started. It returns true
// when TIMA overflowed during this call; the reload and the interrupt
// request happen on the following call.
func (t *Timer) Update(cycles int, oldIF uint8) bool {
	if t.state == timerPendingReload {
		// a write to TIMA during the overflow cycle cancels the reload
		if t.tima.Get() == 0 {
			t.tima.Set(t.tma.Get())
			// if IF changed during this instruction the new value wins
			if t.ifr.Get() == oldIF {
				t.ifr.Set(t.ifr.Get() | uint8(addr.TimerInterrupt))
			}
		}
		t.state = timerNormal
	}

	freq := timerFrequencies[t.tac.Get()&0b11]

	if t.bus.DIVReset {
		t.bus.DIVReset = false
		// clearing DIV can produce a falling edge on the selected bit
		if t.divResetIndex >= freq/2 {
			t.tima.Incr()
		}
		t.oscillator = 0
		t.counter = 0
		t.divResetIndex = 0
	}

	if t.bus.TACChanged {
		t.bus.TACChanged = false
		t.tacGlitch(t.tac.Get(), freq)
	}

	t.oscillator += uint16(cycles)
	t.div.Set(bit.High(t.oscillator))

	if t.divResetIndex != divResetDone {
		t.divResetIndex += cycles
		if t.divResetIndex > freq {
			t.tima.Incr()
			t.divResetIndex = divResetDone
		}
	}

	if !bit.IsSet(2, t.tac.Get()) {
		return false
	}

	t.counter += cycles
	for t.counter >= freq {
		t.counter -= freq
		if t.tima.Get() == 0xFF {
			t.tima.Set(0)
			t.state = timerPendingReload
			return true
		}
		t.tima.Incr()
	}

	return false
}

// tacGlitch applies the spurious TIMA increments that happen when TAC is
// rewritten while the timer was running: disabling it, or switching to a
// frequency whose selected bit is low while the old one was high.
func (t *Timer) tacGlitch(newTAC uint8, newFreq int) {
	oldFreq := timerFrequencies[t.oldTAC&0b11]
	defer func() { t.oldTAC = newTAC }()

	if !bit.IsSet(2, t.oldTAC) {
		return
	}

	oldHigh := t.divResetIndex&(oldFreq/2) != 0
	if !bit.IsSet(2, newTAC) {
		if oldHigh {
			t.tima.Incr()
		}
		return
	}

	if oldHigh && t.divResetIndex&(newFreq/2) == 0 {
		t.tima.Incr()
	}
}
