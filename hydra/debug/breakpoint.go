package debug

import (
	"fmt"
	"strings"
)

// Registers is a copy of the CPU register file, as seen between instructions.
type Registers struct {
	A uint8
	F uint8
	B uint8
	C uint8
	D uint8
	E uint8
	H uint8
	L uint8

	SP uint16
	PC uint16
}

// Snapshot contains the CPU state and counters of a console at a step
// boundary.
type Snapshot struct {
	Registers Registers
	Cycles    uint64
	Steps     uint64
}

// Field selects one register of a breakpoint condition.
type Field uint16

const (
	FieldPC Field = 1 << iota
	FieldSP
	FieldA
	FieldF
	FieldB
	FieldC
	FieldD
	FieldE
	FieldH
	FieldL
)

var fieldNames = []struct {
	field Field
	name  string
}{
	{FieldPC, "PC"}, {FieldSP, "SP"},
	{FieldA, "A"}, {FieldF, "F"}, {FieldB, "B"}, {FieldC, "C"},
	{FieldD, "D"}, {FieldE, "E"}, {FieldH, "H"}, {FieldL, "L"},
}

// Breakpoint matches when every enabled field equals the corresponding
// register. A breakpoint with no enabled fields never matches.
type Breakpoint struct {
	Enabled Field
	Want    Registers
}

// AtPC is a breakpoint on the program counter only.
func AtPC(pc uint16) Breakpoint {
	return Breakpoint{Enabled: FieldPC, Want: Registers{PC: pc}}
}

// With returns a copy of b that also requires field to match value. Only the
// low byte of value is used for 8-bit registers.
func (b Breakpoint) With(field Field, value uint16) Breakpoint {
	b.Enabled |= field
	switch field {
	case FieldPC:
		b.Want.PC = value
	case FieldSP:
		b.Want.SP = value
	case FieldA:
		b.Want.A = uint8(value)
	case FieldF:
		b.Want.F = uint8(value)
	case FieldB:
		b.Want.B = uint8(value)
	case FieldC:
		b.Want.C = uint8(value)
	case FieldD:
		b.Want.D = uint8(value)
	case FieldE:
		b.Want.E = uint8(value)
	case FieldH:
		b.Want.H = uint8(value)
	case FieldL:
		b.Want.L = uint8(value)
	}
	return b
}

// Matches reports whether regs satisfies every enabled condition of b.
func (b Breakpoint) Matches(regs Registers) bool {
	if b.Enabled == 0 {
		return false
	}
	w := b.Want
	checks := []struct {
		field Field
		ok    bool
	}{
		{FieldPC, w.PC == regs.PC},
		{FieldSP, w.SP == regs.SP},
		{FieldA, w.A == regs.A},
		{FieldF, w.F == regs.F},
		{FieldB, w.B == regs.B},
		{FieldC, w.C == regs.C},
		{FieldD, w.D == regs.D},
		{FieldE, w.E == regs.E},
		{FieldH, w.H == regs.H},
		{FieldL, w.L == regs.L},
	}
	for _, c := range checks {
		if b.Enabled&c.field != 0 && !c.ok {
			return false
		}
	}
	return true
}

func (b Breakpoint) String() string {
	if b.Enabled == 0 {
		return "<never>"
	}
	var parts []string
	for _, f := range fieldNames {
		if b.Enabled&f.field == 0 {
			continue
		}
		switch f.field {
		case FieldPC:
			parts = append(parts, fmt.Sprintf("PC=0x%04X", b.Want.PC))
		case FieldSP:
			parts = append(parts, fmt.Sprintf("SP=0x%04X", b.Want.SP))
		default:
			parts = append(parts, fmt.Sprintf("%s=0x%02X", f.name, b.Want.byName(f.field)))
		}
	}
	return strings.Join(parts, " ")
}

func (r Registers) byName(field Field) uint8 {
	switch field {
	case FieldA:
		return r.A
	case FieldF:
		return r.F
	case FieldB:
		return r.B
	case FieldC:
		return r.C
	case FieldD:
		return r.D
	case FieldE:
		return r.E
	case FieldH:
		return r.H
	case FieldL:
		return r.L
	}
	return 0
}

// Breakpoints is an ordered set of breakpoints. It belongs to a single
// session and is not safe for concurrent use.
type Breakpoints struct {
	list []Breakpoint
}

// Add inserts b unless an identical breakpoint is already present.
func (s *Breakpoints) Add(b Breakpoint) {
	for _, existing := range s.list {
		if existing == b {
			return
		}
	}
	s.list = append(s.list, b)
}

// Remove deletes b and reports whether it was present.
func (s *Breakpoints) Remove(b Breakpoint) bool {
	for i, existing := range s.list {
		if existing == b {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Breakpoints) Clear() {
	s.list = nil
}

func (s *Breakpoints) Len() int {
	return len(s.list)
}

// All returns a copy of the breakpoints in insertion order.
func (s *Breakpoints) All() []Breakpoint {
	return append([]Breakpoint(nil), s.list...)
}

// Match returns the first breakpoint satisfied by regs.
func (s *Breakpoints) Match(regs Registers) (Breakpoint, bool) {
	for _, b := range s.list {
		if b.Matches(regs) {
			return b, true
		}
	}
	return Breakpoint{}, false
}
