package hydra

import "github.com/valerio/go-hydra/hydra/debug"

// DefaultRDRAMSize is the 4MB of a stock N64.
const DefaultRDRAMSize = 4 << 20

type config struct {
	cpu         CPU
	rdramSize   int
	breakpoints *debug.Breakpoints
}

func newConfig(opts []Option) config {
	c := config{rdramSize: DefaultRDRAMSize}
	for _, opt := range opts {
		opt(&c)
	}
	if c.cpu == nil {
		c.cpu = NewIdleCPU()
	}
	if c.breakpoints == nil {
		c.breakpoints = &debug.Breakpoints{}
	}
	return c
}

// Option configures a console.
type Option func(*config)

// WithCPU sets the CPU driving a Game Boy. The default is an IdleCPU.
func WithCPU(cpu CPU) Option {
	return func(c *config) {
		c.cpu = cpu
	}
}

// WithRDRAMSize sets the N64 memory size in bytes.
func WithRDRAMSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.rdramSize = size
		}
	}
}

// withBreakpoints makes a console match against a set owned by its session.
func withBreakpoints(set *debug.Breakpoints) Option {
	return func(c *config) {
		c.breakpoints = set
	}
}
