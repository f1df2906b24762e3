package engine

import (
	"go.uber.org/zap"

	"github.com/zkvmlabs/wasm-tracer/opcode"
)

const defaultStackLimit = 1 << 16

type config struct {
	initialPages opcode.Pages
	maxPages     opcode.Pages
	stackLimit   int
	fuelMetering bool
	fuelLimit    uint64
}

func defaultConfig() config {
	return config{
		maxPages:   opcode.MaxPages,
		stackLimit: defaultStackLimit,
	}
}

// Option configures an Engine.
type Option func(*config)

// WithInitialPages overrides the initial linear memory size. The
// module's own declaration wins when it is larger.
func WithInitialPages(pages opcode.Pages) Option {
	return func(c *config) { c.initialPages = pages }
}

// WithMaxPages caps linear memory growth; values above the hard 512-page
// limit are clamped.
func WithMaxPages(pages opcode.Pages) Option {
	return func(c *config) {
		if pages > opcode.MaxPages {
			pages = opcode.MaxPages
		}
		c.maxPages = pages
	}
}

// WithStackLimit bounds the value stack depth.
func WithStackLimit(n int) Option {
	return func(c *config) { c.stackLimit = n }
}

// WithFuelMetering enables fuel accounting with the given budget.
// Metering is disabled by default.
func WithFuelMetering(limit uint64) Option {
	return func(c *config) {
		c.fuelMetering = true
		c.fuelLimit = limit
	}
}

// WithLogger installs the engine's zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(*config) { SetLogger(l) }
}
