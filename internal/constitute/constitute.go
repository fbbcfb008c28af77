// Package constitute builds images from raw pixel data and dispatches reads
// and writes to the registered coders.
//
// A read resolves the format of the request (an explicit "TAG:" prefix, the
// requested Magick, the magic bytes of the input, then the file extension),
// checks the security policy, and hands the input to the coder. Formats
// without a built-in decoder fall back to a decode delegate, an external
// program that converts the input to a format that is read natively. Writes
// mirror this with encoders and encode delegates.
//
// Every function works on a clone of the caller's ImageInfo, so the request
// is never observed to change.
package constitute

import (
	"os"
	"sync/atomic"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/coders"
	"github.com/ironsheep/pixelcodec/internal/delegate"
	"github.com/ironsheep/pixelcodec/internal/policy"
)

// Dispatcher routes reads and writes to coders and delegates.
type Dispatcher struct {
	registry  *codec.Registry
	delegates *delegate.Table
	tempDir   string

	// policy overrides the process-wide policy when set.
	policy *policy.Policy
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDelegates sets the delegate table.
func WithDelegates(t *delegate.Table) Option {
	return func(d *Dispatcher) { d.delegates = t }
}

// WithTempDir sets where temporary files are created.
func WithTempDir(dir string) Option {
	return func(d *Dispatcher) { d.tempDir = dir }
}

// WithPolicy makes the dispatcher consult p instead of policy.Default().
func WithPolicy(p *policy.Policy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// New returns a dispatcher over registry, or the built-in coders when
// registry is nil.
func New(registry *codec.Registry, opts ...Option) *Dispatcher {
	if registry == nil {
		registry = coders.Default()
	}
	d := &Dispatcher{registry: registry, tempDir: os.TempDir()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the coder registry.
func (d *Dispatcher) Registry() *codec.Registry { return d.registry }

func (d *Dispatcher) currentPolicy() *policy.Policy {
	if d.policy != nil {
		return d.policy
	}
	return policy.Default()
}

var defaultDispatcher atomic.Pointer[Dispatcher]

// Default returns the process-wide dispatcher used by the package level
// functions.
func Default() *Dispatcher {
	if d := defaultDispatcher.Load(); d != nil {
		return d
	}
	defaultDispatcher.CompareAndSwap(nil, New(nil))
	return defaultDispatcher.Load()
}

// SetDefault replaces the process-wide dispatcher.
func SetDefault(d *Dispatcher) {
	defaultDispatcher.Store(d)
}
