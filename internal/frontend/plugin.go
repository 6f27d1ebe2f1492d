package frontend

import (
	"errors"
	"fmt"
	"plugin"
	"strings"

	"github.com/openradiod/radiod/internal/config"
)

// ErrUnsupported is returned by a dynamically loaded driver's Tune,
// Gain, or Atten methods when the module never exported the matching
// symbol (spec.md §4.3: "a driver missing an optional capability" is a
// warning at the call site, not a load-time failure).
var ErrUnsupported = errors.New("frontend: capability not exported by driver module")

// SetupFunc, StartFunc, TuneFunc, GainFunc, and AttenFunc are the symbol
// signatures a dynamically loaded driver module must export, standing in
// for ka9q-radio's five dlopen/dlsym-resolved function pointers
// (setup/start/tune/gain/atten in front.h). Go's stdlib plugin package is
// used here deliberately: it is the only symbol-resolution-from-a-shared-
// object mechanism available without introducing cgo, and no third-party
// library in the retrieval pack offers an alternative.
type (
	SetupFunc func(*Frontend, *config.Tree, string) error
	StartFunc func(*Frontend) error
	TuneFunc  func(*Frontend, float64) (float64, error)
	GainFunc  func(*Frontend, float64) error
	AttenFunc func(*Frontend, float64) error
)

// pluginDriver adapts a dynamically loaded module's exported symbols to
// the Driver/Tuner/GainSetter/AttenSetter interfaces. All four optional
// methods are always present on the type; a nil underlying symbol makes
// the method return ErrUnsupported rather than making the capability
// interface unsatisfied, since Go can't express "implements an interface
// only if a runtime-resolved symbol exists."
type pluginDriver struct {
	device string
	setup  SetupFunc
	start  StartFunc
	tune   TuneFunc
	gain   GainFunc
	atten  AttenFunc
}

func (d *pluginDriver) Setup(fe *Frontend, cfg *config.Tree, section string) error {
	return d.setup(fe, cfg, section)
}

func (d *pluginDriver) Start(fe *Frontend) error {
	return d.start(fe)
}

func (d *pluginDriver) Tune(fe *Frontend, hz float64) (float64, error) {
	if d.tune == nil {
		return 0, fmt.Errorf("%s: tune: %w", d.device, ErrUnsupported)
	}
	return d.tune(fe, hz)
}

func (d *pluginDriver) Gain(fe *Frontend, db float64) error {
	if d.gain == nil {
		return fmt.Errorf("%s: gain: %w", d.device, ErrUnsupported)
	}
	return d.gain(fe, db)
}

func (d *pluginDriver) Atten(fe *Frontend, db float64) error {
	if d.atten == nil {
		return fmt.Errorf("%s: atten: %w", d.device, ErrUnsupported)
	}
	return d.atten(fe, db)
}

// loadDynamicDriver opens the shared object at path and resolves its
// exported symbols by convention: <Device>Setup, <Device>Start,
// <Device>Tune, <Device>Gain, <Device>Atten, capitalized to be
// plugin-exported. Setup and Start are mandatory; the rest are optional.
func loadDynamicDriver(path, device string) (Driver, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("frontend: loading driver module %s for device %q: %w", path, device, err)
	}

	prefix := strings.ToLower(device)
	if prefix != "" {
		prefix = strings.ToUpper(prefix[:1]) + prefix[1:]
	}

	setupSym, err := p.Lookup(prefix + "Setup")
	if err != nil {
		return nil, fmt.Errorf("frontend: %s: missing required Setup symbol: %w", path, err)
	}
	setup, ok := setupSym.(func(*Frontend, *config.Tree, string) error)
	if !ok {
		return nil, fmt.Errorf("frontend: %s: Setup has the wrong signature", path)
	}

	startSym, err := p.Lookup(prefix + "Start")
	if err != nil {
		return nil, fmt.Errorf("frontend: %s: missing required Start symbol: %w", path, err)
	}
	start, ok := startSym.(func(*Frontend) error)
	if !ok {
		return nil, fmt.Errorf("frontend: %s: Start has the wrong signature", path)
	}

	d := &pluginDriver{device: device, setup: setup, start: start}

	if sym, err := p.Lookup(prefix + "Tune"); err == nil {
		if fn, ok := sym.(func(*Frontend, float64) (float64, error)); ok {
			d.tune = fn
		}
	}
	if sym, err := p.Lookup(prefix + "Gain"); err == nil {
		if fn, ok := sym.(func(*Frontend, float64) error); ok {
			d.gain = fn
		}
	}
	if sym, err := p.Lookup(prefix + "Atten"); err == nil {
		if fn, ok := sym.(func(*Frontend, float64) error); ok {
			d.atten = fn
		}
	}

	return d, nil
}
