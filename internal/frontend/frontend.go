// Package frontend binds a front-end driver and dimensions the shared
// overlap-save FFT input filter, per spec.md §4.3.
package frontend

import (
	"net"
	"sync"

	"github.com/openradiod/radiod/internal/config"
)

// Driver is the capability set every front-end (static or dynamically
// loaded) must implement. Tune/Gain/Atten are modeled as separate
// optional interfaces, not methods on Driver, per spec.md §9's design
// note: "implement as a trait/interface object with optional methods,
// not inheritance."
type Driver interface {
	Setup(fe *Frontend, cfg *config.Tree, section string) error
	Start(fe *Frontend) error
}

// Tuner is implemented by drivers that can retune the front end.
type Tuner interface {
	Tune(fe *Frontend, hz float64) (float64, error)
}

// GainSetter is implemented by drivers with adjustable gain.
type GainSetter interface {
	Gain(fe *Frontend, db float64) error
}

// AttenSetter is implemented by drivers with adjustable attenuation.
type AttenSetter interface {
	Atten(fe *Frontend, db float64) error
}

// Spur is one spur-notch descriptor (spec.md §3, §4.3). The final entry
// in Frontend.Spurs is always the DC sentinel (Bin 0).
type Spur struct {
	HzRequested float64
	Bin         int
	Remainder   float64
	Alpha       float64
	State       complex128
}

// Frontend is the process-wide record created once by the Front-End
// Binder (spec.md §3). Everything except the status fields (guarded by
// mu/cond) is immutable after Bind returns.
type Frontend struct {
	SampleRate  int
	IsReal      bool
	Description string
	Driver      Driver

	L, M, N int
	Plan    *Plan
	Spurs   []Spur

	MetadataDest *net.UDPAddr

	mu         sync.Mutex
	cond       *sync.Cond
	overloads  int
	lastGainDB float64
}

// newFrontend returns a zero Frontend with its status condition wired up.
func newFrontend() *Frontend {
	fe := &Frontend{}
	fe.cond = sync.NewCond(&fe.mu)
	return fe
}

// NotifyStatus updates status fields under the front end's mutex and
// wakes any readers waiting on its condition variable (spec.md §5,
// "Suspension points").
func (fe *Frontend) NotifyStatus(overloads int, gainDB float64) {
	fe.mu.Lock()
	fe.overloads = overloads
	fe.lastGainDB = gainDB
	fe.mu.Unlock()
	fe.cond.Broadcast()
}

// WaitStatus blocks until the next NotifyStatus call and returns the
// values it published.
func (fe *Frontend) WaitStatus() (overloads int, gainDB float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.cond.Wait()
	return fe.overloads, fe.lastGainDB
}
