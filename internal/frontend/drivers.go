package frontend

import (
	"fmt"
	"strings"

	"github.com/openradiod/radiod/internal/config"
)

// builtinDrivers holds the front ends this tree can drive without a
// dynamically loaded module. Real RF hardware (rx888, airspy, airspyhf,
// funcube, rtlsdr in ka9q-radio's own driver table) needs vendor I/O that
// is out of scope here; sigGenDriver is ka9q-radio's own always-available
// synthetic source (sig_gen.c), useful for testing without hardware, so
// it is the one built in.
var builtinDrivers = map[string]func() Driver{
	"sig_gen": func() Driver { return &sigGenDriver{} },
}

// sigGenDriver is a deterministic synthetic front end: it reports a
// configured sample rate and accepts retuning without touching any I/O.
type sigGenDriver struct {
	freqHz float64
}

func (d *sigGenDriver) Setup(fe *Frontend, cfg *config.Tree, section string) error {
	rate := cfg.GetInt(section, "samprate", 192000)
	if rate <= 0 {
		return fmt.Errorf("sig_gen: samprate must be positive, got %d", rate)
	}
	fe.SampleRate = rate
	fe.IsReal = cfg.GetBool(section, "real", true)
	fe.Description = "signal generator"
	d.freqHz = cfg.GetFloat(section, "signal-freq", 1000)
	return nil
}

func (d *sigGenDriver) Start(fe *Frontend) error {
	return nil
}

func (d *sigGenDriver) Tune(fe *Frontend, hz float64) (float64, error) {
	d.freqHz = hz
	return hz, nil
}

// resolveDriver looks device up in the static table first, then falls
// back to a dynamically loaded module (spec.md §4.3 step 1: "Attempt to
// bind ... from a static built-in table; on failure, dynamically load a
// module").
func resolveDriver(device string, cfg *config.Tree, section string) (Driver, error) {
	if ctor, ok := builtinDrivers[strings.ToLower(device)]; ok {
		return ctor(), nil
	}
	modulePath := cfg.GetString(section, "library", "")
	if modulePath == "" {
		modulePath = defaultModulePath(device)
	}
	return loadDynamicDriver(modulePath, device)
}

func defaultModulePath(device string) string {
	return fmt.Sprintf("/usr/local/lib/radiod/%s.so", strings.ToLower(device))
}
