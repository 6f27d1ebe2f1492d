package frontend

import (
	"fmt"
	"math"

	"github.com/openradiod/radiod/internal/config"
)

// BindOptions carries the process-wide settings the binder needs beyond
// the [global]/front-end section pair: blocktime and overlap determine
// L/M/N (spec.md §4.3), the rest select wisdom-cache behavior (SPEC_FULL
// supplemented feature 2).
type BindOptions struct {
	BlocktimeMs      float64
	Overlap          int
	WisdomPath       string
	PlanLevel        PlanLevel
	PlanTimeLimitSec float64
	SpurHz           []float64
}

// Bind implements spec.md §4.3: resolve the front-end driver (static
// table, then dynamic load), run its Setup, dimension L/M/N from the
// reported sample rate, build the shared FFT plan and spur list, and
// finally start capture.
func Bind(cfg *config.Tree, section string, opts BindOptions) (*Frontend, error) {
	device := cfg.GetString(section, "device", section)

	drv, err := resolveDriver(device, cfg, section)
	if err != nil {
		return nil, err
	}

	fe := newFrontend()
	fe.Driver = drv
	if err := drv.Setup(fe, cfg, section); err != nil {
		return nil, fmt.Errorf("frontend: %s: setup: %w", device, err)
	}
	if fe.SampleRate <= 0 {
		return nil, fmt.Errorf("frontend: %s: setup did not report a positive sample rate", device)
	}
	l, m, n, err := DimensionFFT(fe.SampleRate, opts.BlocktimeMs, opts.Overlap)
	if err != nil {
		return nil, fmt.Errorf("frontend: %s: %w", device, err)
	}
	fe.L, fe.M, fe.N = l, m, n

	plan, err := BuildPlan(fe.N, fe.IsReal, opts.WisdomPath, opts.PlanLevel, opts.PlanTimeLimitSec)
	if err != nil {
		return nil, err
	}
	fe.Plan = plan
	fe.Spurs = ComputeSpurs(fe.N, fe.SampleRate, opts.SpurHz)

	if err := drv.Start(fe); err != nil {
		return nil, fmt.Errorf("frontend: %s: start: %w", device, err)
	}
	return fe, nil
}

// DimensionFFT computes the overlap-save block length L, filter impulse
// length M, and transform size N from the front end's sample rate, the
// process-wide blocktime, and the configured overlap factor (spec.md
// §4.3's L/M/N formulas). It rejects any input that would produce a
// degenerate transform.
func DimensionFFT(sampleRate int, blocktimeMs float64, overlap int) (l, m, n int, err error) {
	if overlap < 2 {
		return 0, 0, 0, fmt.Errorf("overlap must be at least 2, got %d", overlap)
	}
	l = int(math.Round(float64(sampleRate) * blocktimeMs / 1000.0))
	m = l/(overlap-1) + 1
	n = l + m - 1
	if l <= 0 || m <= 1 || n <= 0 {
		return 0, 0, 0, fmt.Errorf("degenerate FFT dimensions L=%d M=%d N=%d", l, m, n)
	}
	return l, m, n, nil
}
