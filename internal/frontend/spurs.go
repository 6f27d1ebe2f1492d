package frontend

import "math"

// MaxSpurs bounds the spur-notch list, leaving room for the DC sentinel
// that is always appended last (spec.md §3, §9: "NSPURS ... should
// become constants of record rather than silent truncation").
const MaxSpurs = 20

// DefaultSpurAlpha is the exponential-averaging time constant applied to
// each notch's running DC estimate, chosen to settle in a few seconds at
// typical per-block update rates.
const DefaultSpurAlpha = 0.01

// ComputeTuning maps a requested spur frequency onto the nearest FFT bin
// of an N-point transform at the given sample rate, returning the signed
// bin shift and the leftover (sub-bin) frequency. This is our own
// reconstruction of ka9q-radio's out-of-scope compute_tuning() helper
// (filter.c, not present in the retrieved source): the bin spacing is
// samprate/N, so the nearest-bin shift and remainder follow directly.
func ComputeTuning(n, samprate int, hz float64) (shift int, remainder float64) {
	if n == 0 || samprate == 0 {
		return 0, hz
	}
	binHz := float64(samprate) / float64(n)
	shift = int(math.Round(hz / binHz))
	remainder = hz - float64(shift)*binHz
	return shift, remainder
}

// ComputeSpurs builds the front end's spur-notch list from the
// configured frequencies (spec.md §4.3's "bounded list of spur
// notches"). A requested frequency that resolves to bin 0 is folded into
// the trailing DC sentinel and processing stops, mirroring main.c's
// loop, which treats a zero shift as the DC entry and breaks.
func ComputeSpurs(n, samprate int, hz []float64) []Spur {
	spurs := make([]Spur, 0, MaxSpurs)
	for _, f := range hz {
		if len(spurs) >= MaxSpurs-1 {
			break
		}
		shift, remainder := ComputeTuning(n, samprate, f)
		if shift == 0 {
			break
		}
		bin := shift
		if bin < 0 {
			bin = -bin
		}
		spurs = append(spurs, Spur{
			HzRequested: f,
			Bin:         bin,
			Remainder:   remainder,
			Alpha:       DefaultSpurAlpha,
		})
	}
	spurs = append(spurs, Spur{Alpha: DefaultSpurAlpha})
	return spurs
}
