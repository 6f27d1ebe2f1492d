package frontend

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan wraps the gonum FFT plan selected for N/isreal, grounded on
// audio_extensions/sstv/fft.go's use of gonum.org/v1/gonum/dsp/fourier
// (the only confirmed FFT library in the retrieval pack).
type Plan struct {
	N      int
	IsReal bool
	Real   *fourier.FFT
	Cmplx  *fourier.CmplxFFT
}

// PlanLevel mirrors ka9q-radio's fft-plan-level config key (SPEC_FULL
// supplemented feature 2).
type PlanLevel string

const (
	PlanEstimate   PlanLevel = "estimate"
	PlanMeasure    PlanLevel = "measure"
	PlanPatient    PlanLevel = "patient"
	PlanExhaustive PlanLevel = "exhaustive"
	PlanWisdomOnly PlanLevel = "wisdom-only"
)

// BuildPlan constructs the shared overlap-save FFT plan for N points
// (spec.md §4.3, "dimension and construct a shared FFT plan"). estimate
// and measure never touch the wisdom file; patient and exhaustive add the
// (N, isreal) entry to it after planning; wisdom-only refuses to plan at all
// without a prior cache hit, mapping to exit code EX_UNAVAILABLE at the
// caller (SPEC_FULL supplemented feature 2).
func BuildPlan(n int, isReal bool, wisdomPath string, level PlanLevel, timeLimitSeconds float64) (*Plan, error) {
	if level == PlanWisdomOnly {
		hit, err := wisdomHasEntry(wisdomPath, n, isReal)
		if err != nil {
			return nil, fmt.Errorf("frontend: reading wisdom file %s: %w", wisdomPath, err)
		}
		if !hit {
			return nil, fmt.Errorf("frontend: no cached plan for N=%d isreal=%v and fft-plan-level=wisdom-only", n, isReal)
		}
	}

	start := time.Now()
	p := &Plan{N: n, IsReal: isReal}
	if isReal {
		p.Real = fourier.NewFFT(n)
	} else {
		p.Cmplx = fourier.NewCmplxFFT(n)
	}
	elapsed := time.Since(start).Seconds()

	if timeLimitSeconds > 0 && elapsed > timeLimitSeconds {
		// Nothing to abort mid-plan with gonum's API; just surface it.
		fmt.Fprintf(os.Stderr, "frontend: FFT plan for N=%d took %.3fs, over the %.3fs budget\n", n, elapsed, timeLimitSeconds)
	}

	if level == PlanPatient || level == PlanExhaustive {
		if err := recordWisdom(wisdomPath, n, isReal); err != nil {
			fmt.Fprintf(os.Stderr, "frontend: could not update wisdom file %s: %v\n", wisdomPath, err)
		}
	}
	return p, nil
}

func wisdomKey(n int, isReal bool) string {
	return fmt.Sprintf("%d,%v", n, isReal)
}

// wisdomEntries reads the zstd-compressed wisdom file into a set of
// "N,isreal" keys. A missing file is an empty set, not an error.
func wisdomEntries(path string) (map[string]bool, error) {
	entries := map[string]bool{}
	if path == "" {
		return entries, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	for scanner.Scan() {
		entries[scanner.Text()] = true
	}
	return entries, scanner.Err()
}

func wisdomHasEntry(path string, n int, isReal bool) (bool, error) {
	if path == "" {
		return false, nil
	}
	entries, err := wisdomEntries(path)
	if err != nil {
		return false, err
	}
	return entries[wisdomKey(n, isReal)], nil
}

// recordWisdom adds (n, isreal) to the wisdom file, rewriting it
// atomically via a temp file in the same directory.
func recordWisdom(path string, n int, isReal bool) error {
	if path == "" {
		return nil
	}
	entries, err := wisdomEntries(path)
	if err != nil {
		entries = map[string]bool{}
	}
	key := wisdomKey(n, isReal)
	if entries[key] {
		return nil
	}
	entries[key] = true

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".wisdom-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return err
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintln(zw, k); err != nil {
			zw.Close()
			tmp.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
