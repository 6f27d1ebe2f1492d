package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTuning_ExactBin(t *testing.T) {
	// N=1000 at 8000 Hz samprate gives bin spacing of 8 Hz.
	shift, remainder := ComputeTuning(1000, 8000, 800)
	assert.Equal(t, 100, shift)
	assert.InDelta(t, 0, remainder, 1e-9)
}

func TestComputeTuning_RoundsToNearestBin(t *testing.T) {
	shift, remainder := ComputeTuning(1000, 8000, 803)
	assert.Equal(t, 100, shift)
	assert.InDelta(t, 3, remainder, 1e-9)
}

func TestComputeTuning_DegenerateInputsReturnZeroShift(t *testing.T) {
	shift, remainder := ComputeTuning(0, 8000, 803)
	assert.Equal(t, 0, shift)
	assert.Equal(t, 803.0, remainder)
}

func TestComputeSpurs_DCSentinelAlwaysLast(t *testing.T) {
	spurs := ComputeSpurs(1000, 8000, []float64{800, 1600})
	require.Len(t, spurs, 3)
	last := spurs[len(spurs)-1]
	assert.Equal(t, 0, last.Bin)
	assert.Equal(t, 0.0, last.HzRequested)
	assert.Equal(t, DefaultSpurAlpha, last.Alpha)
}

func TestComputeSpurs_BreaksOnZeroShift(t *testing.T) {
	// A requested frequency inside the DC bin (< 4 Hz here) halts the loop
	// early and folds into the trailing sentinel, mirroring the zero-shift
	// break in the reconstructed tuning loop.
	spurs := ComputeSpurs(1000, 8000, []float64{800, 2, 1600})
	assert.Len(t, spurs, 2, "the zero-shift entry must stop processing, dropping 1600 Hz")
	assert.Equal(t, 800.0, spurs[0].HzRequested)
}

func TestComputeSpurs_CapsAtMaxSpurs(t *testing.T) {
	hz := make([]float64, 0, MaxSpurs+10)
	for i := 1; i <= MaxSpurs+10; i++ {
		hz = append(hz, float64(i)*8)
	}
	spurs := ComputeSpurs(1000, 8000, hz)
	assert.Len(t, spurs, MaxSpurs, "the list including the DC sentinel must never exceed MaxSpurs")
}
