package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDimensionFFT_KnownValues(t *testing.T) {
	l, m, n, err := DimensionFFT(8000, 20, 5)
	require.NoError(t, err)
	assert.Equal(t, 160, l)
	assert.Equal(t, 41, m)
	assert.Equal(t, 200, n)
}

func TestDimensionFFT_RejectsOverlapBelowTwo(t *testing.T) {
	_, _, _, err := DimensionFFT(8000, 20, 1)
	assert.Error(t, err)
}

// TestDimensionFFT_Invariants checks the relationships spec.md §4.3
// defines between L, M, and N hold for any sample rate/blocktime/overlap
// combination that dimensions a non-degenerate transform: N = L + M - 1,
// M > 1, and M - 1 never exceeds L.
func TestDimensionFFT_Invariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sampleRate := rapid.IntRange(1000, 5_000_000).Draw(t, "sampleRate")
		blocktimeMs := rapid.Float64Range(1, 100).Draw(t, "blocktimeMs")
		overlap := rapid.IntRange(2, 32).Draw(t, "overlap")

		l, m, n, err := DimensionFFT(sampleRate, blocktimeMs, overlap)
		if err != nil {
			// Only degenerate inputs (too small an L for the formula to
			// clear M>1) are allowed to fail.
			return
		}
		assert.Greater(t, m, 1)
		assert.Equal(t, l+m-1, n, "N must equal L + M - 1")
		assert.GreaterOrEqual(t, l, m-1, "M is derived from L, never independent of it")
	})
}
