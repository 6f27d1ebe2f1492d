package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseFrequency(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"7074000", 7074000},
		{"7074k", 7074000},
		{"7.074m", 7074000},
		{"14.074", 14074000},
		{"1.296g", 1296000000},
		{"144390000", 144390000},
	}
	for _, c := range cases {
		got, err := ParseFrequency(c.in)
		require.NoError(t, err, c.in)
		assert.InDelta(t, c.want, got, 1, c.in)
	}
}

func TestParseFrequency_Invalid(t *testing.T) {
	_, err := ParseFrequency("")
	assert.Error(t, err)
	_, err = ParseFrequency("not-a-number")
	assert.Error(t, err)
}

func TestDeriveSSRC_NoDigits(t *testing.T) {
	assert.Equal(t, uint32(0), DeriveSSRC("abc"))
}

func TestDeriveSSRC_Deterministic(t *testing.T) {
	assert.Equal(t, DeriveSSRC("7074000"), DeriveSSRC("7074000"))
	assert.Equal(t, uint32(7074000), DeriveSSRC("7074000"))
	assert.Equal(t, uint32(7074), DeriveSSRC("7.074m"))
}

// TestDeriveSSRC_MatchesDigitConcatenation checks the documented formula
// directly: accumulate each decimal digit left to right as
// v = v*10 + digit in a uint32, which wraps on overflow rather than
// erroring. The model below is written independently of DeriveSSRC's own
// loop, over the digit string rapid draws, so this exercises the formula
// itself rather than DeriveSSRC's purity.
func TestDeriveSSRC_MatchesDigitConcatenation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		digits := rapid.StringMatching(`[0-9]{1,20}`).Draw(t, "digits")

		var want uint32
		for _, r := range digits {
			want = want*10 + uint32(r-'0')
		}

		assert.Equal(t, want, DeriveSSRC(digits))
	})
}

// TestDeriveSSRC_IgnoresNonDigitCharacters checks that interleaving
// arbitrary non-digit characters into a token never changes the derived
// SSRC: only the digit subsequence matters, per spec.md's "use the
// digits of the frequency specification" rule.
func TestDeriveSSRC_IgnoresNonDigitCharacters(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		digits := rapid.StringMatching(`[0-9]{1,16}`).Draw(t, "digits")
		noise := rapid.StringMatching(`[a-zA-Z.,_/ -]{0,16}`).Draw(t, "noise")

		// Interleave noise characters into the digit string at a fixed
		// point; DeriveSSRC must still only see the digits.
		mixed := noise[:len(noise)/2] + digits + noise[len(noise)/2:]
		assert.Equal(t, DeriveSSRC(digits), DeriveSSRC(mixed))
	})
}

func TestDeriveSSRC_Rapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		token := rapid.StringMatching(`[0-9]{1,12}`).Draw(t, "token")
		a := DeriveSSRC(token)
		b := DeriveSSRC(token)
		assert.Equal(t, a, b, "derivation must be a pure function of the token")
	})
}
