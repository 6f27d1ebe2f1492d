package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterLookupUnregister(t *testing.T) {
	r := NewRegistry()
	c := &Channel{SSRC: 42}
	require.True(t, r.Register(42, c))

	got, ok := r.Lookup(42)
	require.True(t, ok)
	assert.Same(t, c, got)

	assert.False(t, r.Register(42, &Channel{SSRC: 42}), "second registration at the same ssrc must fail")

	r.Unregister(42)
	_, ok = r.Lookup(42)
	assert.False(t, ok)
}

func TestRegistry_ReapIdle(t *testing.T) {
	r := NewRegistry()
	c := &Channel{SSRC: 7, lifetime: 3}
	require.True(t, r.Register(7, c))

	assert.Empty(t, r.ReapIdle())
	assert.Empty(t, r.ReapIdle())
	expired := r.ReapIdle()
	require.Len(t, expired, 1)
	assert.Equal(t, uint32(7), expired[0])

	_, ok := r.Lookup(7)
	assert.False(t, ok, "expired channel must be removed from the registry")
}

func TestRegistry_ReapIdle_IgnoresNonZeroFrequencyChannels(t *testing.T) {
	r := NewRegistry()
	c := &Channel{SSRC: 11, FreqHz: 7074000, lifetime: 2}
	require.True(t, r.Register(11, c))

	for i := 0; i < 10; i++ {
		assert.Empty(t, r.ReapIdle(), "a channel tuned away from 0 Hz must live until explicit teardown")
	}
	_, ok := r.Lookup(11)
	assert.True(t, ok)
}

func TestRegistry_ReapIdle_Touch(t *testing.T) {
	r := NewRegistry()
	c := &Channel{SSRC: 9, lifetime: 2}
	require.True(t, r.Register(9, c))

	r.ReapIdle()
	c.touch()
	r.ReapIdle()
	_, ok := r.Lookup(9)
	assert.True(t, ok, "touch should reset the idle countdown")
}
