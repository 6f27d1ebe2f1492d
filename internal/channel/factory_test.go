package channel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openradiod/radiod/internal/config"
	"github.com/openradiod/radiod/internal/template"
)

func loadConfig(t *testing.T, contents string) *config.Tree {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "radiod.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	tree, err := config.Load(path)
	require.NoError(t, err)
	return tree
}

func TestFactory_register_CollisionRetry(t *testing.T) {
	registry := NewRegistry()
	f := &Factory{registry: registry}
	tmpl := template.Defaults(20)

	// Occupy candidates 5..9 so registration must walk forward to 10.
	for ssrc := uint32(5); ssrc < 10; ssrc++ {
		require.True(t, registry.Register(ssrc, &Channel{SSRC: ssrc}))
	}

	c, err := f.register(5, false, tmpl, "test", 7074000)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), c.SSRC)
}

func TestFactory_CreateSection_ZeroSSRCSkipsChannel(t *testing.T) {
	registry := NewRegistry()
	f := NewFactory(nil, registry, 20)
	// freq=0 derives ssrc 0 with no explicit override; spec.md §4.6 step 4
	// and Concrete Scenario 4 require the whole entry to be skipped, not
	// assigned a substitute ssrc.
	cfg := loadConfig(t, "[test]\nfreq=0\n")

	chans, warnings := f.CreateSection(cfg, config.Empty(), "test")
	assert.Empty(t, chans, "a channel resolving to ssrc 0 must never be created")
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[len(warnings)-1], "ssrc resolves to 0")
	assert.Empty(t, registry.All())
}

func TestFactory_CreateSection_ExplicitZeroSSRCAlsoSkips(t *testing.T) {
	registry := NewRegistry()
	f := NewFactory(nil, registry, 20)
	cfg := loadConfig(t, "[test]\nfreq=14074000\nssrc=0\n")

	chans, warnings := f.CreateSection(cfg, config.Empty(), "test")
	assert.Empty(t, chans)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[len(warnings)-1], "ssrc resolves to 0")
}

func TestFactory_register_OverriddenCollisionFails(t *testing.T) {
	registry := NewRegistry()
	f := &Factory{registry: registry}
	tmpl := template.Defaults(20)
	require.True(t, registry.Register(99, &Channel{SSRC: 99}))

	_, err := f.register(99, true, tmpl, "test", 1000)
	assert.Error(t, err, "an explicit ssrc override must not silently retry onto a different value")
}
