package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openradiod/radiod/internal/config"
)

func loadString(t *testing.T, contents string) *config.Tree {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "radiod.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	tree, err := config.Load(path)
	require.NoError(t, err)
	return tree
}

func TestDefaults_Lifetime(t *testing.T) {
	d := Defaults(20)
	assert.Equal(t, 1000, d.Lifetime)
	assert.NotNil(t, d.Params)
}

func TestBuild_LayerPriority_SectionBeatsPresetBeatsGlobal(t *testing.T) {
	cfg := loadString(t, "[global]\nencoding=s16be\n[20m]\npreset=usb-wide\nencoding=f32le\n")
	presets := loadString(t, "[usb-wide]\nencoding=s16le\n")

	tmpl, warnings := Build(cfg, presets, "20m", 20)
	assert.Empty(t, warnings)
	// section's own encoding must win over both preset and global.
	assert.Equal(t, "f32le", tmpl.Output.Encoding)
}

func TestBuild_PresetAppliesOverGlobal(t *testing.T) {
	cfg := loadString(t, "[global]\nencoding=s16be\n[20m]\npreset=usb-wide\n")
	presets := loadString(t, "[usb-wide]\nencoding=s16le\n")

	tmpl, warnings := Build(cfg, presets, "20m", 20)
	assert.Empty(t, warnings)
	assert.Equal(t, "s16le", tmpl.Output.Encoding)
}

func TestBuild_GlobalAppliesWhenNoSectionOrPreset(t *testing.T) {
	cfg := loadString(t, "[global]\nencoding=s16be\n[20m]\nfreq=14074000\n")
	tmpl, warnings := Build(cfg, config.Empty(), "20m", 20)
	assert.Empty(t, warnings)
	assert.Equal(t, "s16be", tmpl.Output.Encoding)
}

func TestBuild_UnknownPresetWarnsButDoesNotAbort(t *testing.T) {
	cfg := loadString(t, "[20m]\npreset=nonexistent\nfreq=14074000\n")
	tmpl, warnings := Build(cfg, config.Empty(), "20m", 20)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "nonexistent")
	// the layer is skipped, not fatal: defaults still apply.
	assert.Equal(t, "s16be", tmpl.Output.Encoding)
}

func TestBuild_ModeIsAliasForPreset(t *testing.T) {
	cfg := loadString(t, "[20m]\nmode=usb-wide\n")
	presets := loadString(t, "[usb-wide]\nencoding=s16le\n")
	tmpl, warnings := Build(cfg, presets, "20m", 20)
	assert.Empty(t, warnings)
	assert.Equal(t, "usb-wide", tmpl.Preset)
	assert.Equal(t, "s16le", tmpl.Output.Encoding)
}

func TestBuild_TTLCoercion_ForcesSectionToGlobal(t *testing.T) {
	cfg := loadString(t, "[global]\nttl=5\n[20m]\nttl=9\n")
	tmpl, _ := Build(cfg, config.Empty(), "20m", 20)
	assert.Equal(t, 5, tmpl.Output.TTL, "a nonzero section ttl must be coerced to the global value")
}

func TestBuild_TTLCoercion_LeavesZeroSectionTTLAlone(t *testing.T) {
	cfg := loadString(t, "[global]\nttl=5\n[20m]\nttl=0\n")
	tmpl, _ := Build(cfg, config.Empty(), "20m", 20)
	assert.Equal(t, 0, tmpl.Output.TTL, "a section ttl of 0 is not coerced to the global value")
}

func TestBuild_ParamsCarryOpaqueDemodulatorKeys(t *testing.T) {
	cfg := loadString(t, "[20m]\nsquelch=-10\nfreq=14074000\n")
	tmpl, _ := Build(cfg, config.Empty(), "20m", 20)
	assert.Equal(t, "-10", tmpl.Params["squelch"])
	_, hasFreq := tmpl.Params["freq"]
	assert.False(t, hasFreq, "structural keys like freq must never leak into Params")
}

func TestClone_DeepCopiesParams(t *testing.T) {
	orig := Defaults(20)
	orig.Params["a"] = "1"
	clone := orig.Clone()
	clone.Params["a"] = "2"
	assert.Equal(t, "1", orig.Params["a"], "mutating the clone's Params must not affect the original")
}
