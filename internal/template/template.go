// Package template composes the per-section channel template described in
// spec.md §3 ("Channel template") and §4.4 (layering rules).
package template

import (
	"fmt"
	"net"
	"strings"

	"github.com/openradiod/radiod/internal/config"
)

// Output mirrors the channel's default output descriptor (spec.md §3).
type Output struct {
	DestString  string
	DestAddr    *net.UDPAddr
	TTL         int
	SampleRate  int
	Channels    int
	Encoding    string
	PayloadType uint8
}

// Status mirrors the channel's status descriptor.
type Status struct {
	DestString string
	DestAddr   *net.UDPAddr
}

// Channel is a value type: copying it must never transfer ownership of any
// heap-allocated follow-on state (spec.md §3's invariant). Params is the
// one exception that needs an explicit deep copy on Clone, since map
// assignment in Go aliases the backing storage.
type Channel struct {
	Output   Output
	Status   Status
	Preset   string
	Lifetime int               // in blocks; see idleLifetimeBlocks
	Params   map[string]string // opaque per-demodulator tuning keys/values
}

// structuralKeys are interpreted by the template builder itself; every
// other key in a channel or [global] section is an opaque demodulator
// tuning parameter (spec.md: "all per-demodulator tuning keys"; the DSP
// subsystem that interprets them is out of scope here).
var structuralKeys = map[string]bool{
	"device": true, "disable": true, "data": true, "iface": true,
	"dns": true, "ssrc": true, "library": true,
	"freq": true,
}

func isStructural(key string) bool {
	lk := strings.ToLower(key)
	if structuralKeys[lk] {
		return true
	}
	if len(lk) == 5 && strings.HasPrefix(lk, "freq") && lk[4] >= '0' && lk[4] <= '9' {
		return true
	}
	return false
}

// Defaults returns the compiled-in default template (layer 4, lowest
// priority), parameterized by the process-wide blocktime in milliseconds
// so Lifetime can be expressed in blocks (spec.md §3: "lifetime = 20000 /
// blocktime_ms").
func Defaults(blocktimeMs float64) Channel {
	return Channel{
		Output: Output{
			TTL:        0,
			SampleRate: 8000,
			Channels:   1,
			Encoding:   "s16be",
		},
		Lifetime: idleLifetimeBlocks(blocktimeMs),
		Params:   map[string]string{},
	}
}

// idleLifetimeBlocks implements spec.md §3's "lifetime = 20000 /
// blocktime_ms" (§4.7 names the 20000ms constant Channel_idle_timeout).
func idleLifetimeBlocks(blocktimeMs float64) int {
	if blocktimeMs <= 0 {
		return 0
	}
	return int(20000.0 / blocktimeMs)
}

// Clone makes an independent copy suitable for handing to a new channel;
// see the Channel doc comment.
func (c Channel) Clone() Channel {
	clone := c
	clone.Params = make(map[string]string, len(c.Params))
	for k, v := range c.Params {
		clone.Params[k] = v
	}
	return clone
}

// overlay applies every recognized key set directly on section (no
// [global] fallback — the caller controls fallback by choosing which
// sections to overlay and in what order) onto dst. Unknown preset names
// are the caller's concern (Build reports them as warnings, per spec.md
// §4.4: "skip that layer without aborting").
func overlay(dst *Channel, cfg *config.Tree, section string) {
	if v, ok := cfg.LocalString(section, "ttl"); ok {
		if n, err := parseTTL(v); err == nil {
			dst.Output.TTL = n
		}
	}
	if v, ok := cfg.LocalString(section, "encoding"); ok {
		dst.Output.Encoding = v
	}
	if v, ok := cfg.LocalString(section, "preset"); ok {
		dst.Preset = v
	} else if v, ok := cfg.LocalString(section, "mode"); ok {
		dst.Preset = v
	}
	for _, k := range cfg.KeysOf(section) {
		if isStructural(k) || strings.EqualFold(k, "ttl") || strings.EqualFold(k, "encoding") ||
			strings.EqualFold(k, "preset") || strings.EqualFold(k, "mode") {
			continue
		}
		if v, ok := cfg.LocalString(section, k); ok {
			dst.Params[k] = v
		}
	}
}

func parseTTL(v string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n)
	return n, err
}

// Build composes a section's channel template with the priority order of
// spec.md §4.4, lowest to highest: defaults -> [global] -> preset -> this
// section. It returns warnings for unknown preset names rather than
// failing (spec.md: "emit a warning and skip that layer without
// aborting").
func Build(cfg, presets *config.Tree, section string, blocktimeMs float64) (Channel, []string) {
	var warnings []string
	tmpl := Defaults(blocktimeMs)

	overlay(&tmpl, cfg, config.GlobalSectionName) // layer 3

	presetName := tmpl.Preset // picked up from [global] mode/preset, if any
	if v, ok := cfg.LocalString(section, "preset"); ok {
		presetName = v
	} else if v, ok := cfg.LocalString(section, "mode"); ok {
		presetName = v
	}
	if presetName != "" {
		if presets != nil && presets.HasSection(presetName) {
			overlay(&tmpl, presets, presetName) // layer 2
			tmpl.Preset = presetName
		} else {
			warnings = append(warnings, fmt.Sprintf("[%s] unknown preset/mode %q, skipping that layer", section, presetName))
		}
	}

	overlay(&tmpl, cfg, section) // layer 1, highest priority

	applyTTLCoercion(cfg, section, &tmpl)
	return tmpl, warnings
}

// applyTTLCoercion implements the TTL special rule of spec.md §4.4: if
// both [global] and the section specify a non-zero TTL, the section is
// forced to the global value, because the process maintains at most two
// send sockets (TTL=0 and TTL>0), not arbitrary per-channel TTLs.
func applyTTLCoercion(cfg *config.Tree, section string, tmpl *Channel) {
	globalTTL := 0
	if v, ok := cfg.LocalString(config.GlobalSectionName, "ttl"); ok {
		if n, err := parseTTL(v); err == nil {
			globalTTL = n
		}
	}
	sectionTTL := 0
	sectionHasTTL := false
	if v, ok := cfg.LocalString(section, "ttl"); ok {
		sectionHasTTL = true
		if n, err := parseTTL(v); err == nil {
			sectionTTL = n
		}
	}
	if globalTTL != 0 && sectionHasTTL && sectionTTL != 0 {
		tmpl.Output.TTL = globalTTL
	}
}
