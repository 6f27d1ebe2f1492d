package config

import (
	"fmt"
	"strings"
)

// GlobalKeys is the recognized [global] key allow-list (spec.md §6).
var GlobalKeys = []string{
	"affinity", "blocktime", "data", "description", "dns",
	"fft-plan-level", "fft-threads", "fft-time-limit", "hardware",
	"iface", "mode-file", "mode", "overlap", "preset", "presets-file",
	"prio", "rtcp", "sap", "static", "status", "tos", "ttl", "update",
	"verbose", "wisdom-file",
	// supplemented ambient/domain keys (SPEC_FULL), additive only
	"mqtt-broker", "mqtt-user", "mqtt-password", "metrics-listen",
}

// ChannelKeys is the recognized channel-section key allow-list (spec.md §6).
// It is deliberately permissive about per-demodulator tuning keys: any key
// not in this slice is a warning, never an error, so vendor-specific
// demodulator parameters never break validation.
var ChannelKeys = []string{
	"device", "disable", "data", "iface", "encoding", "ttl", "ssrc",
	"dns", "freq", "mode", "preset", "library",
}

// validateSection emits warnings (returned, not logged directly so callers
// can choose how to surface them) for any key set directly on section that
// is not in allowed or one of the freqN aliases.
func validateSection(t *Tree, section string, allowed []string) []string {
	set := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		set[strings.ToLower(k)] = true
	}
	var warnings []string
	for _, k := range t.KeysOf(section) {
		lk := strings.ToLower(k)
		if set[lk] || isFreqKey(lk) {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("[%s] unrecognized key %q", section, k))
	}
	return warnings
}

func isFreqKey(lk string) bool {
	if lk == "freq" {
		return true
	}
	if len(lk) == 5 && strings.HasPrefix(lk, "freq") && lk[4] >= '0' && lk[4] <= '9' {
		return true
	}
	return false
}

// Validate checks every section against the global or channel allow-list
// as appropriate, and returns human-readable warnings. Unknown keys never
// fail the load (spec.md §4.1, §7).
func (t *Tree) Validate() []string {
	var warnings []string
	for _, name := range t.SectionNames() {
		if strings.EqualFold(name, GlobalSectionName) {
			warnings = append(warnings, validateSection(t, name, GlobalKeys)...)
			continue
		}
		warnings = append(warnings, validateSection(t, name, ChannelKeys)...)
	}
	return warnings
}
