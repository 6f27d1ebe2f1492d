package channel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openradiod/radiod/internal/config"
	"github.com/openradiod/radiod/internal/frontend"
	"github.com/openradiod/radiod/internal/template"
)

// maxSSRCAttempts bounds the registry-collision retry loop (spec.md
// §4.6: "retry with an incremented candidate up to a fixed attempt
// count before giving up").
const maxSSRCAttempts = 100

// Factory builds Channel values from a config section and registers
// them (spec.md §4.6). One Factory is shared by every channel section;
// it holds no per-call state.
type Factory struct {
	fe          *frontend.Frontend
	registry    *Registry
	blocktimeMs float64
}

// NewFactory returns a Factory bound to fe's frontend and registry.
func NewFactory(fe *frontend.Frontend, registry *Registry, blocktimeMs float64) *Factory {
	return &Factory{fe: fe, registry: registry, blocktimeMs: blocktimeMs}
}

// freqKeys returns the section's frequency keys in spec.md §4.6's fixed
// order: "freq" first, then "freq0".."freq9", so a section that gives a
// single channel multiple simultaneous frequencies produces one Channel
// per key, all sharing the rest of the template.
func freqKeys(cfg *config.Tree, section string) []string {
	var keys []string
	if _, ok := cfg.LocalString(section, "freq"); ok {
		keys = append(keys, "freq")
	}
	var numbered []string
	for _, k := range cfg.KeysOf(section) {
		lk := strings.ToLower(k)
		if len(lk) == 5 && strings.HasPrefix(lk, "freq") && lk[4] >= '0' && lk[4] <= '9' {
			numbered = append(numbered, lk)
		}
	}
	sort.Strings(numbered)
	return append(keys, numbered...)
}

// CreateSection builds and registers one Channel per frequency key found
// in section, returning warnings for anything skipped. Sections are
// processed independently and concurrently by the caller (spec.md §4.6:
// "process channel sections in parallel"); Factory itself needs no
// per-call synchronization beyond the registry's own lock.
func (f *Factory) CreateSection(cfg, presets *config.Tree, section string) ([]*Channel, []string) {
	tmpl, warnings := template.Build(cfg, presets, section, f.blocktimeMs)

	keys := freqKeys(cfg, section)
	if len(keys) == 0 {
		return nil, append(warnings, fmt.Sprintf("[%s]: no freq key, section produces no channel", section))
	}

	var channels []*Channel
	for _, key := range keys {
		token, _ := cfg.LocalString(section, key)
		hz, err := ParseFrequency(token)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("[%s] %s: %v", section, key, err))
			continue
		}

		ssrc, overridden := f.resolveSSRC(cfg, section, key, token)
		if ssrc == 0 {
			warnings = append(warnings, fmt.Sprintf("[%s] %s: ssrc resolves to 0, skipping channel", section, key))
			continue
		}
		c, err := f.register(ssrc, overridden, tmpl, section, hz)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("[%s] %s: %v", section, key, err))
			continue
		}
		channels = append(channels, c)
	}
	return channels, warnings
}

// resolveSSRC applies spec.md §4.6's precedence: an explicit "ssrc" key
// always wins; otherwise derive one from the frequency token's digits.
func (f *Factory) resolveSSRC(cfg *config.Tree, section, freqKey, token string) (uint32, bool) {
	if v, ok := cfg.LocalString(section, "ssrc"); ok {
		var ssrc uint32
		if _, err := fmt.Sscanf(v, "%d", &ssrc); err == nil {
			return ssrc, true
		}
	}
	return DeriveSSRC(token), false
}

// register finds a free registry slot starting at ssrc, retrying up to
// maxSSRCAttempts times by incrementing the candidate by one (spec.md
// §4.6). ssrc must already be nonzero; SSRC 0 is reserved, and the
// caller (CreateSection) skips the entry entirely rather than asking
// register to substitute a different value (spec.md §4.6 step 4,
// original_source/main.c's "ssrc == 0: continue").
func (f *Factory) register(ssrc uint32, overridden bool, tmpl template.Channel, section string, hz float64) (*Channel, error) {
	candidate := ssrc

	for attempt := 0; attempt < maxSSRCAttempts; attempt++ {
		copied := tmpl.Clone()
		c := &Channel{
			SSRC:     candidate,
			Section:  section,
			Frontend: f.fe,
			Output:   copied.Output,
			Status:   copied.Status,
			Params:   copied.Params,
			FreqHz:   hz,
			lifetime: int64(tmpl.Lifetime),
		}
		if f.registry.tryRegister(candidate, c) {
			return c, nil
		}
		if overridden {
			return nil, fmt.Errorf("ssrc %d already in use (explicitly configured, not retrying)", ssrc)
		}
		candidate++
		if candidate == 0 {
			candidate = 1
		}
	}
	return nil, fmt.Errorf("no free ssrc found near %d after %d attempts", ssrc, maxSSRCAttempts)
}
