// Package config loads and validates the layered INI configuration tree
// described in spec.md §4.1 and the preset library of §4.2.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// GlobalSectionName is the distinguished section holding process-wide defaults.
const GlobalSectionName = "global"

// maxFragmentFiles bounds how many *.conf fragments a directory config may
// contain. Arbitrary, as the original implementation's own comment admits
// (spec.md §9, "100-file cap ... arbitrary"); kept as a named constant so it
// can be raised without hunting for a magic number.
const maxFragmentFiles = 100

// Tree is a case-insensitive section/key store, preserving the file's
// section enumeration order the way iniparser does.
type Tree struct {
	file  *ini.File
	order []string // lower-cased section names, in file order
}

// Load resolves path into a Tree per spec.md §4.1:
//  1. a regular file is parsed directly;
//  2. a directory, or "<path>.d" if that's a directory, has its *.conf
//     fragments sorted byte-lexicographically and merged;
//  3. anything else is an error.
func Load(path string) (*Tree, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}

	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return loadDir(path)
		}
		if info.Mode().IsRegular() {
			return loadFiles(path)
		}
		return nil, fmt.Errorf("config: %s is neither a file nor a directory", path)
	}

	dname := path + ".d"
	if dinfo, derr := os.Stat(dname); derr == nil && dinfo.IsDir() {
		return loadDir(dname)
	}
	return nil, fmt.Errorf("config: %s not found: %w", path, err)
}

func loadDir(dir string) (*Tree, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("config: reading directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".conf") {
			continue
		}
		names = append(names, e.Name())
		if len(names) >= maxFragmentFiles {
			break
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("config: %s: empty config directory", dir)
	}
	sort.Strings(names) // stable byte-lexicographic order, per spec.md §4.1 and §8

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return loadFiles(paths[0], toAny(paths[1:])...)
}

func toAny(paths []string) []any {
	out := make([]any, len(paths))
	for i, p := range paths {
		out[i] = p
	}
	return out
}

func loadFiles(first string, rest ...any) (*Tree, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowNonUniqueSections: false,
		Insensitive:            true,
		InsensitiveSections:    true,
	}, first, rest...)
	if err != nil {
		return nil, fmt.Errorf("config: parsing: %w", err)
	}
	return newTree(f), nil
}

// Empty returns a Tree with no sections, used when an optional file
// (such as the preset library) is absent.
func Empty() *Tree {
	return newTree(ini.Empty())
}

func newTree(f *ini.File) *Tree {
	t := &Tree{file: f}
	for _, s := range f.Sections() {
		name := s.Name()
		if strings.EqualFold(name, ini.DefaultSection) && len(s.Keys()) == 0 {
			continue
		}
		t.order = append(t.order, strings.ToLower(name))
	}
	return t
}

// SectionNames returns channel/front-end/global section names in file
// enumeration order (lower-cased), matching ini's own iteration order.
func (t *Tree) SectionNames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// HasSection reports whether name (case-insensitive) exists.
func (t *Tree) HasSection(name string) bool {
	return t.file.HasSection(name)
}

// section fetches the named section case-insensitively, or nil.
func (t *Tree) section(name string) *ini.Section {
	s, err := t.file.GetSection(name)
	if err != nil {
		return nil
	}
	return s
}

// GetString returns key from section, falling back to [global] (unless
// section already is global), then to def.
func (t *Tree) GetString(section, key, def string) string {
	if s := t.section(section); s != nil && s.HasKey(key) {
		return s.Key(key).String()
	}
	if !strings.EqualFold(section, GlobalSectionName) {
		if g := t.section(GlobalSectionName); g != nil && g.HasKey(key) {
			return g.Key(key).String()
		}
	}
	return def
}

// GetInt is the integer analogue of GetString.
func (t *Tree) GetInt(section, key string, def int) int {
	v := t.GetString(section, key, "")
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

// GetFloat is the float analogue of GetString.
func (t *Tree) GetFloat(section, key string, def float64) float64 {
	v := t.GetString(section, key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// GetBool is the boolean analogue of GetString.
func (t *Tree) GetBool(section, key string, def bool) bool {
	v := t.GetString(section, key, "")
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "yes", "y", "on":
		return true
	case "0", "f", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// LocalString returns the value of key set directly on section, with no
// [global] fallback and no default substitution.
func (t *Tree) LocalString(section, key string) (string, bool) {
	s := t.section(section)
	if s == nil || !s.HasKey(key) {
		return "", false
	}
	return s.Key(key).String(), true
}

// HasKeyLocal reports whether key is set directly in section, without
// falling back to [global].
func (t *Tree) HasKeyLocal(section, key string) bool {
	s := t.section(section)
	return s != nil && s.HasKey(key)
}

// KeysOf returns every key name set directly on section (not [global]).
func (t *Tree) KeysOf(section string) []string {
	s := t.section(section)
	if s == nil {
		return nil
	}
	keys := s.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Name()
	}
	return out
}

// IsFrontend reports whether section carries a "device=" key, marking it
// as a front-end section to be skipped by the channel pass (spec.md §3).
func (t *Tree) IsFrontend(section string) bool {
	return t.HasKeyLocal(section, "device")
}
