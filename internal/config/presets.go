package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPresetsFile is used when neither "presets-file" nor its legacy
// alias "mode-file" is set in [global] (spec.md §4.2).
const DefaultPresetsFile = "presets.conf"

// DistDataDirs are searched, in order, for a presets file named by a bare
// filename (no path separator). Mirrors the original's dist_path() helper,
// which resolves against a compiled-in installation prefix.
var DistDataDirs = []string{
	"/usr/local/share/radiod",
	"/usr/share/radiod",
}

// PresetsPath resolves the configured presets file name/path from the
// merged config tree, honoring the "presets-file" key and its legacy
// "mode-file" alias (the more descriptive name wins when both are set).
func PresetsPath(cfg *Tree) string {
	name := cfg.GetString(GlobalSectionName, "mode-file", DefaultPresetsFile)
	name = cfg.GetString(GlobalSectionName, "presets-file", name)
	return distPath(name)
}

func distPath(name string) string {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	for _, dir := range DistDataDirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	// Nothing found on the data path; return the bare name and let the
	// caller's os.Stat/ini.Load fail with a clear "not found" error.
	return name
}

// LoadPresets loads the named preset library file. Unlike Load, a presets
// file is always a single regular file, never a fragment directory
// (spec.md §4.2).
func LoadPresets(path string) (*Tree, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("presets: %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("presets: %s is not a regular file", path)
	}
	return loadFiles(path)
}
