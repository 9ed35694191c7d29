package utils

import "path/filepath"

// ResolvePath resolves path against baseDir. Absolute paths pass through
// unchanged.
func ResolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
