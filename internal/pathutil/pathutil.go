// Package pathutil provides path containment and null-byte hygiene helpers
// shared by the directory rule tables, the engine, and the spotlighter.
package pathutil

import (
	"path/filepath"
	"strings"
)

// IsWithin reports whether p is root itself or lexically contained in root.
// Both paths are cleaned before comparison; no filesystem access happens, so
// symlinks are not resolved.
func IsWithin(root, p string) bool {
	root = filepath.ToSlash(filepath.Clean(root))
	p = filepath.ToSlash(filepath.Clean(p))
	if p == root {
		return true
	}
	if root == "/" {
		return strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, root+"/")
}

// ContainsNullByte returns true if the string contains a null byte.
// Null bytes in paths are a classic truncation vector, so callers reject
// such input outright.
func ContainsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00')
}

// StripNullBytes removes all null bytes from a string.
func StripNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
