// Package envutil provides helpers for manipulating environment slices in
// the os.Environ "KEY=value" form.
package envutil

import (
	"strings"
)

// SetEnv sets or replaces a variable in an env slice. If the key already
// exists its value is updated in place, otherwise the entry is appended.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// GetEnv returns the value for key from an env slice, and whether it was
// present.
func GetEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return e[len(prefix):], true
		}
	}
	return "", false
}

// Key returns the key portion of a "KEY=value" entry. Entries without '='
// are returned whole.
func Key(entry string) string {
	if idx := strings.IndexByte(entry, '='); idx >= 0 {
		return entry[:idx]
	}
	return entry
}

// MergeEnv merges additional entries into base, with additional taking
// precedence. A new slice is returned; base order is preserved and
// additional-only keys are appended in their original order.
func MergeEnv(base, additional []string) []string {
	overrides := make(map[string]string, len(additional))
	order := make([]string, 0, len(additional))
	for _, e := range additional {
		key := Key(e)
		if _, exists := overrides[key]; !exists {
			order = append(order, key)
		}
		overrides[key] = e
	}

	replaced := make(map[string]bool, len(overrides))
	result := make([]string, 0, len(base)+len(additional))
	for _, e := range base {
		key := Key(e)
		if override, ok := overrides[key]; ok {
			result = append(result, override)
			replaced[key] = true
			continue
		}
		result = append(result, e)
	}
	for _, key := range order {
		if !replaced[key] {
			result = append(result, overrides[key])
		}
	}
	return result
}
