package agentgate

import (
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/claypark-dev/agentgate/internal/pathutil"
)

// DirectoryRules holds the built-in filesystem access rules.
type DirectoryRules struct {
	// AlwaysBlocked lists system roots that can never be granted, at any
	// security level and regardless of overrides.
	AlwaysBlocked []string

	// DefaultAllowed lists workspace and common user directories that are
	// permitted by default at allowlist-driven levels.
	DefaultAllowed []string
}

var (
	directoryRulesOnce sync.Once
	directoryRulesInst *DirectoryRules
)

// DefaultDirectoryRules returns the built-in directory rule table for the
// current OS. The table is immutable and cached after first construction.
func DefaultDirectoryRules() *DirectoryRules {
	directoryRulesOnce.Do(func() {
		directoryRulesInst = buildDirectoryRules()
	})
	return directoryRulesInst
}

func buildDirectoryRules() *DirectoryRules {
	r := &DirectoryRules{
		AlwaysBlocked: []string{
			"/", "/etc", "/usr", "/bin", "/sbin", "/lib", "/lib64",
			"/boot", "/root", "/var", "/proc", "/sys", "/dev",
			"/System", "/Library", "/private/etc",
		},
		DefaultAllowed: []string{
			"~/workspace", "~/projects", "~/src", "~/code",
			"~/Documents", "~/Desktop", "~/Downloads", "/tmp",
		},
	}
	if runtime.GOOS == "windows" {
		r.AlwaysBlocked = append(r.AlwaysBlocked,
			`C:\`, `C:\Windows`, `C:\Program Files`, `C:\Program Files (x86)`,
			`C:\ProgramData`, `C:\Recovery`, `C:\System Volume Information`,
		)
	}
	return r
}

// isAlwaysBlockedPath reports whether p, after normalization, is one of the
// always-blocked system roots or the root itself. Children of a blocked
// root other than the root directory are judged by the overridable rules,
// so ~/project under /home is not swept up by blocking /.
func (r *DirectoryRules) isAlwaysBlockedPath(p string) bool {
	cleaned := normalizePath(p)
	for _, blocked := range r.AlwaysBlocked {
		nb := normalizePath(blocked)
		if cleaned == nb {
			return true
		}
		// /etc/passwd is inside /etc; the root "/" only matches exactly,
		// otherwise every absolute path would be blocked.
		if nb != "/" && nb != `C:\` && pathutil.IsWithin(nb, cleaned) {
			return true
		}
	}
	return false
}

// isDefaultAllowedPath reports whether p falls under one of the default
// allowed roots.
func (r *DirectoryRules) isDefaultAllowedPath(p string) bool {
	cleaned := normalizePath(p)
	for _, allowed := range r.DefaultAllowed {
		na := normalizePath(allowed)
		if cleaned == na || pathutil.IsWithin(na, cleaned) {
			return true
		}
	}
	return false
}

// normalizePath cleans a path for rule comparison. Tilde and $HOME
// prefixes are kept symbolic so rules written against "~" compare equal
// without resolving the live home directory.
func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "${HOME}") {
		p = "~" + strings.TrimPrefix(p, "${HOME}")
	} else if strings.HasPrefix(p, "$HOME") {
		p = "~" + strings.TrimPrefix(p, "$HOME")
	}
	if strings.HasPrefix(p, "~") {
		rest := filepath.ToSlash(filepath.Clean(p[1:]))
		if rest == "." || rest == "/" {
			return "~"
		}
		if !strings.HasPrefix(rest, "/") {
			rest = "/" + rest
		}
		return "~" + rest
	}
	if runtime.GOOS == "windows" && len(p) >= 2 && p[1] == ':' {
		return filepath.Clean(p)
	}
	return filepath.ToSlash(filepath.Clean(p))
}

// matchGlobList reports whether p matches any of the user-supplied glob
// patterns. Patterns that fail to compile are skipped; Policy.Validate
// rejects them up front, so a bad pattern here means the caller bypassed
// validation and the safe behavior is to not match.
func matchGlobList(patterns []string, p string) bool {
	cleaned := normalizePath(p)
	for _, pat := range patterns {
		g, err := glob.Compile(normalizePath(pat), '/')
		if err != nil {
			continue
		}
		if g.Match(cleaned) {
			return true
		}
		// A bare directory pattern also covers everything beneath it.
		if pathutil.IsWithin(normalizePath(pat), cleaned) {
			return true
		}
	}
	return false
}

// looksLikePath reports whether a command argument is directory-shaped:
// absolute, home-relative, or explicitly dot-relative. Bare words are not
// treated as paths because they cannot be resolved without executing.
func looksLikePath(arg string) bool {
	if arg == "" || strings.HasPrefix(arg, "-") {
		return false
	}
	if strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, "~") {
		return true
	}
	if strings.HasPrefix(arg, "$HOME") || strings.HasPrefix(arg, "${HOME}") {
		return true
	}
	if strings.HasPrefix(arg, "./") || strings.HasPrefix(arg, "../") || arg == ".." {
		return true
	}
	// Windows drive-letter or UNC paths.
	if len(arg) >= 3 && arg[1] == ':' && (arg[2] == '\\' || arg[2] == '/') {
		return true
	}
	return strings.HasPrefix(arg, `\\`)
}
