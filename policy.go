package agentgate

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

// Overrides are the user-configured allow/block lists consulted by the
// engine. They are read-only inputs supplied by the caller on every check.
// Block lists always win over allow lists; neither can lift an
// always-blocked rule.
type Overrides struct {
	// ShellAllow lists binaries the user always permits.
	ShellAllow []string `toml:"shell_allow"`

	// ShellBlock lists binaries the user always denies. Checked at every
	// level, including 5, even for allowlisted binaries.
	ShellBlock []string `toml:"shell_block"`

	// DirAllow lists directory glob patterns the user always permits.
	DirAllow []string `toml:"dir_allow"`

	// DirBlock lists directory glob patterns the user always denies.
	DirBlock []string `toml:"dir_block"`

	// DomainAllow lists outbound domains the user always permits.
	DomainAllow []string `toml:"domain_allow"`

	// DomainBlock lists outbound domains the user always denies.
	DomainBlock []string `toml:"domain_block"`
}

// Policy is the persisted security configuration: a level plus override
// lists. The engine never stores a Policy; callers pass its fields per
// check via CheckContext, or use a PolicyWatcher to keep a file-backed
// Policy fresh.
type Policy struct {
	// SecurityLevel is the default strictness, 1-5.
	SecurityLevel SecurityLevel `toml:"security_level"`

	// Overrides are the user allow/block lists.
	Overrides Overrides `toml:"overrides"`
}

// DefaultPolicy returns a Policy at LevelStandard with no overrides.
func DefaultPolicy() *Policy {
	return &Policy{SecurityLevel: LevelStandard}
}

// Validate checks the policy for errors and returns a descriptive error if
// any field is invalid. The returned error wraps ErrPolicyInvalid.
func (p *Policy) Validate() error {
	var errs []string

	if !p.SecurityLevel.Valid() {
		errs = append(errs, fmt.Sprintf("SecurityLevel: %d is out of range 1-5", p.SecurityLevel))
	}

	errs = validateBinaryList(errs, "ShellAllow", p.Overrides.ShellAllow)
	errs = validateBinaryList(errs, "ShellBlock", p.Overrides.ShellBlock)
	errs = validateGlobList(errs, "DirAllow", p.Overrides.DirAllow)
	errs = validateGlobList(errs, "DirBlock", p.Overrides.DirBlock)
	errs = validateDomainList(errs, "DomainAllow", p.Overrides.DomainAllow)
	errs = validateDomainList(errs, "DomainBlock", p.Overrides.DomainBlock)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrPolicyInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// validateBinaryList checks that override binary names are bare names, not
// paths or patterns that a quoting trick could exploit.
func validateBinaryList(errs []string, field string, names []string) []string {
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			errs = append(errs, fmt.Sprintf("%s[%d]: must not be empty", field, i))
			continue
		}
		if strings.ContainsAny(n, " \t/\\") {
			errs = append(errs, fmt.Sprintf("%s[%d]: %q must be a bare binary name", field, i, n))
		}
	}
	return errs
}

// validateGlobList checks that directory override patterns compile.
func validateGlobList(errs []string, field string, patterns []string) []string {
	for i, pat := range patterns {
		if strings.TrimSpace(pat) == "" {
			errs = append(errs, fmt.Sprintf("%s[%d]: must not be empty", field, i))
			continue
		}
		if _, err := glob.Compile(normalizePath(pat), '/'); err != nil {
			errs = append(errs, fmt.Sprintf("%s[%d]: %v", field, i, err))
		}
	}
	return errs
}

// validateDomainList checks that domain override patterns are well-formed.
func validateDomainList(errs []string, field string, patterns []string) []string {
	for i, pat := range patterns {
		if err := validateDomainPattern(pat); err != nil {
			errs = append(errs, fmt.Sprintf("%s[%d]: %v", field, i, err))
		}
	}
	return errs
}

// Clone returns a deep copy of the policy so file reloads and callers
// cannot alias each other's slices.
func (p *Policy) Clone() *Policy {
	cp := *p
	cp.Overrides.ShellAllow = append([]string(nil), p.Overrides.ShellAllow...)
	cp.Overrides.ShellBlock = append([]string(nil), p.Overrides.ShellBlock...)
	cp.Overrides.DirAllow = append([]string(nil), p.Overrides.DirAllow...)
	cp.Overrides.DirBlock = append([]string(nil), p.Overrides.DirBlock...)
	cp.Overrides.DomainAllow = append([]string(nil), p.Overrides.DomainAllow...)
	cp.Overrides.DomainBlock = append([]string(nil), p.Overrides.DomainBlock...)
	return &cp
}

// LoadPolicy reads and validates a TOML policy file.
//
// File format:
//
//	security_level = 3
//
//	[overrides]
//	shell_allow = ["nmap"]
//	shell_block = ["curl"]
//	dir_allow = ["~/scratch/**"]
//	domain_block = ["tracker.example.com"]
func LoadPolicy(path string) (*Policy, error) {
	p := DefaultPolicy()
	if _, err := toml.DecodeFile(path, p); err != nil {
		return nil, &PolicyLoadError{Path: path, Err: err}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
