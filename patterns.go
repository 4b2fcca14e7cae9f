package agentgate

import (
	"regexp"
	"runtime"
	"sync"
)

// DangerousPattern is one entry in the dangerous-command table: a flat,
// tagged data record so the ruleset stays auditable independent of the
// matching engine. Match resolution is severity-based, never order-based.
type DangerousPattern struct {
	// Pattern matches against the raw text of a command stage.
	Pattern *regexp.Regexp

	// Description explains the danger in end-user language.
	Description string

	// Severity tags the entry as always-block or needs-approval.
	Severity Severity
}

var (
	dangerousPatternsOnce sync.Once
	dangerousPatternsInst []DangerousPattern
)

// DangerousPatterns returns the built-in dangerous-command table. The table
// is immutable and cached after first construction.
func DangerousPatterns() []DangerousPattern {
	dangerousPatternsOnce.Do(func() {
		dangerousPatternsInst = buildDangerousPatterns()
	})
	return dangerousPatternsInst
}

// mustPattern compiles a table entry. Compilation failure is a defect in
// the defaults, not a runtime condition, so it panics.
func mustPattern(expr, description string, sev Severity) DangerousPattern {
	return DangerousPattern{
		Pattern:     regexp.MustCompile(expr),
		Description: description,
		Severity:    sev,
	}
}

//nolint:funlen // the table is data, not logic; one entry per line reads best
func buildDangerousPatterns() []DangerousPattern {
	return []DangerousPattern{
		// Recursive destructive deletes. Root/home targets are
		// unconditional; elsewhere still needs a human.
		mustPattern(`(?i)\brm\s+(\S+\s+)*(-[a-z]*r[a-z]*|--recursive)\s+(\S+\s+)*(--\s+)?("|')?(/|/\*|~|~/\*|\$HOME|\$\{HOME\})("|')?\s*([;&|]|$)`,
			"recursive deletion of the filesystem root or home directory", SeverityAlwaysBlock),
		mustPattern(`(?i)\brm\s+(\S+\s+)*(-[a-z]*r[a-z]*|--recursive)(\s|$)`,
			"recursive file deletion", SeverityNeedsApproval),

		// Filesystem format / partition tools. Partition editors stay at
		// needs-approval because fdisk -l / parted --list are read-only.
		mustPattern(`(?i)\b(mkfs(\.[a-z0-9]+)?|mkswap|wipefs)\b`,
			"filesystem format command", SeverityAlwaysBlock),
		mustPattern(`(?i)\b(fdisk|parted|gdisk|sfdisk)\b`,
			"disk partition manipulation", SeverityNeedsApproval),
		mustPattern(`(?i)\bshred\b`,
			"secure file destruction", SeverityAlwaysBlock),

		// Raw block-device writes, as a dd target or redirect target.
		mustPattern(`(?i)\bdd\b.*\bof=/dev/(sd|hd|vd|xvd|nvme|mmcblk|loop|dm-|md)`,
			"raw write to a block device", SeverityAlwaysBlock),
		mustPattern(`>\s*/dev/(sd|hd|vd|xvd|nvme|mmcblk)[a-z0-9]*`,
			"redirect output to a raw disk device", SeverityAlwaysBlock),

		// Host power state.
		mustPattern(`(?i)\b(shutdown|reboot|halt|poweroff)\b`,
			"host shutdown or reboot", SeverityAlwaysBlock),
		mustPattern(`(?i)\bsystemctl\s+(halt|poweroff|reboot|suspend|hibernate)\b`,
			"host power-state change via systemctl", SeverityAlwaysBlock),

		// Recursive world-writable chmod on root.
		mustPattern(`(?i)\bchmod\s+(-[a-z]*R[a-z]*\s+|--recursive\s+).*\b[0-7]*77[0-7]*\s+("|')?/("|')?(\s|$)`,
			"recursive world-writable chmod on the filesystem root", SeverityAlwaysBlock),
		mustPattern(`(?i)\b(chmod|chown)\s+(-[a-z]*R[a-z]*|--recursive)\b.*\s("|')?(/|~|\$HOME)("|')?(\s|$)`,
			"recursive permission change on root or home", SeverityAlwaysBlock),

		// Fork bombs: the classic :(){ :|:& };: and renamed variants.
		mustPattern(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
			"fork bomb", SeverityAlwaysBlock),
		mustPattern(`(\w+)\(\)\s*\{[^}]*\|[^}]*&[^}]*\}\s*;\s*\w+`,
			"fork bomb (renamed function)", SeverityAlwaysBlock),

		// Remote-script-execution idioms.
		mustPattern(`(?i)\b(curl|wget|fetch)\b[^|;&]*\|\s*(sudo\s+)?(ba|z|da|k)?sh\b`,
			"remote script piped into a shell", SeverityAlwaysBlock),
		mustPattern(`(?i)\b(curl|wget)\b[^|;&]*\|\s*(sudo\s+)?(python[0-9.]*|perl|ruby|node)\b`,
			"remote script piped into an interpreter", SeverityAlwaysBlock),
		mustPattern(`(?i)\bInvoke-WebRequest\b.*\|.*\b(iex|Invoke-Expression)\b`,
			"remote PowerShell content piped to Invoke-Expression", SeverityAlwaysBlock),
		mustPattern(`(?i)\b(iex|Invoke-Expression)\s*\(?\s*(\(|Invoke-WebRequest|iwr|curl|wget)`,
			"PowerShell Invoke-Expression on fetched content", SeverityAlwaysBlock),

		// Privilege escalation: a human decides, at every level below 5.
		mustPattern(`(?i)(^|[;&|]\s*)(sudo|su|doas|runas)\b`,
			"privilege escalation", SeverityNeedsApproval),

		// Package managers: installs and removals change the host.
		mustPattern(`(?i)\b(apt(-get)?|yum|dnf|zypper|pacman|apk|brew|winget|choco)\s+(install|remove|uninstall|purge|erase|add|del|-S[a-z]*\b)`,
			"system package install or removal", SeverityNeedsApproval),
		mustPattern(`(?i)\b(npm|yarn|pnpm)\s+(install|add|i)\b.*(\s-g\b|--global)`,
			"global package install", SeverityNeedsApproval),
		mustPattern(`(?i)\bpip3?\s+(install|uninstall)\b`,
			"python package install or removal", SeverityNeedsApproval),

		// Windows-specific destructive tooling.
		mustPattern(`(?i)\bdiskpart\b`,
			"disk partitioning via diskpart", SeverityAlwaysBlock),
		mustPattern(`(?i)\bbcdedit\b`,
			"boot configuration edit", SeverityAlwaysBlock),
		mustPattern(`(?i)\breg\s+delete\s+("|')?HKLM`,
			"registry delete under HKLM", SeverityAlwaysBlock),
		mustPattern(`(?i)\b(icacls|takeown)\b.*\\(Windows|Program Files|ProgramData)`,
			"ownership or ACL change on a system directory", SeverityAlwaysBlock),
		mustPattern(`(?i)\bRemove-Item\b.*-Recurse\b.*[A-Z]:\\(Windows|Program Files|ProgramData)`,
			"recursive PowerShell removal of a system path", SeverityAlwaysBlock),
		mustPattern(`(?i)\bSet-ExecutionPolicy\b`,
			"PowerShell execution policy change", SeverityAlwaysBlock),
		mustPattern(`(?i)\bformat\s+[A-Z]:`,
			"drive format", SeverityAlwaysBlock),

		// Misc host sabotage seen in the wild.
		mustPattern(`(?i)>\s*/etc/(passwd|shadow|sudoers)`,
			"overwrite of a system credential file", SeverityAlwaysBlock),
		mustPattern(`(?i)\bmv\s+[^;&|]*\s+/dev/null`,
			"moving files into /dev/null", SeverityAlwaysBlock),
		mustPattern(`(?i)\bhistory\s+-c\b`,
			"shell history wipe", SeverityNeedsApproval),
		mustPattern(`(?i)\b(crontab\s+-r|launchctl\s+remove)\b`,
			"scheduled-task removal", SeverityNeedsApproval),
	}
}

// matchDangerous returns the most severe match from table for the given
// raw text, or nil when nothing matches. AlwaysBlock wins over
// NeedsApproval regardless of table order.
func matchDangerous(table []DangerousPattern, raw string) *DangerousPattern {
	var best *DangerousPattern
	for i := range table {
		p := &table[i]
		if !p.Pattern.MatchString(raw) {
			continue
		}
		if p.Severity == SeverityAlwaysBlock {
			return p
		}
		if best == nil {
			best = p
		}
	}
	return best
}

// unixBinaryAllowlist is the default set of read-only or benign utilities
// on unix-like systems. It must never intersect with known-destructive
// binaries (rm, dd, mkfs, shutdown, su, sudo, ...).
var unixBinaryAllowlist = map[string]bool{
	"ls": true, "cat": true, "echo": true, "pwd": true, "cd": true,
	"whoami": true, "date": true, "head": true, "tail": true,
	"wc": true, "sort": true, "uniq": true, "grep": true, "rg": true,
	"find": true, "which": true, "file": true, "basename": true,
	"dirname": true, "realpath": true, "stat": true, "du": true,
	"df": true, "env": true, "printenv": true, "id": true,
	"uname": true, "hostname": true, "true": true, "false": true,
	"sleep": true, "tr": true, "cut": true, "sed": true,
	"diff": true, "cmp": true, "md5sum": true, "sha256sum": true,
	"git": true, "curl": true, "wget": true, "jq": true,
	"tee": true, "touch": true, "mkdir": true, "cp": true, "ln": true,
	"tar": true, "gzip": true, "gunzip": true, "zip": true, "unzip": true,
}

// windowsBinaryAllowlist is the default benign-utility set on Windows.
var windowsBinaryAllowlist = map[string]bool{
	"dir": true, "type": true, "echo": true, "cd": true, "where": true,
	"whoami": true, "date": true, "hostname": true, "findstr": true,
	"more": true, "sort": true, "fc": true, "comp": true, "tree": true,
	"systeminfo": true, "tasklist": true, "ipconfig": true, "ver": true,
	"git": true, "curl": true, "tar": true,
}

var (
	binaryAllowlistOnce sync.Once
	binaryAllowlistInst map[string]bool
)

// DefaultBinaryAllowlist returns the OS-appropriate default binary
// allowlist. The map is shared and must not be mutated.
func DefaultBinaryAllowlist() map[string]bool {
	binaryAllowlistOnce.Do(func() {
		if runtime.GOOS == "windows" {
			binaryAllowlistInst = windowsBinaryAllowlist
		} else {
			binaryAllowlistInst = unixBinaryAllowlist
		}
	})
	return binaryAllowlistInst
}
