package agentgate

import (
	"log/slog"
	"strings"

	"github.com/claypark-dev/agentgate/internal/pathutil"
)

// Engine produces allow/deny/needs-approval decisions for shell commands,
// file paths, and outbound domains. The only state it holds is the
// immutable rule tables and the audit sink; the security level and
// overrides arrive per call, so an Engine is safe for concurrent use by
// multiple goroutines without locking.
type Engine struct {
	patterns    []DangerousPattern
	allowlist   map[string]bool
	dirRules    *DirectoryRules
	domainRules *DomainRules
	audit       AuditSink
	logger      *slog.Logger
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithAuditSink sets the sink that receives every decision.
func WithAuditSink(sink AuditSink) EngineOption {
	return func(e *Engine) {
		if sink != nil {
			e.audit = sink
		}
	}
}

// WithLogger sets the logger backing the default audit sink. It has no
// effect when WithAuditSink is also given.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithExtraPatterns appends caller-supplied dangerous patterns to the
// built-in table. Severity resolution stays most-severe-wins, so the
// insertion point does not matter.
func WithExtraPatterns(patterns ...DangerousPattern) EngineOption {
	return func(e *Engine) {
		e.patterns = append(e.patterns, patterns...)
	}
}

// NewEngine creates an Engine with the built-in rule tables. Decisions are
// reported to the configured AuditSink; when no sink is supplied, entries
// go to the engine's logger.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		patterns:    DangerousPatterns(),
		allowlist:   DefaultBinaryAllowlist(),
		dirRules:    DefaultDirectoryRules(),
		domainRules: DefaultDomainRules(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.audit == nil {
		e.audit = NewSlogAuditSink(e.logger)
	}
	return e
}

// CheckContext carries the per-call configuration for a permission check.
type CheckContext struct {
	// Level is the security level in effect, 1-5.
	Level SecurityLevel

	// Overrides are the user allow/block lists.
	Overrides Overrides

	// TaskID identifies the agent task for audit purposes.
	TaskID string
}

// decisionRank orders decisions for most-restrictive-wins merging.
func decisionRank(d Decision) int {
	switch d {
	case Deny:
		return 2
	case NeedsApproval:
		return 1
	default:
		return 0
	}
}

// merge keeps the more restrictive of two decisions and the higher of the
// two risks. On a tie the first decision's reason is preserved, so the
// earliest contributing check names the reason shown to the user.
func merge(a, b PermissionDecision) PermissionDecision {
	if decisionRank(b.Decision) > decisionRank(a.Decision) {
		a, b = b, a
	}
	if b.Risk > a.Risk {
		a.Risk = b.Risk
	}
	return a
}

func allowed(reason string) PermissionDecision {
	return PermissionDecision{Decision: Allow, Reason: reason, Risk: RiskLow}
}

func denied(reason string, risk RiskLevel) PermissionDecision {
	return PermissionDecision{Decision: Deny, Reason: reason, Risk: risk}
}

func escalated(reason string, risk RiskLevel) PermissionDecision {
	return PermissionDecision{Decision: NeedsApproval, Reason: reason, Risk: risk}
}

// CheckCommand decides whether a raw shell command may run. The decision is
// reported to the audit sink before returning.
func (e *Engine) CheckCommand(raw string, cc CheckContext) PermissionDecision {
	dec := e.checkCommand(raw, cc)
	e.report("shell", raw, dec, cc)
	return dec
}

//nolint:gocyclo // the gate order is prescribed; splitting would obscure it
func (e *Engine) checkCommand(raw string, cc CheckContext) PermissionDecision {
	if cc.Level == LevelBlockAll {
		return denied("security level 1 blocks all shell commands", RiskLow)
	}
	if !cc.Level.Valid() {
		return denied("unsupported security level", RiskMedium)
	}

	segments := ParseCommand(raw)
	if len(segments) == 0 {
		return denied("empty command", RiskLow)
	}

	// Substitution defeats static analysis entirely; there is nothing to
	// approve because the inner command is unknowable without executing.
	if HasCommandSubstitution(raw) {
		return denied("command substitution is not permitted", RiskCritical)
	}

	final := allowed("command permitted")

	if HasVariableExpansion(raw) {
		final = merge(final, escalated("variable expansion makes the command opaque to inspection", RiskMedium))
	}

	// Dangerous patterns: most severe match across the raw text and the
	// resolved text of every stage. Resolved text is rebuilt from parsed
	// tokens so quote interleaving cannot hide a binary name.
	for _, text := range scanTexts(raw, segments) {
		p := matchDangerous(e.patterns, text)
		if p == nil {
			continue
		}
		if p.Severity == SeverityAlwaysBlock {
			return denied(p.Description, RiskCritical)
		}
		final = merge(final, escalated(p.Description+" requires approval", RiskHigh))
	}

	// User blocklist: checked for every stage, at every level, even for
	// binaries that are otherwise allowlisted.
	for _, stage := range allStages(segments) {
		if inNameList(cc.Overrides.ShellBlock, stage.Binary) {
			return denied("binary "+baseBinary(stage.Binary)+" is on the user blocklist", RiskHigh)
		}
	}

	// Level-driven default per stage. A compound command is only as safe
	// as its most dangerous stage, so outcomes merge most-restrictive-wins.
	for _, stage := range allStages(segments) {
		if stage.Binary == "" {
			continue
		}
		if inNameList(cc.Overrides.ShellAllow, stage.Binary) {
			continue
		}
		final = merge(final, e.levelDefault(cc.Level, stage.Binary))
	}

	// Directory-shaped arguments. Unconditional blocks run before any
	// overridable rule so no override combination can produce a bypass.
	for _, stage := range allStages(segments) {
		for _, arg := range stage.Args {
			if !looksLikePath(arg) {
				continue
			}
			final = merge(final, e.checkPathArg(arg, cc))
		}
	}

	return final
}

// levelDefault applies the security-level default for one stage binary.
func (e *Engine) levelDefault(level SecurityLevel, binary string) PermissionDecision {
	base := baseBinary(binary)
	switch level {
	case LevelAllowlistOnly:
		if e.allowlist[base] {
			return allowed("binary is allowlisted")
		}
		return denied("binary "+base+" is not in the allowlist", RiskMedium)
	case LevelStandard:
		if e.allowlist[base] {
			return allowed("binary is allowlisted")
		}
		return escalated("binary "+base+" is not allowlisted and requires approval", RiskMedium)
	default:
		// Levels 4 and 5: allow unless blocked earlier.
		return allowed("permitted at security level " + level.String())
	}
}

// checkPathArg applies the directory rules to one path-shaped argument.
func (e *Engine) checkPathArg(arg string, cc CheckContext) PermissionDecision {
	// A null byte truncates the path at the syscall boundary, so the string
	// the rules see is not the path the kernel would open.
	if pathutil.ContainsNullByte(arg) {
		return denied("path contains a null byte", RiskCritical)
	}
	if e.dirRules.isAlwaysBlockedPath(arg) {
		return denied("path "+arg+" is always blocked", RiskCritical)
	}
	if matchGlobList(cc.Overrides.DirBlock, arg) {
		return denied("path "+arg+" is on the user blocklist", RiskHigh)
	}
	if matchGlobList(cc.Overrides.DirAllow, arg) {
		return allowed("path is user-allowlisted")
	}
	switch cc.Level {
	case LevelAllowlistOnly:
		if e.dirRules.isDefaultAllowedPath(arg) {
			return allowed("path is in an allowed directory")
		}
		return denied("path "+arg+" is outside the allowed directories", RiskMedium)
	case LevelStandard:
		if e.dirRules.isDefaultAllowedPath(arg) {
			return allowed("path is in an allowed directory")
		}
		return escalated("path "+arg+" is outside the allowed directories", RiskMedium)
	default:
		return allowed("path permitted at security level " + cc.Level.String())
	}
}

// CheckFilePath decides whether the agent may touch a filesystem path.
// Always-blocked system roots deny at every level, including 5.
func (e *Engine) CheckFilePath(path string, cc CheckContext) PermissionDecision {
	dec := e.checkFilePath(path, cc)
	e.report("file", path, dec, cc)
	return dec
}

func (e *Engine) checkFilePath(path string, cc CheckContext) PermissionDecision {
	if strings.TrimSpace(path) == "" {
		return denied("empty path", RiskLow)
	}
	if e.dirRules.isAlwaysBlockedPath(path) {
		return denied("path "+path+" is always blocked", RiskCritical)
	}
	if cc.Level == LevelBlockAll {
		return denied("security level 1 blocks all file access", RiskLow)
	}
	if !cc.Level.Valid() {
		return denied("unsupported security level", RiskMedium)
	}
	return e.checkPathArg(path, cc)
}

// CheckDomain decides whether the agent may reach an outbound host.
// Loopback, private, link-local, and .internal destinations deny at every
// level, including 5.
func (e *Engine) CheckDomain(host string, cc CheckContext) PermissionDecision {
	dec := e.checkDomain(host, cc)
	e.report("domain", host, dec, cc)
	return dec
}

func (e *Engine) checkDomain(host string, cc CheckContext) PermissionDecision {
	normalized := normalizeHost(host)
	if normalized == "" {
		return denied("empty host", RiskLow)
	}
	if e.domainRules.isAlwaysBlockedHost(normalized) {
		return denied("host "+normalized+" is an internal or private destination", RiskCritical)
	}
	if cc.Level == LevelBlockAll {
		return denied("security level 1 blocks all network access", RiskLow)
	}
	if !cc.Level.Valid() {
		return denied("unsupported security level", RiskMedium)
	}
	for _, pattern := range cc.Overrides.DomainBlock {
		if matchesDomain(normalized, pattern) {
			return denied("host "+normalized+" is on the user blocklist", RiskHigh)
		}
	}
	for _, pattern := range cc.Overrides.DomainAllow {
		if matchesDomain(normalized, pattern) {
			return allowed("host is user-allowlisted")
		}
	}
	switch cc.Level {
	case LevelAllowlistOnly:
		if e.domainRules.isDefaultAllowedHost(normalized) {
			return allowed("host is in the default allowlist")
		}
		return denied("host "+normalized+" is not in the allowlist", RiskMedium)
	case LevelStandard:
		if e.domainRules.isDefaultAllowedHost(normalized) {
			return allowed("host is in the default allowlist")
		}
		return escalated("host "+normalized+" is not allowlisted and requires approval", RiskMedium)
	default:
		return allowed("host permitted at security level " + cc.Level.String())
	}
}

// report emits an audit entry for a decision.
func (e *Engine) report(actionType, detail string, dec PermissionDecision, cc CheckContext) {
	e.audit.Record(newAuditEntry(actionType, detail, dec.Decision == Allow, cc.Level, dec.Reason, cc.TaskID))
}

// scanTexts collects the raw input plus the resolved text of every stage
// for pattern scanning.
func scanTexts(raw string, segments []ParsedCommand) []string {
	texts := []string{raw}
	for _, stage := range allStages(segments) {
		texts = append(texts, resolvedStage(stage))
	}
	return texts
}

// resolvedStage rebuilds a stage's text from parsed tokens, with quotes and
// escapes resolved.
func resolvedStage(stage ParsedCommand) string {
	if len(stage.Args) == 0 {
		return stage.Binary
	}
	return stage.Binary + " " + strings.Join(stage.Args, " ")
}

// allStages flattens segments into primaries plus pipe stages, in order.
func allStages(segments []ParsedCommand) []ParsedCommand {
	var stages []ParsedCommand
	for _, seg := range segments {
		stages = append(stages, seg)
		stages = append(stages, seg.Pipes...)
	}
	return stages
}

// inNameList reports whether the binary's base name is in a user override
// list. Comparison is by base name so that /usr/bin/curl and curl match the
// same entry.
func inNameList(list []string, binary string) bool {
	base := baseBinary(binary)
	if base == "" {
		return false
	}
	for _, n := range list {
		if base == n {
			return true
		}
	}
	return false
}

// baseBinary extracts the base name from a possibly path-qualified binary.
func baseBinary(binary string) string {
	binary = strings.TrimRight(binary, "/")
	if idx := strings.LastIndexAny(binary, `/\`); idx >= 0 {
		return binary[idx+1:]
	}
	return binary
}
