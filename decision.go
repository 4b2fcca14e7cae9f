package agentgate

// unknownStr is the string representation for unknown enum values.
const unknownStr = "unknown"

// Decision is the outcome of a permission check.
type Decision int

const (
	// Deny rejects the action. It is the zero value, so an uninitialized
	// PermissionDecision defaults to the safest outcome.
	Deny Decision = iota

	// Allow permits the action.
	Allow

	// NeedsApproval requires explicit user confirmation before proceeding.
	NeedsApproval
)

// String returns the string representation of a Decision.
func (d Decision) String() string {
	switch d {
	case Deny:
		return "deny"
	case Allow:
		return "allow"
	case NeedsApproval:
		return "needs-approval"
	default:
		return unknownStr
	}
}

// RiskLevel grades how dangerous the checked action is.
type RiskLevel int

const (
	// RiskLow is routine, read-only, or allowlisted activity.
	RiskLow RiskLevel = iota

	// RiskMedium is activity that is opaque or modifies user-owned state.
	RiskMedium

	// RiskHigh is activity that needs a human in the loop.
	RiskHigh

	// RiskCritical is activity that is never allowed to run.
	RiskCritical
)

// String returns the string representation of a RiskLevel.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return unknownStr
	}
}

// PermissionDecision is the result of checking a command, path, or domain.
type PermissionDecision struct {
	// Decision is the gate outcome.
	Decision Decision

	// Reason is a human-readable explanation suitable for direct display
	// to the end user.
	Reason string

	// Risk grades the danger of the checked action.
	Risk RiskLevel
}

// Severity tags a dangerous pattern. Resolution across matches is always
// "most severe wins", independent of rule order.
type Severity int

const (
	// SeverityNeedsApproval requires user confirmation before the action
	// may proceed.
	SeverityNeedsApproval Severity = iota

	// SeverityAlwaysBlock can never be lifted, by approval or by raising
	// the security level.
	SeverityAlwaysBlock
)

// String returns the string representation of a Severity.
func (s Severity) String() string {
	switch s {
	case SeverityNeedsApproval:
		return "needs-approval"
	case SeverityAlwaysBlock:
		return "always-block"
	default:
		return unknownStr
	}
}

// SecurityLevel configures default strictness for permission checks.
// It is owned by configuration and passed in per call, never cached
// inside the engine.
type SecurityLevel int

const (
	// LevelBlockAll (1) denies every action unconditionally.
	LevelBlockAll SecurityLevel = 1

	// LevelAllowlistOnly (2) allows only allowlisted binaries and
	// directories; everything else is denied.
	LevelAllowlistOnly SecurityLevel = 2

	// LevelStandard (3) allows allowlisted actions and escalates the rest
	// for approval.
	LevelStandard SecurityLevel = 3

	// LevelPermissive (4) allows everything except user-blocklisted and
	// pattern-flagged actions.
	LevelPermissive SecurityLevel = 4

	// LevelUnrestricted (5) allows everything except always-blocked
	// patterns, which remain unconditional.
	LevelUnrestricted SecurityLevel = 5
)

// String returns the string representation of a SecurityLevel.
func (l SecurityLevel) String() string {
	switch l {
	case LevelBlockAll:
		return "block-all"
	case LevelAllowlistOnly:
		return "allowlist-only"
	case LevelStandard:
		return "standard"
	case LevelPermissive:
		return "permissive"
	case LevelUnrestricted:
		return "unrestricted"
	default:
		return unknownStr
	}
}

// Valid reports whether the level is in the supported 1-5 range.
func (l SecurityLevel) Valid() bool {
	return l >= LevelBlockAll && l <= LevelUnrestricted
}
