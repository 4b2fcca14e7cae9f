package agentgate

import (
	"encoding/base64"
	"regexp"
	"strings"
	"sync"
)

// Source identifies where a piece of text came from. The distinction
// matters: a user talking about their own earlier messages is normal, the
// same phrasing arriving inside a fetched web page is an attack.
type Source int

const (
	// SourceUser is text typed by the operating user.
	SourceUser Source = iota
	// SourceExternal is text fetched from outside (web pages, tool
	// results, files the agent did not author).
	SourceExternal
)

func (s Source) String() string {
	switch s {
	case SourceUser:
		return "user"
	case SourceExternal:
		return "external"
	default:
		return unknownStr
	}
}

// ThreatSeverity grades a detected injection signature.
type ThreatSeverity int

const (
	ThreatLow ThreatSeverity = iota
	ThreatMedium
	ThreatHigh
)

func (t ThreatSeverity) String() string {
	switch t {
	case ThreatLow:
		return "low"
	case ThreatMedium:
		return "medium"
	case ThreatHigh:
		return "high"
	default:
		return unknownStr
	}
}

// Threat is one detected injection signature.
type Threat struct {
	// Category names the signature family, e.g. "instruction-override".
	Category string
	// Severity grades the threat; a single high-severity threat marks the
	// whole text unclean.
	Severity ThreatSeverity
	// Snippet is the matched text, capped for log hygiene.
	Snippet string
}

// SanitizationResult is the outcome of an injection scan.
type SanitizationResult struct {
	// IsClean is true iff no high-severity threat was found. Lower
	// severities are advisory.
	IsClean bool
	// Threats lists every detected signature, all severities.
	Threats []Threat
}

const snippetCap = 120

// instructionOverridePatterns match attempts to void the standing prompt.
// They require an instruction-like object ("instructions", "rules", ...)
// so that a user referring to their own messages ("ignore my last
// message") is not flagged.
var instructionOverridePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(ignore|disregard|forget|override)\s+(all\s+|any\s+|the\s+|your\s+)?(previous|prior|earlier|above|preceding|system|initial)\s+(instructions?|prompts?|directives?|rules?|context|guidelines)`),
	regexp.MustCompile(`(?i)\b(ignore|disregard|forget)\s+(all|everything)\s+(you\s+were\s+told|above|before\s+this)`),
	regexp.MustCompile(`(?i)\byour?\s+(new|real|true)\s+(instructions?|task|goal|purpose)\s+(is|are)\b`),
	regexp.MustCompile(`(?i)\bdo\s+not\s+(follow|obey)\s+(the\s+|your\s+)?(previous|prior|system|original)\s+(instructions?|prompts?|rules?)`),
}

// roleImpersonationPatterns match attempts to reassign the model's role.
var roleImpersonationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(a|an|the|in)\b`),
	regexp.MustCompile(`(?i)\b(act|behave|respond)\s+as\s+(if\s+you\s+(are|were)\s+)?(a|an|the)\b`),
	regexp.MustCompile(`(?i)\bpretend\s+(to\s+be|you\s+are)\b`),
	regexp.MustCompile(`(?i)\bfrom\s+now\s+on\s+you\s+(are|will|must)\b`),
	regexp.MustCompile(`(?i)\benter\s+(developer|jailbreak|dan)\s+mode\b`),
}

// delimiterInjectionPatterns match chat-template control tokens and fake
// conversation-role markers smuggled into plain text.
var delimiterInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<\|im_(start|end)\|>`),
	regexp.MustCompile(`<\|(system|user|assistant|endoftext)\|>`),
	regexp.MustCompile(`\[/?INST\]`),
	regexp.MustCompile(`<<\/?SYS>>`),
	regexp.MustCompile(`(?i)</?(system|assistant)_?(prompt|message)?>`),
	regexp.MustCompile(`(?im)^\s*###?\s*(system|assistant)\s*:`),
	regexp.MustCompile(`(?im)^\s*(system|assistant)\s*:\s*(you\s+(are|must|will)|ignore)\b`),
}

// toolPuppetPatterns match mentions of the agent's own tool-call plumbing
// inside external content, a signal of attempted tool puppeting.
var toolPuppetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(call|invoke|use|run)\s+the\s+\w+\s+tool\b`),
	regexp.MustCompile(`(?i)\b(tool_call|function_call|tool_use)\b`),
	regexp.MustCompile(`(?i)\b(execute_command|run_shell|shell_exec|write_file|read_file|browse_web)\b`),
}

// base64Candidate matches spans long enough to plausibly carry an encoded
// payload. The 20-character floor keeps short identifiers and hashes out.
var base64Candidate = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)

// suspiciousDecodedTerms are the verbs and fragments that make a decoded
// base64 span threatening rather than incidental binary data.
var suspiciousDecodedTerms = []string{
	"ignore previous",
	"ignore all",
	"instruction",
	"system prompt",
	"rm -rf",
	"sudo ",
	"curl ",
	"wget ",
	"password",
	"exec(",
	"eval(",
}

var (
	injectionScanOnce sync.Once
	injectionScan     []injectionRule
)

type injectionRule struct {
	category     string
	patterns     []*regexp.Regexp
	externalOnly bool
	severity     func(Source) ThreatSeverity
}

func injectionRules() []injectionRule {
	injectionScanOnce.Do(func() {
		injectionScan = []injectionRule{
			{
				category: "instruction-override",
				patterns: instructionOverridePatterns,
				severity: func(Source) ThreatSeverity { return ThreatHigh },
			},
			{
				category: "role-impersonation",
				patterns: roleImpersonationPatterns,
				severity: func(src Source) ThreatSeverity {
					if src == SourceExternal {
						return ThreatHigh
					}
					return ThreatLow
				},
			},
			{
				category: "delimiter-injection",
				patterns: delimiterInjectionPatterns,
				severity: func(src Source) ThreatSeverity {
					if src == SourceExternal {
						return ThreatHigh
					}
					return ThreatMedium
				},
			},
			{
				category:     "tool-puppeting",
				patterns:     toolPuppetPatterns,
				externalOnly: true,
				severity:     func(Source) ThreatSeverity { return ThreatMedium },
			},
		}
	})
	return injectionScan
}

// CheckForInjection scans text for prompt-injection signatures. The source
// decides how aggressively to flag: external content is held to a much
// stricter standard than user input, since users legitimately discuss
// their own conversation while fetched pages have no business doing so.
func CheckForInjection(text string, source Source) SanitizationResult {
	var threats []Threat

	for _, rule := range injectionRules() {
		if rule.externalOnly && source != SourceExternal {
			continue
		}
		for _, p := range rule.patterns {
			m := p.FindString(text)
			if m == "" {
				continue
			}
			threats = append(threats, Threat{
				Category: rule.category,
				Severity: rule.severity(source),
				Snippet:  capSnippet(m),
			})
			break // one threat per category is enough signal
		}
	}

	if source == SourceExternal {
		threats = append(threats, scanBase64Payloads(text)...)
	}

	clean := true
	for _, t := range threats {
		if t.Severity == ThreatHigh {
			clean = false
			break
		}
	}
	return SanitizationResult{IsClean: clean, Threats: threats}
}

// scanBase64Payloads decodes long base64-looking spans and flags those
// whose plaintext contains injection or command material. Spans that fail
// to decode, or decode to unrelated data, are ignored.
func scanBase64Payloads(text string) []Threat {
	var threats []Threat
	for _, span := range base64Candidate.FindAllString(text, -1) {
		decoded, err := base64.StdEncoding.DecodeString(span)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(span)
		}
		if err != nil {
			continue
		}
		plain := strings.ToLower(string(decoded))
		for _, term := range suspiciousDecodedTerms {
			if strings.Contains(plain, term) {
				threats = append(threats, Threat{
					Category: "encoded-payload",
					Severity: ThreatHigh,
					Snippet:  capSnippet(span),
				})
				break
			}
		}
	}
	return threats
}

func capSnippet(s string) string {
	if len(s) > snippetCap {
		return s[:snippetCap]
	}
	return s
}
