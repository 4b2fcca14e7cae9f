package agentgate

import "strings"

// ParsedCommand is one segment of a shell command chain. Segments are split
// on top-level ";", "&&", and "||"; each segment's pipe stages after the
// first live in Pipes. The structure is deliberately flat (primary plus a
// stage list) rather than a recursive tree.
type ParsedCommand struct {
	// Binary is the first token after quote stripping and escape
	// resolution. Adjacent quoted and unquoted fragments concatenate, so
	// r'm' resolves to rm and cannot hide a dangerous binary name.
	Binary string

	// Args are the remaining tokens of this stage.
	Args []string

	// Raw is the original text of this segment, trimmed.
	Raw string

	// Pipes holds the subsequent pipe stages of this segment, in order.
	Pipes []ParsedCommand

	// HasRedirects is true when any stage of this segment contains a
	// redirect operator (>, >>, <, N>&M) outside quotes.
	HasRedirects bool

	// HasSudo is true when any stage of this segment starts with sudo.
	HasSudo bool
}

// ParseCommand tokenizes a raw shell command string into one ParsedCommand
// per chain segment, in order. Quoting is respected: chain and pipe
// operators inside quotes never split, single quotes inside double quotes
// are literal and vice versa, and backslash escapes spaces, quotes, and
// backslashes. Empty or whitespace-only input returns nil; callers must
// treat that as deny.
func ParseCommand(raw string) []ParsedCommand {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var out []ParsedCommand
	for _, seg := range splitTopLevel(raw, chainOperators) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			// Parsing never silently discards content; an empty segment
			// (e.g. "a;;b") simply has nothing to classify.
			continue
		}
		out = append(out, parseSegment(seg))
	}
	return out
}

// parseSegment splits one chain segment on top-level "|" and tokenizes each
// stage. Redirect and sudo detection is OR'd across all stages onto the
// primary.
func parseSegment(seg string) ParsedCommand {
	stages := splitTopLevel(seg, pipeOperators)

	primary := parseStage(strings.TrimSpace(stages[0]))
	primary.Raw = seg

	for _, st := range stages[1:] {
		st = strings.TrimSpace(st)
		if st == "" {
			continue
		}
		stage := parseStage(st)
		primary.HasRedirects = primary.HasRedirects || stage.HasRedirects
		primary.HasSudo = primary.HasSudo || stage.HasSudo
		primary.Pipes = append(primary.Pipes, stage)
	}
	return primary
}

// parseStage tokenizes a single pipe stage.
func parseStage(stage string) ParsedCommand {
	tokens, hasRedirects := tokenize(stage)

	pc := ParsedCommand{Raw: stage, HasRedirects: hasRedirects}
	if len(tokens) == 0 {
		return pc
	}
	if tokens[0] == "sudo" {
		pc.HasSudo = true
	}
	pc.Binary = tokens[0]
	if len(tokens) > 1 {
		pc.Args = tokens[1:]
	}
	return pc
}

// chainOperators splits a command into chain segments. Longer operators
// come first so "&&" and "||" are matched as units.
var chainOperators = []string{"&&", "||", ";"}

// pipeOperators splits a chain segment into pipe stages. "|&" is treated
// like "|"; "||" never reaches this splitter because chain splitting runs
// first.
var pipeOperators = []string{"|&", "|"}

// splitTopLevel splits s on any of the given operators, ignoring operators
// inside single or double quotes and operators escaped by a backslash. The
// operator text itself is dropped; segment order is preserved.
func splitTopLevel(s string, operators []string) []string {
	var (
		parts    []string
		start    int
		inSingle bool
		inDouble bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && !inSingle:
			i++ // skip escaped char
			continue
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			continue
		case c == '"' && !inSingle:
			inDouble = !inDouble
			continue
		}
		if inSingle || inDouble {
			continue
		}
		for _, op := range operators {
			// "||" must not be split by the "|" pipe operator. Chain
			// splitting runs first so this only matters for defensive
			// reuse of the pipe splitter on raw text.
			if op == "|" && i+1 < len(s) && s[i+1] == '|' {
				continue
			}
			if strings.HasPrefix(s[i:], op) {
				parts = append(parts, s[start:i])
				i += len(op) - 1
				start = i + 1
				break
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// tokenize splits one pipe stage into tokens, resolving quotes and
// backslash escapes, and reports whether a top-level redirect operator was
// seen. Adjacent quoted/unquoted fragments of one token are concatenated.
// Redirect operators themselves are dropped from the token list but their
// targets are kept, so a redirect target like /dev/sda remains visible to
// argument checks.
func tokenize(stage string) (tokens []string, hasRedirects bool) {
	var (
		cur      strings.Builder
		inToken  bool
		inSingle bool
		inDouble bool
	)
	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}
	for i := 0; i < len(stage); i++ {
		c := stage[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			} else {
				cur.WriteByte(c)
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			} else if c == '\\' && i+1 < len(stage) && (stage[i+1] == '"' || stage[i+1] == '\\' || stage[i+1] == '$' || stage[i+1] == '`') {
				i++
				cur.WriteByte(stage[i])
			} else {
				cur.WriteByte(c)
			}
		case c == '\'':
			inSingle = true
			inToken = true
		case c == '"':
			inDouble = true
			inToken = true
		case c == '\\':
			if i+1 < len(stage) {
				i++
				cur.WriteByte(stage[i])
				inToken = true
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		case c == '>' || c == '<':
			hasRedirects = true
			// Strip the current token if it is a pure fd number (the "2"
			// of "2>&1"): it is part of the redirect, not an argument.
			if inToken && isAllDigits(cur.String()) {
				cur.Reset()
				inToken = false
			} else {
				flush()
			}
			// Consume the operator run: >>, >&1, <&0, etc.
			for i+1 < len(stage) && (stage[i+1] == '>' || stage[i+1] == '&' || stage[i+1] == '<') {
				i++
			}
			for i+1 < len(stage) && stage[i+1] >= '0' && stage[i+1] <= '9' {
				i++
			}
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	flush()
	return tokens, hasRedirects
}

// isAllDigits reports whether s is non-empty and consists only of ASCII
// digits.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// HasCommandSubstitution reports whether text contains command
// substitution: a $(...) span (nesting included) or a backtick-delimited
// span. A bare "$" or "$<digit>" does not count. Substitution defeats
// static analysis, so the engine treats it as always-block-equivalent.
func HasCommandSubstitution(text string) bool {
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '$' && text[i+1] == '(' {
			depth := 0
			for j := i + 1; j < len(text); j++ {
				switch text[j] {
				case '(':
					depth++
				case ')':
					depth--
					if depth == 0 {
						return true
					}
				}
			}
			// Unterminated $( is still substitution syntax; a truncation
			// trick must not slip past the detector.
			return true
		}
	}
	if first := strings.IndexByte(text, '`'); first >= 0 {
		if strings.IndexByte(text[first+1:], '`') >= 0 {
			return true
		}
	}
	return false
}

// HasVariableExpansion reports whether text contains a shell variable
// expansion of the form $NAME or ${NAME}, where NAME is an identifier
// (letters, digits, underscore, not starting with a digit) or "_". A bare
// "$", "$<digit>", or "$?" does not count.
func HasVariableExpansion(text string) bool {
	for i := 0; i+1 < len(text); i++ {
		if text[i] != '$' {
			continue
		}
		next := text[i+1]
		if next == '{' {
			end := strings.IndexByte(text[i+2:], '}')
			if end > 0 && isIdentifier(text[i+2:i+2+end]) {
				return true
			}
			continue
		}
		if isIdentStart(next) {
			return true
		}
	}
	return false
}

// isIdentStart reports whether c can start a shell identifier.
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isIdentifier reports whether s is a valid shell identifier.
func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isIdentStart(c) && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
