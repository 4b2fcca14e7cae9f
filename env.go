package agentgate

import (
	"os"
	"regexp"
	"runtime"
	"strings"

	"github.com/claypark-dev/agentgate/internal/envutil"
)

// sensitiveEnvKey matches environment variable names that commonly carry
// credentials. Matching is on the key only, never the value.
var sensitiveEnvKey = regexp.MustCompile(`(?i)(key|token|secret|passwd|password|auth|credential)`)

// sensitiveEnvPrefixes are cloud-SDK prefixes whose variables routinely
// embed account identity even when the name itself looks innocuous.
var sensitiveEnvPrefixes = []string{
	"AWS_",
	"GOOGLE_",
	"GCLOUD_",
	"AZURE_",
}

// CreateSanitizedEnv builds an environment for sandboxed children from the
// parent environment with credential-bearing variables removed and PATH
// replaced by a minimal fixed list. Entries in passthrough are merged in
// last and win over the sanitized base, so a caller can deliberately
// forward a variable the filter would otherwise strip.
func CreateSanitizedEnv(passthrough []string) []string {
	base := os.Environ()
	sanitized := make([]string, 0, len(base))
	for _, entry := range base {
		key := envutil.Key(entry)
		if sensitiveEnvKey.MatchString(key) {
			continue
		}
		if hasAnyPrefix(key, sensitiveEnvPrefixes) {
			continue
		}
		if key == "PATH" {
			continue
		}
		sanitized = append(sanitized, entry)
	}
	sanitized = envutil.SetEnv(sanitized, "PATH", safePath())
	return envutil.MergeEnv(sanitized, passthrough)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// safePath returns the minimal PATH handed to sandboxed children.
func safePath() string {
	if runtime.GOOS == "windows" {
		return `C:\Windows\System32;C:\Windows`
	}
	return "/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin"
}
