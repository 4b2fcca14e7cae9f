package agentgate

import (
	"regexp"
	"strings"
	"testing"

	"github.com/claypark-dev/agentgate/internal/envutil"
)

func TestCreateSanitizedEnvStripsCredentials(t *testing.T) {
	t.Setenv("API_KEY", "sk-123")
	t.Setenv("GITHUB_TOKEN", "ghp_abc")
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("MY_SECRET", "x")
	t.Setenv("OAUTH_CREDENTIALS", "x")
	t.Setenv("BASIC_AUTH", "x")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA...")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/sa.json")
	t.Setenv("AZURE_CLIENT_ID", "x")
	t.Setenv("HARMLESS_VAR", "keep-me")

	env := CreateSanitizedEnv(nil)

	sensitive := regexp.MustCompile(`(?i)(key|token|secret|password|auth|credential)`)
	for _, entry := range env {
		key := envutil.Key(entry)
		if sensitive.MatchString(key) {
			t.Errorf("sanitized env contains sensitive key %q", key)
		}
		for _, prefix := range []string{"AWS_", "GOOGLE_", "GCLOUD_", "AZURE_"} {
			if strings.HasPrefix(key, prefix) {
				t.Errorf("sanitized env contains cloud key %q", key)
			}
		}
	}

	if v, ok := envutil.GetEnv(env, "HARMLESS_VAR"); !ok || v != "keep-me" {
		t.Errorf("HARMLESS_VAR lost: %q %v", v, ok)
	}
}

func TestCreateSanitizedEnvReplacesPath(t *testing.T) {
	t.Setenv("PATH", "/home/user/.local/bin:/weird/place")
	env := CreateSanitizedEnv(nil)

	path, ok := envutil.GetEnv(env, "PATH")
	if !ok {
		t.Fatal("PATH missing from sanitized env")
	}
	if strings.Contains(path, "/weird/place") {
		t.Errorf("parent PATH leaked through: %q", path)
	}
	if path != safePath() {
		t.Errorf("PATH = %q, want %q", path, safePath())
	}
}

func TestCreateSanitizedEnvPassthrough(t *testing.T) {
	t.Setenv("DEPLOY_TOKEN", "t0ken")
	env := CreateSanitizedEnv([]string{"DEPLOY_TOKEN=t0ken", "EXTRA=1"})

	// Explicit passthrough wins over the filter; that is the caller's
	// deliberate choice.
	if v, ok := envutil.GetEnv(env, "DEPLOY_TOKEN"); !ok || v != "t0ken" {
		t.Errorf("passthrough DEPLOY_TOKEN missing: %q %v", v, ok)
	}
	if v, ok := envutil.GetEnv(env, "EXTRA"); !ok || v != "1" {
		t.Errorf("passthrough EXTRA missing: %q %v", v, ok)
	}
}

func TestCreateSanitizedEnvFreshPerCall(t *testing.T) {
	t.Setenv("VOLATILE", "one")
	first := CreateSanitizedEnv(nil)
	t.Setenv("VOLATILE", "two")
	second := CreateSanitizedEnv(nil)

	if v, _ := envutil.GetEnv(first, "VOLATILE"); v != "one" {
		t.Errorf("first snapshot = %q, want one", v)
	}
	if v, _ := envutil.GetEnv(second, "VOLATILE"); v != "two" {
		t.Errorf("second snapshot = %q, want two", v)
	}
}
