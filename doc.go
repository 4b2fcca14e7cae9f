// Package agentgate is the security-mediation layer between an LLM-driven
// agent and the host system.
//
// Every shell command, file path, and outbound domain the agent wants to
// touch is parsed, classified, and gated before anything executes. Approved
// commands run inside a resource-bounded child-process sandbox. A companion
// layer detects prompt-injection attempts in user and externally-fetched
// content and wraps untrusted text in explicit trust-boundary markers before
// it reaches the model context.
//
// Key pieces:
//   - ParseCommand: shell-aware tokenization into chain segments and pipe
//     stages, resistant to quoting tricks that hide dangerous binaries
//   - Engine: allow/deny/needs-approval decisions for commands, paths, and
//     domains, driven by a security level (1-5) and user override lists
//   - ExecuteInSandbox: direct (never via a shell) execution with a
//     sanitized environment, enforced timeout, and bounded output capture
//   - CheckForInjection / WrapUntrustedContent: prompt-injection detection
//     and spotlighting of external content
//
// The package owns no UI, storage, or network listener. Security level and
// overrides are supplied by the caller on every check and never cached, so
// the engine is safe for concurrent use without setup or teardown. Every
// decision is reported to an AuditSink supplied by the caller.
//
// Basic usage:
//
//	eng := agentgate.NewEngine()
//	dec := eng.CheckCommand("rm -rf /", agentgate.CheckContext{
//	    Level: agentgate.LevelStandard,
//	})
//	if dec.Decision == agentgate.Allow {
//	    res := agentgate.ExecuteInSandbox(ctx, "ls", []string{"-la"}, agentgate.SandboxOptions{})
//	    _ = res.Stdout
//	}
package agentgate
