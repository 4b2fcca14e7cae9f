//go:build !darwin && !linux

package agentgate

import (
	"os/exec"
	"time"
)

// setupProcessGroup is a no-op on platforms without session support.
// Timeout still kills the direct child via the context; grandchildren may
// survive.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = 3 * time.Second
}
