package cutter

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// maxStderrLines bounds how much of a failed tool invocation's stderr is
// kept in the returned error.
const maxStderrLines = 20

// isInstalled reports whether binary can be located and invoked with arg
// (typically a harmless version/help flag), matching the source project's
// is_installed probes for ffmpeg and mkvmerge.
func isInstalled(ctx context.Context, binary string, arg string) bool {
	cmd := exec.CommandContext(ctx, binary, arg)
	return cmd.Run() == nil
}

// run invokes binary with args, discarding stdout and capturing stderr. On
// a non-zero exit it returns ErrToolFailed wrapping the tool's name and the
// last lines of stderr.
func run(ctx context.Context, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %s: %v", ErrToolFailed, binary, tailLines(stderr.String(), maxStderrLines), err)
	}
	return nil
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
